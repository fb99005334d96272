package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ragstack/ragctl/internal/constants"
)

var configExtensions = []string{".yaml", ".yml", ".toml", ".json"}

// FindConfigFile locates config/<environment>.<ext>. A missing file is an
// error surfaced before any external mutation happens.
func FindConfigFile(configDir, environment string) (string, error) {
	for _, ext := range configExtensions {
		candidate := filepath.Join(configDir, environment+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no config file for environment %q in %s (expected %s%s)",
		environment, configDir, environment, configExtensions[0])
}

func getConfigParser(configFile string) (koanf.Parser, error) {
	switch ext := filepath.Ext(configFile); ext {
	case ".json":
		return json.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config file type: %s", ext)
	}
}

// LoadEnvironment loads, resolves and validates the environment config.
// config/<environment>.env is sourced first so that ${VAR} references in the
// config file can resolve against it.
func LoadEnvironment(configDir, environment string) (*Environment, error) {
	LoadEnvFiles(configDir, environment)

	configFile, err := FindConfigFile(configDir, environment)
	if err != nil {
		return nil, err
	}

	parser, err := getConfigParser(configFile)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configFile), parser); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configFile, err)
	}

	var env Environment
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &env,
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}
	if err := k.UnmarshalWithConf("", &env, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config %s: %w", configFile, err)
	}

	if env.Name == "" {
		env.Name = environment
	} else if env.Name != environment {
		return nil, fmt.Errorf("config file %s declares environment %q, expected %q", configFile, env.Name, environment)
	}

	resolved, err := resolveEnvironment(&env)
	if err != nil {
		return nil, err
	}
	resolved.applyDefaults()
	if resolved.SecretsFile == "" {
		resolved.SecretsFile = SecretsFilePath(configDir, environment)
	}

	if err := resolved.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config for environment %q: %w", environment, err)
	}
	return resolved, nil
}

// SecretsFilePath returns the conventional secret-source file location.
func SecretsFilePath(configDir, environment string) string {
	return filepath.Join(configDir, environment+constants.SecretsFileSuffix)
}
