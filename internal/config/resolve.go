package config

import (
	"fmt"
	"os"

	"github.com/jinzhu/copier"

	"github.com/ragstack/ragctl/internal/constants"
)

// resolveEnvironment deep-copies the decoded environment and expands ${VAR}
// references in credential-bearing fields against the process environment.
// The copy keeps the raw decoded config untouched so error messages can show
// the unexpanded form.
func resolveEnvironment(env *Environment) (*Environment, error) {
	resolved := &Environment{}
	if err := copier.CopyWithOption(resolved, env, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to copy environment config: %w", err)
	}

	resolved.Registry.URL = os.ExpandEnv(resolved.Registry.URL)
	resolved.Registry.Username = os.ExpandEnv(resolved.Registry.Username)
	resolved.Registry.Password = os.ExpandEnv(resolved.Registry.Password)
	resolved.Kubeconfig = os.ExpandEnv(resolved.Kubeconfig)
	if resolved.Kubeconfig == "" {
		resolved.Kubeconfig = os.Getenv(constants.EnvVarKubeconfig)
	}

	for i := range resolved.Services {
		for key, value := range resolved.Services[i].Env {
			resolved.Services[i].Env[key] = os.ExpandEnv(value)
		}
	}
	return resolved, nil
}
