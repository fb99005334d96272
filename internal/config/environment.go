package config

import (
	"fmt"
	"time"

	"github.com/ragstack/ragctl/internal/constants"
	"github.com/ragstack/ragctl/internal/helpers"
)

// Environment is the resolved configuration for one deployment target.
// It is assembled once at startup and treated as immutable for the run.
type Environment struct {
	Name       string `koanf:"name"`
	Production bool   `koanf:"production"`
	Namespace  string `koanf:"namespace"`
	Kubeconfig string `koanf:"kubeconfig"`

	Registry  Registry        `koanf:"registry"`
	Services  []ServiceTarget `koanf:"services"`
	Backup    Backup          `koanf:"backup"`
	SmokeTest SmokeTest       `koanf:"smokeTest"`

	// Services that must exist in the namespace after apply but are not
	// built or rolled out by the pipeline, like the vector database.
	ExternalServices []string `koanf:"externalServices"`

	// SecretsFile defaults to config/<name>.secrets.env.
	SecretsFile string `koanf:"secretsFile"`
	SecretName  string `koanf:"secretName"`

	RecordsToKeep int `koanf:"recordsToKeep"`
}

// Registry identifies the image registry used for push and pull. Username and
// password values support ${VAR} expansion against the process environment,
// which config/<env>.env populates.
type Registry struct {
	URL      string `koanf:"url"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// ServiceTarget is one deployable service of the stack.
type ServiceTarget struct {
	Name     string `koanf:"name"`
	Replicas int    `koanf:"replicas"`
	Port     int    `koanf:"port"`

	// Build source. Empty BuildContext means the image is pulled, not built,
	// and Image must hold a pinned reference.
	BuildContext string `koanf:"buildContext"`
	Dockerfile   string `koanf:"dockerfile"`
	Image        string `koanf:"image"`

	ProbePath        string        `koanf:"probePath"`
	ReadinessTimeout time.Duration `koanf:"readinessTimeout"`

	Env map[string]string `koanf:"env"`
}

type Backup struct {
	Dir string `koanf:"dir"`
}

type SmokeTest struct {
	// Command is an external executable run after deployment; a non-zero
	// exit status is a smoke failure. Optional.
	Command string `koanf:"command"`

	// BaseURL enables HTTP probing of <BaseURL><target.ProbePath>. Optional.
	BaseURL string `koanf:"baseURL"`
}

// ImageRef returns the fully qualified image reference for a target at a
// given version.
func (s ServiceTarget) ImageRef(registryURL, version string) string {
	return fmt.Sprintf("%s/%s:%s", registryURL, s.Name, version)
}

// Buildable reports whether the pipeline builds an image for this target.
func (s ServiceTarget) Buildable() bool {
	return s.BuildContext != ""
}

// ResolvedImageRef returns the image reference deployed for this target at a
// given version: the freshly built tag for buildable targets, the pinned
// reference otherwise.
func (s ServiceTarget) ResolvedImageRef(registryURL, version string) string {
	if s.Buildable() {
		return s.ImageRef(registryURL, version)
	}
	return s.Image
}

func (e *Environment) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("environment name is required")
	}
	if e.Name != helpers.SanitizeResourceName(e.Name) {
		return fmt.Errorf("environment name %q is not a valid resource name", e.Name)
	}
	if e.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if e.Registry.URL == "" {
		return fmt.Errorf("registry.url is required")
	}
	if len(e.Services) == 0 {
		return fmt.Errorf("at least one service target is required")
	}
	seen := make(map[string]bool, len(e.Services))
	for _, svc := range e.Services {
		if svc.Name == "" {
			return fmt.Errorf("service target without a name")
		}
		if seen[svc.Name] {
			return fmt.Errorf("duplicate service target %q", svc.Name)
		}
		seen[svc.Name] = true
		if svc.Port <= 0 || svc.Port > 65535 {
			return fmt.Errorf("service %q: invalid port %d", svc.Name, svc.Port)
		}
		if svc.Buildable() && svc.Dockerfile == "" {
			return fmt.Errorf("service %q: buildContext set without dockerfile", svc.Name)
		}
		if !svc.Buildable() && svc.Image == "" {
			return fmt.Errorf("service %q: either buildContext or image is required", svc.Name)
		}
	}
	return nil
}

// Service returns the target with the given name.
func (e *Environment) Service(name string) (ServiceTarget, bool) {
	for _, svc := range e.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return ServiceTarget{}, false
}

// applyDefaults fills zero values after decoding. Readiness budgets follow
// what production rollouts need: the model server gets 300s, others 180s.
func (e *Environment) applyDefaults() {
	if e.Namespace == "" && e.Name != "" {
		e.Namespace = constants.DefaultNamespacePrefix + e.Name
	}
	if e.SecretName == "" {
		e.SecretName = constants.DefaultSecretName
	}
	if e.Backup.Dir == "" {
		e.Backup.Dir = constants.DefaultBackupDir
	}
	if e.RecordsToKeep == 0 {
		e.RecordsToKeep = constants.DefaultRecordsToKeep
	}
	for i := range e.Services {
		svc := &e.Services[i]
		if svc.Replicas == 0 {
			svc.Replicas = constants.DefaultReplicas
		}
		if svc.ProbePath == "" {
			svc.ProbePath = constants.DefaultProbePath
		}
		if svc.ReadinessTimeout == 0 {
			if svc.Name == constants.ServiceModel {
				svc.ReadinessTimeout = constants.ModelReadinessTimeout
			} else {
				svc.ReadinessTimeout = constants.DefaultReadinessTimeout
			}
		}
	}
}
