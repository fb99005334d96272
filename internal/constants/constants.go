package constants

import (
	"os"
	"time"
)

const (
	Version = "0.1.0"

	// DefaultConfigDir is where per-environment config files live, relative
	// to the working directory unless overridden with --config-dir.
	DefaultConfigDir = "config"

	DefaultNamespacePrefix = "rag-"
	DefaultSecretName      = "rag-secrets"
	DefaultBackupDir       = "backups"
	DefaultRecordsToKeep   = 6
	DefaultReplicas        = 1
	DefaultProbePath       = "/health"

	// Readiness budgets observed in production rollouts. The model server
	// loads multi-gigabyte weights on startup and needs a larger budget.
	ModelReadinessTimeout   = 300 * time.Second
	DefaultReadinessTimeout = 180 * time.Second
	ReadinessPollInterval   = 1 * time.Second

	// Environment variables
	EnvVarAgeIdentity = "RAGCTL_AGE_IDENTITY"
	EnvVarKubeconfig  = "KUBECONFIG"

	// File names
	DataDir           = ".ragctl"
	RecordsDBName     = "ragctl.db"
	SecretsFileSuffix = ".secrets.env"
	EnvFileSuffix     = ".env"
)

// File and directory permissions
const (
	ModeFileDefault os.FileMode = 0o644
	ModeDirDefault  os.FileMode = 0o755
)

// ServiceTarget names of the stock RAG stack. The set is extensible through
// configuration; these are the defaults and the ones the smoke suite knows.
const (
	ServiceModel = "model"
	ServiceAPI   = "api"
	ServiceUI    = "ui"

	// The vector database is deployed as a stateful dependency and is only
	// verified, never built, by the pipeline.
	ServiceVectorDB = "chroma"
)
