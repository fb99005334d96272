package config

import (
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/ragstack/ragctl/internal/constants"
)

// LoadEnvFiles sources credential references from config/<environment>.env
// and a repo-level .env into the process environment. Both files are
// optional; ambient environment variables already set take precedence.
func LoadEnvFiles(configDir, environment string) {
	_ = godotenv.Load(filepath.Join(configDir, environment+constants.EnvFileSuffix))
	_ = godotenv.Load(".env")
}
