package ragctl

import (
	"errors"
	"fmt"
	"os"

	"github.com/ragstack/ragctl/internal/config"
	"github.com/ragstack/ragctl/internal/constants"
	"github.com/ragstack/ragctl/internal/deploy"
	"github.com/ragstack/ragctl/internal/logging"
	"github.com/ragstack/ragctl/internal/store"
)

// Exit codes. A failed rollback leaves the system in an unknown state and is
// surfaced with its own code so calling automation can page accordingly.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitDoubleFault = 3
)

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var doubleFault *deploy.DoubleFaultError
	if errors.As(err, &doubleFault) {
		return ExitDoubleFault
	}
	return ExitFailure
}

func newLogger(flags *rootFlags) *logging.Logger {
	level := logging.INFO
	if flags.verbose {
		level = logging.DEBUG
	}
	return logging.NewLogger(level, true)
}

// loadEnvironment resolves the environment config, failing before any
// external mutation when the config file is missing or invalid.
func loadEnvironment(flags *rootFlags, environment string) (*config.Environment, error) {
	env, err := config.LoadEnvironment(flags.configDir, environment)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment %q: %w", environment, err)
	}
	return env, nil
}

// openStore opens the local deployment records database under .ragctl/.
func openStore() (*store.Store, error) {
	if err := os.MkdirAll(constants.DataDir, constants.ModeDirDefault); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return store.OpenInDir(constants.DataDir, constants.RecordsDBName)
}
