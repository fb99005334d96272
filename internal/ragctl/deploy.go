package ragctl

import (
	"os/signal"
	"syscall"

	"github.com/ragstack/ragctl/internal/deploy"
	"github.com/spf13/cobra"
)

func DeployCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy <environment>",
		Short: "Deploy the stack to an environment",
		Long: "Run the full deployment pipeline against the named environment: " +
			"prerequisite checks, image build and push, secrets, backup (production), " +
			"manifest apply, readiness verification and smoke tests.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Interrupts take the same cleanup path as a fatal step failure.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := newLogger(flags)
			env, err := loadEnvironment(flags, args[0])
			if err != nil {
				return err
			}

			records, err := openStore()
			if err != nil {
				return err
			}
			defer records.Close()

			orchestrator := deploy.New(env, records, logger)
			result := orchestrator.Run(ctx)
			if !result.Ok() {
				return result.Err
			}
			return nil
		},
	}
	return cmd
}
