package ragctl

import (
	"github.com/ragstack/ragctl/internal/deploy"
	"github.com/spf13/cobra"
)

func RollbackCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback <environment>",
		Short: "Roll every service back to its previous known-good version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			return orchestrator.Rollback(cmd.Context())
		},
	}
	return cmd
}
