package ragctl

import (
	"github.com/ragstack/ragctl/internal/constants"
	"github.com/spf13/cobra"
)

// rootFlags holds flags shared by all environment-scoped commands.
type rootFlags struct {
	configDir string
	verbose   bool
}

func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "ragctl",
		Short:         "ragctl deploys the RAG stack to a Kubernetes environment",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configDir, "config-dir", "c", constants.DefaultConfigDir,
		"Directory containing per-environment config files")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug output")

	cmd.AddCommand(
		DeployCmd(flags),
		RollbackCmd(flags),
		StatusCmd(flags),
		HistoryCmd(flags),
		ValidateCmd(flags),
		VersionCmd(),
	)

	return cmd
}
