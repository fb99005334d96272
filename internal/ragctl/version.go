package ragctl

import (
	"github.com/ragstack/ragctl/internal/constants"
	"github.com/ragstack/ragctl/internal/ui"
	"github.com/spf13/cobra"
)

func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ragctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ui.Info("ragctl %s", constants.Version)
		},
	}
}
