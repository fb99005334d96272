package ragctl

import (
	"fmt"
	"time"

	"github.com/ragstack/ragctl/internal/helpers"
	"github.com/ragstack/ragctl/internal/ui"
	"github.com/spf13/cobra"
)

func HistoryCmd(flags *rootFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <environment>",
		Short: "List recorded deployments for an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			environment := args[0]

			records, err := openStore()
			if err != nil {
				return err
			}
			defer records.Close()

			history, err := records.History(environment, limit)
			if err != nil {
				return err
			}
			if len(history) == 0 {
				ui.Info("No deployment records for environment %s", environment)
				return nil
			}

			lines := make([]string, 0, len(history))
			for _, record := range history {
				when, err := helpers.FormatDateString(record.CreatedAt.Format(time.RFC3339))
				if err != nil {
					when = record.CreatedAt.Format(time.RFC3339)
				}
				line := fmt.Sprintf("%-10s %-12s %-16s %s",
					record.Service, record.Version, when, record.ImageRef)
				if record.RolledBackFrom != nil {
					line += fmt.Sprintf("  (rolled back from %s)", *record.RolledBackFrom)
				}
				lines = append(lines, line)
			}
			ui.Section(fmt.Sprintf("Deployment history for %s", environment), lines)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 30, "Maximum number of records to show")
	return cmd
}
