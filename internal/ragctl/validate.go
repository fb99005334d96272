package ragctl

import (
	"fmt"

	"github.com/ragstack/ragctl/internal/ui"
	"github.com/spf13/cobra"
)

func ValidateCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <environment>",
		Short: "Validate an environment config without deploying",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(flags, args[0])
			if err != nil {
				return err
			}

			lines := []string{
				fmt.Sprintf("namespace:  %s", env.Namespace),
				fmt.Sprintf("registry:   %s", env.Registry.URL),
				fmt.Sprintf("production: %t", env.Production),
			}
			for _, target := range env.Services {
				lines = append(lines, fmt.Sprintf("service:    %s (replicas %d, readiness budget %s)",
					target.Name, target.Replicas, target.ReadinessTimeout))
			}
			ui.Section(fmt.Sprintf("Environment %s is valid", env.Name), lines)
			return nil
		},
	}
	return cmd
}
