package ragctl

import (
	"fmt"

	"github.com/ragstack/ragctl/internal/kube"
	"github.com/ragstack/ragctl/internal/ui"
	"github.com/spf13/cobra"
)

func StatusCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <environment>",
		Short: "Show rollout state per service target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := loadEnvironment(flags, args[0])
			if err != nil {
				return err
			}

			client, err := kube.NewClient(env.Kubeconfig)
			if err != nil {
				return err
			}

			lines := make([]string, 0, len(env.Services))
			for _, target := range env.Services {
				image, err := kube.DeployedImage(ctx, client, env.Namespace, target.Name)
				if err != nil {
					lines = append(lines, fmt.Sprintf("%-10s not deployed", target.Name))
					continue
				}
				ready, err := kube.RolloutReady(ctx, client, env.Namespace, target.Name)
				state := "not ready"
				if err == nil && ready {
					state = "ready"
				}
				lines = append(lines, fmt.Sprintf("%-10s %-9s %s", target.Name, state, image))
			}
			ui.Section(fmt.Sprintf("Environment %s (namespace %s)", env.Name, env.Namespace), lines)
			return nil
		},
	}
	return cmd
}
