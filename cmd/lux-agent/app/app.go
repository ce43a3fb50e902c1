package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/luxsync-io/luxsync/cmd/lux-agent/app/options"
	"github.com/luxsync-io/luxsync/pkg/log"
)

const commandDesc = `The luxsync agent keeps a local view of a smart-lamp installation in
sync with its source of truth. In store mode it subscribes to the shared
MQTT-backed state store; in device mode it polls a lamp controller on the
local network. Either way it serves the reconciled state and the command
API over HTTP.`

func NewAgentCommand(ctx context.Context) *cobra.Command {
	opts := options.NewAgentOptions()
	cmd := &cobra.Command{
		Use:          "lux-agent",
		Short:        "Launch the luxsync agent daemon",
		Long:         commandDesc,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Init(opts.Log)

			cfg, err := opts.Config()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			a, err := cfg.NewAgent()
			if err != nil {
				return fmt.Errorf("failed to create agent: %w", err)
			}
			return a.Run(ctx)
		},
	}

	opts.AddFlags(cmd.Flags())
	return cmd
}
