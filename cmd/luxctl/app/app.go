package app

import (
	"fmt"
	"strconv"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/luxsync-io/luxsync/internal/agent"
)

// NewCtlCommand builds the luxctl root command and its verbs. luxctl is a
// thin client of the lux-agent control API.
func NewCtlCommand() *cobra.Command {
	var server string

	root := &cobra.Command{
		Use:          "luxctl",
		Short:        "Control a luxsync installation from the command line",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&server, "server", "http://127.0.0.1:8091", "Base URL of the lux-agent API.")

	client := func() *apiClient { return newAPIClient(server) }

	root.AddCommand(
		newStatusCommand(client),
		newToggleCommand(client),
		newAllCommand(client),
		newColorCommand(client),
		newRunningCommand(client),
		newScheduleCommand(client),
	)
	return root
}

func newStatusCommand(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show lamps, device liveness and weather",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := client().state(cmd.Context())
			if err != nil {
				return err
			}

			device := "OFFLINE"
			if state.DeviceOnline {
				device = "ONLINE"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Device: %s", device)
			if state.LastSeen != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (last seen %s)", state.LastSeen)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nWeather: %s, %s in %s\n\n",
				state.Weather.Temperature, state.Weather.Condition, state.Weather.Location)

			table := uitable.New()
			table.MaxColWidth = 40
			table.AddRow("REF", "NAME", "ROOM", "STATE", "COLOR", "SCHEDULE")
			for _, l := range state.Lamps {
				st := "off"
				if l.IsOn {
					st = "on"
				}
				color := "-"
				if l.Color != nil {
					color = l.Color.Hex()
				}
				sched := "-"
				if l.HasSchedule {
					sched = "yes"
				}
				table.AddRow(l.Ref, l.Name, l.Room, st, color, sched)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)

			fmt.Fprintf(cmd.OutOrStdout(), "\n%d/%d on, drawing %d W (est. %s)\n",
				state.Summary.Active, state.Summary.Total, state.Summary.PowerDraw, state.Summary.Energy)
			return nil
		},
	}
}

func newToggleCommand(client func() *apiClient) *cobra.Command {
	var mock string
	cmd := &cobra.Command{
		Use:   "toggle [lamp-id]",
		Short: "Flip one lamp, or a mock device with --mock",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := agent.RefRequest{}
			switch {
			case mock != "":
				req.Kind = "mock"
				req.Name = mock
			case len(args) == 1:
				id, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("lamp id must be an integer, got %q", args[0])
				}
				req.Kind = "lamp"
				req.ID = id
			default:
				return fmt.Errorf("a lamp id or --mock is required")
			}
			return client().post(cmd.Context(), "/api/toggle", req)
		},
	}
	cmd.Flags().StringVar(&mock, "mock", "", "Name of a mock device to toggle instead of a lamp.")
	return cmd
}

func newAllCommand(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:       "all on|off",
		Short:     "Drive every lamp to the same state",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().post(cmd.Context(), "/api/toggle-all",
				agent.ToggleAllRequest{On: args[0] == "on"})
		},
	}
}

func newColorCommand(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "color <lamp-id> <hex>",
		Short: "Set one lamp's color, e.g. luxctl color 1 '#ff8800'",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("lamp id must be an integer, got %q", args[0])
			}
			return client().post(cmd.Context(), "/api/color",
				agent.ColorRequest{ID: id, Hex: args[1]})
		},
	}
}

func newRunningCommand(client func() *apiClient) *cobra.Command {
	var intervalMs int
	cmd := &cobra.Command{
		Use:       "running on|off",
		Short:     "Enable or disable the running-light animation",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().post(cmd.Context(), "/api/running",
				agent.RunningRequest{Enable: args[0] == "on", IntervalMs: intervalMs})
		},
	}
	cmd.Flags().IntVar(&intervalMs, "interval-ms", 0, "Animation step in milliseconds; 0 uses the default.")
	return cmd
}

func newScheduleCommand(client func() *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage per-lamp on/off schedules",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <lamp-id> <on HH:mm> <off HH:mm>",
		Short: "Save a lamp's schedule; both times are required",
		Args:  cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("lamp id must be an integer, got %q", args[0])
			}
			return client().post(c.Context(), "/api/schedule",
				agent.ScheduleRequest{ID: id, On: args[1], Off: args[2]})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <lamp-id>",
		Short: "Delete a lamp's schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("lamp id must be an integer, got %q", args[0])
			}
			return client().delete(c.Context(), "/api/schedule/"+strconv.Itoa(id))
		},
	})

	return cmd
}
