package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxsync-io/luxsync/internal/device/simulator"
	"github.com/luxsync-io/luxsync/internal/statechannel"
	"github.com/luxsync-io/luxsync/pkg/log"
	"github.com/luxsync-io/luxsync/pkg/mqtt"
	"github.com/luxsync-io/luxsync/pkg/options"
)

type simOptions struct {
	Lamps             int
	DeviceID          string
	HeartbeatInterval time.Duration
	Mirror            bool

	HttpOptions *options.HttpOptions
	MqttOptions *options.MqttOptions
	Log         *log.Options
}

func newSimOptions() *simOptions {
	http := options.NewHttpOptions()
	http.Addr = "0.0.0.0:8092"

	return &simOptions{
		Lamps:             4,
		DeviceID:          "esp32_1",
		HeartbeatInterval: 10 * time.Second,
		HttpOptions:       http,
		MqttOptions:       options.NewMqttOptions(),
		Log:               log.NewOptions(),
	}
}

func (o *simOptions) validate() error {
	errs := []error{}
	if o.Lamps <= 0 {
		errs = append(errs, fmt.Errorf("lamps must be positive, got %d", o.Lamps))
	}
	errs = append(errs, o.HttpOptions.Validate()...)
	if o.Mirror {
		errs = append(errs, o.MqttOptions.Validate()...)
	}
	errs = append(errs, o.Log.Validate()...)
	return errors.Join(errs...)
}

// NewSimCommand builds the lux-simd root command: a lamp controller
// simulator serving the device HTTP API, optionally mirroring its state
// and heartbeat into the shared store.
func NewSimCommand(ctx context.Context) *cobra.Command {
	opts := newSimOptions()
	cmd := &cobra.Command{
		Use:          "lux-simd",
		Short:        "Launch a simulated lamp controller",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Init(opts.Log)
			if err := opts.validate(); err != nil {
				return err
			}
			return run(ctx, opts)
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&opts.Lamps, "lamps", opts.Lamps, "Number of simulated lamps.")
	fs.StringVar(&opts.DeviceID, "device-id", opts.DeviceID, "Device identifier used for heartbeats.")
	fs.DurationVar(&opts.HeartbeatInterval, "heartbeat-interval", opts.HeartbeatInterval, "Interval between heartbeat writes.")
	fs.BoolVar(&opts.Mirror, "mirror", opts.Mirror, "Mirror lamp state and heartbeat into the shared MQTT store.")
	opts.HttpOptions.AddFlags(fs)
	opts.MqttOptions.AddFlags(fs)
	opts.Log.AddFlags(fs)

	return cmd
}

func run(ctx context.Context, opts *simOptions) error {
	bank := simulator.NewBank(opts.Lamps)
	srv := simulator.NewServer(opts.HttpOptions.Addr, bank)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })

	if opts.Mirror {
		client, err := mqtt.NewClient(opts.MqttOptions.ToClientConfig())
		if err != nil {
			return fmt.Errorf("failed to init mqtt client: %w", err)
		}
		if err := client.Start(ctx); err != nil {
			return fmt.Errorf("failed to start mqtt client: %w", err)
		}
		defer client.Disconnect(context.Background())
		if err := client.AwaitConnection(ctx); err != nil {
			return fmt.Errorf("failed to connect to broker: %w", err)
		}

		broker := statechannel.NewBroker(client, opts.MqttOptions.TopicRoot)
		if err := broker.Start(ctx); err != nil {
			return err
		}
		defer broker.Close(context.Background())

		if err := bank.Mirror(ctx, broker); err != nil {
			return fmt.Errorf("failed to seed lamp state: %w", err)
		}
		hb := &simulator.Heartbeat{
			Channel:  broker,
			DeviceID: opts.DeviceID,
			Interval: opts.HeartbeatInterval,
		}
		g.Go(func() error { return hb.Run(ctx) })
	}

	log.Info("Simulator started", "lamps", opts.Lamps, "addr", opts.HttpOptions.Addr, "mirror", opts.Mirror)
	return g.Wait()
}
