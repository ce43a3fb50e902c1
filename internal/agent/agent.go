package agent

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/luxsync-io/luxsync/internal/device"
	"github.com/luxsync-io/luxsync/internal/dispatch"
	"github.com/luxsync-io/luxsync/internal/liveness"
	"github.com/luxsync-io/luxsync/internal/registry"
	"github.com/luxsync-io/luxsync/internal/schedule"
	"github.com/luxsync-io/luxsync/internal/settings"
	"github.com/luxsync-io/luxsync/internal/statechannel"
	"github.com/luxsync-io/luxsync/internal/weather"
	"github.com/luxsync-io/luxsync/pkg/log"
	"github.com/luxsync-io/luxsync/pkg/mqtt"
)

// Agent is the assembled lamp synchronization daemon: one state channel,
// the components reconciling against it, and the HTTP surface on top.
type Agent struct {
	mode Mode

	mqttClient mqtt.Client          // store mode
	broker     *statechannel.Broker // store mode
	device     *device.Client       // device mode
	poll       *poller              // device mode
	channel    statechannel.Channel

	settings   *settings.Manager
	registry   *registry.Registry
	monitor    *liveness.Monitor
	dispatcher dispatch.Dispatcher
	schedules  *schedule.Store
	weather    *weather.Client
	http       *Server
}

// Run connects the channel, launches every component and blocks until
// ctx is cancelled or one of them fails.
func (a *Agent) Run(ctx context.Context) error {
	if a.mode == ModeStore {
		if err := a.mqttClient.Start(ctx); err != nil {
			return fmt.Errorf("failed to start mqtt client: %w", err)
		}
		defer a.mqttClient.Disconnect(context.Background())

		if err := a.mqttClient.AwaitConnection(ctx); err != nil {
			return fmt.Errorf("failed to connect to broker: %w", err)
		}
		if err := a.broker.Start(ctx); err != nil {
			return err
		}
		defer a.broker.Close(context.Background())
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.registry.Run(ctx) })
	g.Go(func() error { return a.monitor.Run(ctx) })
	g.Go(func() error { return a.weather.Run(ctx) })
	g.Go(func() error { return a.http.Start(ctx) })
	if a.poll != nil {
		g.Go(func() error { return a.poll.Run(ctx) })
	}

	log.Info("Agent started", "mode", a.mode)
	return g.Wait()
}
