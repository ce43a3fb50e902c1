package agent

import (
	"fmt"

	"github.com/luxsync-io/luxsync/internal/device"
	"github.com/luxsync-io/luxsync/internal/dispatch"
	"github.com/luxsync-io/luxsync/internal/liveness"
	"github.com/luxsync-io/luxsync/internal/registry"
	"github.com/luxsync-io/luxsync/internal/schedule"
	"github.com/luxsync-io/luxsync/internal/settings"
	"github.com/luxsync-io/luxsync/internal/statechannel"
	"github.com/luxsync-io/luxsync/internal/weather"
	"github.com/luxsync-io/luxsync/pkg/mqtt"
	"github.com/luxsync-io/luxsync/pkg/options"
)

// Mode selects how the agent reaches its lamps. The two modes are
// mutually exclusive per process.
type Mode string

const (
	// ModeStore syncs through the shared MQTT-backed remote store.
	ModeStore Mode = "store"
	// ModeDevice polls a lamp controller on the local network directly.
	ModeDevice Mode = "device"
)

// Config carries everything needed to assemble an Agent.
type Config struct {
	Mode         Mode
	DeviceID     string
	Mocks        []string
	SettingsFile string

	MqttOptions    *options.MqttOptions
	HttpOptions    *options.HttpOptions
	DeviceOptions  *options.DeviceOptions
	WeatherOptions *options.WeatherOptions
}

// NewAgent wires the full component graph for the configured mode.
func (cfg *Config) NewAgent() (*Agent, error) {
	mgr := settings.NewManager(cfg.SettingsFile, nil)
	if err := mgr.Load(); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	mgr.Watch()

	// The persisted city preference wins over the flag default.
	if city := mgr.Current().City; city != "" {
		cfg.WeatherOptions.City = city
	}

	a := &Agent{
		mode:     cfg.Mode,
		settings: mgr,
		weather:  weather.NewClient(cfg.WeatherOptions),
	}

	switch cfg.Mode {
	case ModeStore:
		client, err := mqtt.NewClient(cfg.MqttOptions.ToClientConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt client: %w", err)
		}
		a.mqttClient = client
		a.broker = statechannel.NewBroker(client, cfg.MqttOptions.TopicRoot)
		a.channel = a.broker

	case ModeDevice:
		ip := mgr.Current().DeviceIP
		if ip == "" {
			ip = cfg.DeviceOptions.IP
		}
		mem := statechannel.NewMemory()
		a.channel = mem
		a.device = device.NewClient(ip, cfg.DeviceOptions.Timeout)
		a.poll = &poller{
			client:   a.device,
			channel:  mem,
			deviceID: cfg.DeviceID,
			interval: cfg.DeviceOptions.PollInterval,
		}

	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	a.registry = registry.New(a.channel, nil)
	for _, name := range cfg.Mocks {
		a.registry.RegisterMock(name)
	}

	a.monitor = liveness.New(liveness.Config{
		Channel:  a.channel,
		DeviceID: cfg.DeviceID,
	})
	a.schedules = schedule.NewStore(a.channel)

	if cfg.Mode == ModeDevice {
		a.dispatcher = dispatch.NewDeviceDispatcher(a.device, a.registry)
	} else {
		a.dispatcher = dispatch.NewStoreDispatcher(a.channel, a.registry, a.schedules)
	}

	a.http = NewServer(cfg.HttpOptions, a)
	return a, nil
}
