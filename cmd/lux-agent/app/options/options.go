package options

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/luxsync-io/luxsync/internal/agent"
	"github.com/luxsync-io/luxsync/pkg/log"
	"github.com/luxsync-io/luxsync/pkg/options"
)

// AgentOptions aggregates every flag group of the lux-agent daemon.
type AgentOptions struct {
	Mode         string
	DeviceID     string
	Mocks        []string
	SettingsFile string

	MqttOptions    *options.MqttOptions
	HttpOptions    *options.HttpOptions
	DeviceOptions  *options.DeviceOptions
	WeatherOptions *options.WeatherOptions
	Log            *log.Options
}

func NewAgentOptions() *AgentOptions {
	return &AgentOptions{
		Mode:         string(agent.ModeStore),
		DeviceID:     "esp32_1",
		SettingsFile: "luxsync-settings.yaml",

		MqttOptions:    options.NewMqttOptions(),
		HttpOptions:    options.NewHttpOptions(),
		DeviceOptions:  options.NewDeviceOptions(),
		WeatherOptions: options.NewWeatherOptions(),
		Log:            log.NewOptions(),
	}
}

func (o *AgentOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Mode, "mode", o.Mode, "Deployment mode: store (shared MQTT store) or device (direct HTTP).")
	fs.StringVar(&o.DeviceID, "device-id", o.DeviceID, "Identifier of the physical device to monitor.")
	fs.StringSliceVar(&o.Mocks, "mock-device", o.Mocks, "Names of demo devices to register locally. Repeatable.")
	fs.StringVar(&o.SettingsFile, "settings-file", o.SettingsFile, "Path of the persisted user settings file.")

	o.MqttOptions.AddFlags(fs)
	o.HttpOptions.AddFlags(fs)
	o.DeviceOptions.AddFlags(fs)
	o.WeatherOptions.AddFlags(fs)
	o.Log.AddFlags(fs)
}

func (o *AgentOptions) Validate() error {
	errs := []error{}

	switch agent.Mode(o.Mode) {
	case agent.ModeStore:
		errs = append(errs, o.MqttOptions.Validate()...)
	case agent.ModeDevice:
		errs = append(errs, o.DeviceOptions.Validate()...)
	default:
		errs = append(errs, fmt.Errorf("mode must be store or device, got %q", o.Mode))
	}
	if o.DeviceID == "" {
		errs = append(errs, fmt.Errorf("device-id is required"))
	}

	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.WeatherOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errors.Join(errs...)
}

func (o *AgentOptions) Config() (*agent.Config, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &agent.Config{
		Mode:         agent.Mode(o.Mode),
		DeviceID:     o.DeviceID,
		Mocks:        o.Mocks,
		SettingsFile: o.SettingsFile,

		MqttOptions:    o.MqttOptions,
		HttpOptions:    o.HttpOptions,
		DeviceOptions:  o.DeviceOptions,
		WeatherOptions: o.WeatherOptions,
	}, nil
}
