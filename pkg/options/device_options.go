package options

import (
	"net"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*DeviceOptions)(nil)

// DeviceOptions configures direct access to a LAN lighting device.
type DeviceOptions struct {
	// IP is the device's IPv4 address. The device serves plain HTTP on
	// port 80, so only the address is configured.
	IP string `json:"ip" mapstructure:"ip"`

	// Timeout bounds every request to the device.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// PollInterval is how often the agent refreshes /lamp/status in
	// direct-device mode.
	PollInterval time.Duration `json:"poll-interval" mapstructure:"poll-interval"`
}

// NewDeviceOptions creates a DeviceOptions object with default parameters.
func NewDeviceOptions() *DeviceOptions {
	return &DeviceOptions{
		IP:           "192.168.117.1",
		Timeout:      5 * time.Second,
		PollInterval: 10 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *DeviceOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if net.ParseIP(o.IP) == nil {
		errors = append(errors, &net.ParseError{Type: "IP address", Text: o.IP})
	}

	return errors
}

// AddFlags adds flags for DeviceOptions to the specified FlagSet.
func (o *DeviceOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.IP, "device.ip", o.IP, "IPv4 address of the lighting device.")
	fs.DurationVar(&o.Timeout, "device.timeout", o.Timeout, "Timeout for device HTTP requests.")
	fs.DurationVar(&o.PollInterval, "device.poll-interval", o.PollInterval, "Interval between /lamp/status polls in device mode.")
}
