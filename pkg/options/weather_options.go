package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*WeatherOptions)(nil)

// WeatherOptions configures the third-party weather lookup.
type WeatherOptions struct {
	// BaseURL of an OpenWeatherMap-compatible API.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey for the weather service. The lookup is skipped when empty.
	APIKey string `json:"api-key" mapstructure:"api-key"`

	// City in "name,countrycode" form, e.g. "Binjai,id".
	City string `json:"city" mapstructure:"city"`

	// RefreshInterval between lookups.
	RefreshInterval time.Duration `json:"refresh-interval" mapstructure:"refresh-interval"`
}

// NewWeatherOptions creates a WeatherOptions object with default parameters.
func NewWeatherOptions() *WeatherOptions {
	return &WeatherOptions{
		BaseURL:         "https://api.openweathermap.org/data/2.5",
		City:            "Binjai,id",
		RefreshInterval: 30 * time.Minute,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *WeatherOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.City == "" {
		errs = append(errs, errors.New("weather city is required"))
	}

	return errs
}

// AddFlags adds flags for WeatherOptions to the specified FlagSet.
func (o *WeatherOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BaseURL, "weather.base-url", o.BaseURL, "Base URL of the weather API.")
	fs.StringVar(&o.APIKey, "weather.api-key", o.APIKey, "API key for the weather service.")
	fs.StringVar(&o.City, "weather.city", o.City, "City to look weather up for, as 'name,countrycode'.")
	fs.DurationVar(&o.RefreshInterval, "weather.refresh-interval", o.RefreshInterval, "Interval between weather refreshes.")
}
