package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/luxsync-io/luxsync/pkg/log"
	"github.com/luxsync-io/luxsync/pkg/options"
)

// Report is the display-ready weather summary.
type Report struct {
	Temperature string // "28° C"
	Condition   string
	Humidity    int  // percent
	Wind        float64
	Location    string
}

// Fallback is served whenever the lookup fails or no API key is
// configured. The UI always has something to show.
var Fallback = Report{
	Temperature: "28° C",
	Condition:   "Sunny",
	Humidity:    70,
	Wind:        3.5,
	Location:    "Binjai, ID",
}

// apiResponse is the subset of the OpenWeatherMap current-weather payload
// this client reads.
type apiResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

// Client looks up current weather by city name against an
// OpenWeatherMap-compatible API and caches the latest report.
type Client struct {
	opts   *options.WeatherOptions
	client *http.Client

	mu     sync.Mutex
	latest Report
}

func NewClient(opts *options.WeatherOptions) *Client {
	return &Client{
		opts:   opts,
		client: &http.Client{Timeout: 10 * time.Second},
		latest: Fallback,
	}
}

// Latest returns the most recent report, the fallback until a lookup has
// succeeded.
func (c *Client) Latest() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Refresh performs one lookup and caches the result. On any failure the
// previous report stays and the fallback fills the gap; weather is never
// an error the rest of the system has to handle.
func (c *Client) Refresh(ctx context.Context) Report {
	report, err := c.fetch(ctx)
	if err != nil {
		log.Warn("weather lookup failed, serving fallback", "city", c.opts.City, "error", err)
		return c.Latest()
	}

	c.mu.Lock()
	c.latest = report
	c.mu.Unlock()
	return report
}

// Run refreshes on a timer until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	interval := c.opts.RefreshInterval
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	c.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

func (c *Client) fetch(ctx context.Context) (Report, error) {
	if c.opts.APIKey == "" {
		return Report{}, fmt.Errorf("no API key configured")
	}

	query := url.Values{}
	query.Set("q", c.opts.City)
	query.Set("appid", c.opts.APIKey)
	query.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"/weather?"+query.Encode(), nil)
	if err != nil {
		return Report{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Report{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("weather API returned %s", resp.Status)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Report{}, err
	}

	condition := Fallback.Condition
	if len(body.Weather) > 0 {
		condition = body.Weather[0].Main
	}
	location := body.Name
	if body.Sys.Country != "" {
		location += ", " + body.Sys.Country
	}

	return Report{
		Temperature: fmt.Sprintf("%.0f° C", body.Main.Temp),
		Condition:   condition,
		Humidity:    body.Main.Humidity,
		Wind:        body.Wind.Speed,
		Location:    location,
	}, nil
}
