package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/luxsync-io/luxsync/pkg/lamp"
)

const defaultTimeout = 5 * time.Second

// Client talks to a lamp controller on the local network. Every endpoint
// answers JSON; failures carry a non-2xx status and an {error} body whose
// message is surfaced verbatim to the caller.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a client for the controller at ip (host or host:port).
func NewClient(ip string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: "http://" + ip,
		client:  &http.Client{Timeout: timeout},
	}
}

// Status fetches the full lamp bank state.
func (c *Client) Status(ctx context.Context) (*lamp.StatusResponse, error) {
	var out lamp.StatusResponse
	if err := c.get(ctx, "/lamp/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// On turns one lamp on.
func (c *Client) On(ctx context.Context, id int) error {
	return c.post(ctx, "/lamp/on", map[string]int{"id": id})
}

// Off turns one lamp off.
func (c *Client) Off(ctx context.Context, id int) error {
	return c.post(ctx, "/lamp/off", map[string]int{"id": id})
}

// SetColor sets one lamp's color.
func (c *Client) SetColor(ctx context.Context, id int, color lamp.RGB) error {
	return c.post(ctx, "/lamp/color", map[string]any{"id": id, "color": color})
}

// SetRunning enables or disables the running-light animation.
func (c *Client) SetRunning(ctx context.Context, enable bool, color lamp.RGB, interval time.Duration) error {
	return c.post(ctx, "/lamp/running", map[string]any{
		"enable":   enable,
		"color":    color,
		"interval": interval.Milliseconds(),
	})
}

// AllOn turns the whole bank on in one call.
func (c *Client) AllOn(ctx context.Context) error {
	return c.get(ctx, "/lamp/all/on", nil)
}

// AllOff turns the whole bank off in one call.
func (c *Client) AllOff(ctx context.Context) error {
	return c.get(ctx, "/lamp/all/off", nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("device unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var device lamp.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&device) == nil && device.Error != "" {
			return fmt.Errorf("%s", device.Error)
		}
		return fmt.Errorf("device returned %s", resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode device response: %w", err)
		}
	}
	return nil
}
