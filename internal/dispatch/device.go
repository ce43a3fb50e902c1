package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/luxsync-io/luxsync/internal/device"
	"github.com/luxsync-io/luxsync/internal/registry"
	"github.com/luxsync-io/luxsync/pkg/lamp"
)

// DeviceDispatcher drives lamps through the controller's local HTTP API.
// Schedules live in the shared store only, so this mode rejects them.
type DeviceDispatcher struct {
	client   *device.Client
	registry *registry.Registry
}

var _ Dispatcher = (*DeviceDispatcher)(nil)

func NewDeviceDispatcher(c *device.Client, reg *registry.Registry) *DeviceDispatcher {
	return &DeviceDispatcher{client: c, registry: reg}
}

func (d *DeviceDispatcher) Toggle(ctx context.Context, ref registry.DeviceRef) error {
	if ref.Kind() == registry.KindMock {
		return count("toggle", toggleMock(d.registry, ref.MockID()))
	}
	return count("toggle", d.toggleLamp(ctx, ref.LampID()))
}

func (d *DeviceDispatcher) toggleLamp(ctx context.Context, id int) error {
	view, ok := d.registry.Lamp(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownLamp, id)
	}
	if view.IsOn {
		return d.client.Off(ctx, id)
	}
	return d.client.On(ctx, id)
}

func (d *DeviceDispatcher) ToggleAll(ctx context.Context, on bool) error {
	if on {
		return count("toggle_all", d.client.AllOn(ctx))
	}
	return count("toggle_all", d.client.AllOff(ctx))
}

func (d *DeviceDispatcher) SetColor(ctx context.Context, lampID int, hex string) error {
	color, err := lamp.ParseHex(hex)
	if err != nil {
		return count("set_color", err)
	}
	return count("set_color", d.client.SetColor(ctx, lampID, color))
}

// SetRunning derives the animation color before the request goes out:
// the first lit lamp's color, or a random one when every lamp is off.
// The device never picks the default.
func (d *DeviceDispatcher) SetRunning(ctx context.Context, enable bool, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultRunningInterval
	}
	color, ok := d.registry.FirstLitColor()
	if !ok {
		color = lamp.RandomRGB()
	}
	return count("set_running", d.client.SetRunning(ctx, enable, color, interval))
}

func (d *DeviceDispatcher) SetSchedule(ctx context.Context, lampID int, on, off time.Time) error {
	return count("set_schedule", ErrNotSupported)
}

func (d *DeviceDispatcher) DeleteSchedule(ctx context.Context, lampID int) error {
	return count("delete_schedule", ErrNotSupported)
}
