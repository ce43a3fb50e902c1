package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/luxsync-io/luxsync/internal/registry"
	"github.com/luxsync-io/luxsync/internal/schedule"
	"github.com/luxsync-io/luxsync/internal/statechannel"
	"github.com/luxsync-io/luxsync/pkg/mqtt/topic"
)

// StoreDispatcher drives lamps through the shared remote store. Lamp
// values in this mode are plain booleans; the store echoes every write
// back through the registry's subscription.
type StoreDispatcher struct {
	channel   statechannel.Channel
	registry  *registry.Registry
	schedules *schedule.Store
}

var _ Dispatcher = (*StoreDispatcher)(nil)

func NewStoreDispatcher(ch statechannel.Channel, reg *registry.Registry, scheds *schedule.Store) *StoreDispatcher {
	return &StoreDispatcher{channel: ch, registry: reg, schedules: scheds}
}

func (d *StoreDispatcher) Toggle(ctx context.Context, ref registry.DeviceRef) error {
	if ref.Kind() == registry.KindMock {
		return count("toggle", toggleMock(d.registry, ref.MockID()))
	}
	return count("toggle", d.toggleLamp(ctx, ref.LampID()))
}

func (d *StoreDispatcher) toggleLamp(ctx context.Context, id int) error {
	view, ok := d.registry.Lamp(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownLamp, id)
	}
	path := topic.CollectionLamps + "/" + strconv.Itoa(id)
	return d.channel.Write(ctx, path, !view.IsOn)
}

// ToggleAll writes every known lamp to the same value in one merge, so
// no observer ever sees a partial flip.
func (d *StoreDispatcher) ToggleAll(ctx context.Context, on bool) error {
	ids := d.registry.LampIDs()
	if len(ids) == 0 {
		return count("toggle_all", nil)
	}
	fields := make(map[string]any, len(ids))
	for _, id := range ids {
		fields[strconv.Itoa(id)] = on
	}
	return count("toggle_all", d.channel.Merge(ctx, topic.CollectionLamps, fields))
}

func (d *StoreDispatcher) SetColor(ctx context.Context, lampID int, hex string) error {
	return count("set_color", ErrNotSupported)
}

func (d *StoreDispatcher) SetRunning(ctx context.Context, enable bool, interval time.Duration) error {
	return count("set_running", ErrNotSupported)
}

func (d *StoreDispatcher) SetSchedule(ctx context.Context, lampID int, on, off time.Time) error {
	return count("set_schedule", d.schedules.Save(ctx, lampID, on, off))
}

func (d *StoreDispatcher) DeleteSchedule(ctx context.Context, lampID int) error {
	return count("delete_schedule", d.schedules.Remove(ctx, lampID))
}
