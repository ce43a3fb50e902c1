package simulator

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/luxsync-io/luxsync/internal/statechannel"
	"github.com/luxsync-io/luxsync/pkg/lamp"
	"github.com/luxsync-io/luxsync/pkg/log"
	"github.com/luxsync-io/luxsync/pkg/mqtt/topic"
)

// Bank is the in-memory lamp state of a simulated controller. When a
// mirror channel is attached, every mutation is also written to the
// lampu collection, the way a provisioned device keeps the shared store
// current.
type Bank struct {
	mu      sync.Mutex
	lamps   map[int]*lamp.Lamp
	running bool
	mirror  statechannel.Channel
}

// NewBank creates count lamps with ids 1..count, all off and white.
func NewBank(count int) *Bank {
	b := &Bank{lamps: make(map[int]*lamp.Lamp, count)}
	for id := 1; id <= count; id++ {
		b.lamps[id] = &lamp.Lamp{
			ID:    id,
			Color: &lamp.RGB{R: 255, G: 255, B: 255},
		}
	}
	return b
}

// Mirror attaches ch and seeds the lampu collection with the current
// bank state.
func (b *Bank) Mirror(ctx context.Context, ch statechannel.Channel) error {
	b.mu.Lock()
	b.mirror = ch
	fields := make(map[string]any, len(b.lamps))
	for id, l := range b.lamps {
		fields[strconv.Itoa(id)] = l.IsOn
	}
	b.mu.Unlock()
	return ch.Merge(ctx, topic.CollectionLamps, fields)
}

// Status snapshots the bank in the device wire shape.
func (b *Bank) Status() lamp.StatusResponse {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := lamp.StatusResponse{RunningLedActive: b.running}
	for id := 1; ; id++ {
		l, ok := b.lamps[id]
		if !ok {
			break
		}
		state := lamp.StateOff
		if l.IsOn {
			state = lamp.StateOn
		}
		out.Lamps = append(out.Lamps, lamp.WireLamp{
			ID:           id,
			Status:       state,
			CurrentColor: *l.Color,
		})
	}
	return out
}

// Switch sets one lamp's on/off state.
func (b *Bank) Switch(ctx context.Context, id int, on bool) error {
	b.mu.Lock()
	l, ok := b.lamps[id]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("unknown lamp id %d", id)
	}
	l.IsOn = on
	mirror := b.mirror
	b.mu.Unlock()

	b.reflect(ctx, mirror, id, on)
	return nil
}

// SwitchAll sets every lamp's on/off state.
func (b *Bank) SwitchAll(ctx context.Context, on bool) {
	b.mu.Lock()
	fields := make(map[string]any, len(b.lamps))
	for id, l := range b.lamps {
		l.IsOn = on
		fields[strconv.Itoa(id)] = on
	}
	mirror := b.mirror
	b.mu.Unlock()

	if mirror != nil {
		if err := mirror.Merge(ctx, topic.CollectionLamps, fields); err != nil {
			log.Warn("failed to mirror bank state", "error", err)
		}
	}
}

// SetColor sets one lamp's color.
func (b *Bank) SetColor(id int, color lamp.RGB) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.lamps[id]
	if !ok {
		return fmt.Errorf("unknown lamp id %d", id)
	}
	*l.Color = color
	return nil
}

// SetRunning toggles the running-light animation flag.
func (b *Bank) SetRunning(enable bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = enable
}

func (b *Bank) reflect(ctx context.Context, mirror statechannel.Channel, id int, on bool) {
	if mirror == nil {
		return
	}
	path := topic.CollectionLamps + "/" + strconv.Itoa(id)
	if err := mirror.Write(ctx, path, on); err != nil {
		log.Warn("failed to mirror lamp state", "lamp", id, "error", err)
	}
}

// Heartbeat keeps the device status document fresh: online with a
// current lastSeen timestamp, rewritten every interval. Only this side
// ever sets online to true.
type Heartbeat struct {
	Channel  statechannel.Channel
	DeviceID string
	Interval time.Duration
}

func (h *Heartbeat) Run(ctx context.Context) error {
	interval := h.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	path := topic.CollectionDeviceStatus + "/" + h.DeviceID
	beat := func() {
		status := lamp.DeviceStatus{
			Online:   true,
			LastSeen: time.Now().Format(time.RFC3339),
		}
		if err := h.Channel.Write(ctx, path, status); err != nil {
			log.Warn("failed to publish heartbeat", "device", h.DeviceID, "error", err)
		}
	}

	beat()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			beat()
		}
	}
}
