package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/luxsync-io/luxsync/internal/pkg/metrics"
	"github.com/luxsync-io/luxsync/internal/statechannel"
	"github.com/luxsync-io/luxsync/pkg/lamp"
	"github.com/luxsync-io/luxsync/pkg/log"
	"github.com/luxsync-io/luxsync/pkg/mqtt/topic"
)

// PerLampWatts is the estimated draw of one lit lamp.
const PerLampWatts = 10

// kwhPerActiveLamp is the estimated daily energy of one lit lamp.
const kwhPerActiveLamp = 0.06

// rooms is the fixed label pool, assigned round-robin by list position.
var rooms = []string{"Living room", "Bedroom", "Bathroom", "Kitchen"}

// LampView is the presentation join of one device: lamp state from the
// store, schedule presence from the schedule collection, and a derived
// display identity. Views are rebuilt from scratch on every source update
// and never persisted.
type LampView struct {
	Ref         DeviceRef
	Name        string
	Room        string
	IsOn        bool
	Color       *lamp.RGB
	HasSchedule bool
}

// Summary aggregates one snapshot of the view list.
type Summary struct {
	Total     int
	Active    int
	AllOn     bool
	PowerDraw int // watts
	Energy    string
}

type lampState struct {
	isOn  bool
	color *lamp.RGB
}

// Registry reconciles the lamp and schedule collections into an ordered
// view list. The two collections update independently and may interleave
// in any order, so every change on either side triggers a full recompute
// from the latest known value of both.
type Registry struct {
	channel  statechannel.Channel
	onUpdate func([]LampView)

	mu     sync.Mutex
	lamps  map[int]lampState
	scheds map[int]bool
	mocks  map[string]bool
	views  []LampView
}

// New builds a Registry over ch. onUpdate, when non-nil, receives every
// recomputed view list; it runs outside the registry lock and may call
// back in.
func New(ch statechannel.Channel, onUpdate func([]LampView)) *Registry {
	return &Registry{
		channel:  ch,
		onUpdate: onUpdate,
		lamps:    map[int]lampState{},
		scheds:   map[int]bool{},
		mocks:    map[string]bool{},
	}
}

// Run subscribes to both source collections and blocks until ctx is
// cancelled. Both subscriptions deliver their current value immediately,
// so the first view list is available as soon as Run has started.
func (r *Registry) Run(ctx context.Context) error {
	cancelLamps, err := r.channel.Subscribe(topic.CollectionLamps, r.onLamps)
	if err != nil {
		return err
	}
	defer cancelLamps()

	cancelScheds, err := r.channel.Subscribe(topic.CollectionSchedules, r.onSchedules)
	if err != nil {
		return err
	}
	defer cancelScheds()

	<-ctx.Done()
	return nil
}

func (r *Registry) onLamps(raw json.RawMessage) {
	lamps := map[int]lampState{}
	if raw != nil {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(raw, &doc); err != nil {
			log.Warn("malformed lamp collection, keeping previous views", "error", err)
			return
		}
		for key, value := range doc {
			id, err := strconv.Atoi(key)
			if err != nil {
				log.Warn("ignoring non-numeric lamp key", "key", key)
				continue
			}
			isOn, color, err := lamp.UnmarshalValue(value)
			if err != nil {
				log.Warn("ignoring undecodable lamp value", "key", key, "error", err)
				continue
			}
			lamps[id] = lampState{isOn: isOn, color: color}
		}
	}

	r.mu.Lock()
	r.lamps = lamps
	views := r.recompute()
	r.mu.Unlock()
	r.publish(views)
}

func (r *Registry) onSchedules(raw json.RawMessage) {
	scheds := map[int]bool{}
	if raw != nil {
		var doc map[string]lamp.Schedule
		if err := json.Unmarshal(raw, &doc); err != nil {
			log.Warn("malformed schedule collection, keeping previous views", "error", err)
			return
		}
		for key, s := range doc {
			id, err := strconv.Atoi(key)
			if err != nil {
				continue
			}
			scheds[id] = s.Present()
		}
	}

	r.mu.Lock()
	r.scheds = scheds
	views := r.recompute()
	r.mu.Unlock()
	r.publish(views)
}

// recompute rebuilds the view list: lamps in ascending key order, then
// mock devices in name order, with room labels round-robin over the
// combined positions. Caller holds the lock.
func (r *Registry) recompute() []LampView {
	ids := make([]int, 0, len(r.lamps))
	for id := range r.lamps {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	names := make([]string, 0, len(r.mocks))
	for name := range r.mocks {
		names = append(names, name)
	}
	sort.Strings(names)

	views := make([]LampView, 0, len(ids)+len(names))
	for _, id := range ids {
		st := r.lamps[id]
		views = append(views, LampView{
			Ref:         LampRef(id),
			Name:        fmt.Sprintf("Light %d", id),
			Room:        rooms[len(views)%len(rooms)],
			IsOn:        st.isOn,
			Color:       st.color,
			HasSchedule: r.scheds[id],
		})
	}
	for _, name := range names {
		views = append(views, LampView{
			Ref:  MockRef(name),
			Name: name,
			Room: rooms[len(views)%len(rooms)],
			IsOn: r.mocks[name],
		})
	}

	r.views = views
	metrics.SyncCyclesTotal.Inc()
	return views
}

func (r *Registry) publish(views []LampView) {
	if r.onUpdate != nil {
		r.onUpdate(views)
	}
}

// Snapshot returns a copy of the latest view list.
func (r *Registry) Snapshot() []LampView {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LampView, len(r.views))
	copy(out, r.views)
	return out
}

// Lamp returns the view for one store-backed lamp.
func (r *Registry) Lamp(id int) (LampView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.views {
		if v.Ref.Kind() == KindLamp && v.Ref.LampID() == id {
			return v, true
		}
	}
	return LampView{}, false
}

// LampIDs returns the known store-backed lamp keys in ascending order.
func (r *Registry) LampIDs() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.lamps))
	for id := range r.lamps {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// FirstLitColor returns the color of the first lit lamp in view order.
// The second result is false when no lamp is lit or the lit lamps carry
// no color.
func (r *Registry) FirstLitColor() (lamp.RGB, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.views {
		if v.Ref.Kind() == KindLamp && v.IsOn && v.Color != nil {
			return *v.Color, true
		}
	}
	return lamp.RGB{}, false
}

// Summarize aggregates the latest view list. Only store-backed lamps
// count toward power figures; AllOn is false for an empty list.
func (r *Registry) Summarize() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total, active int
	for _, v := range r.views {
		if v.Ref.Kind() != KindLamp {
			continue
		}
		total++
		if v.IsOn {
			active++
		}
	}
	return Summary{
		Total:     total,
		Active:    active,
		AllOn:     total > 0 && active == total,
		PowerDraw: active * PerLampWatts,
		Energy:    fmt.Sprintf("%.2f kWh", float64(active)*kwhPerActiveLamp),
	}
}

// RegisterMock adds a named demo device to the view list. Mock devices
// live only in this process.
func (r *Registry) RegisterMock(id string) {
	r.mu.Lock()
	if _, ok := r.mocks[id]; !ok {
		r.mocks[id] = false
	}
	views := r.recompute()
	r.mu.Unlock()
	r.publish(views)
}

// ToggleMock flips a mock device's local state. It reports false when no
// such device is registered.
func (r *Registry) ToggleMock(id string) bool {
	r.mu.Lock()
	on, ok := r.mocks[id]
	if ok {
		r.mocks[id] = !on
	}
	views := r.recompute()
	r.mu.Unlock()
	if !ok {
		return false
	}
	r.publish(views)
	return true
}
