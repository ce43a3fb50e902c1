package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxsync-io/luxsync/internal/registry"
	"github.com/luxsync-io/luxsync/internal/schedule"
	"github.com/luxsync-io/luxsync/internal/statechannel"
)

// recordingChannel records merge requests while delegating to the real
// channel underneath.
type recordingChannel struct {
	statechannel.Channel

	mu     sync.Mutex
	merges []map[string]any
}

func (c *recordingChannel) Merge(ctx context.Context, base string, fields map[string]any) error {
	c.mu.Lock()
	c.merges = append(c.merges, fields)
	c.mu.Unlock()
	return c.Channel.Merge(ctx, base, fields)
}

func (c *recordingChannel) mergeCalls() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.merges
}

func newStoreFixture(t *testing.T, seed map[string]any) (*StoreDispatcher, *registry.Registry, *recordingChannel) {
	t.Helper()
	rec := &recordingChannel{Channel: statechannel.NewMemory()}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if len(seed) > 0 {
		require.NoError(t, rec.Channel.Merge(ctx, "lampu", seed))
	}

	reg := registry.New(rec, nil)
	go func() { _ = reg.Run(ctx) }()
	require.Eventually(t, func() bool {
		return len(reg.Snapshot()) == len(seed)
	}, time.Second, 5*time.Millisecond)

	d := NewStoreDispatcher(rec, reg, schedule.NewStore(rec))
	return d, reg, rec
}

func TestStoreToggleIsIdempotentOverTwoCalls(t *testing.T) {
	d, reg, _ := newStoreFixture(t, map[string]any{"1": true})
	ctx := context.Background()

	require.NoError(t, d.Toggle(ctx, registry.LampRef(1)))
	view, ok := reg.Lamp(1)
	require.True(t, ok)
	assert.False(t, view.IsOn)

	// The second toggle, issued after the first echoed back, restores
	// the original state.
	require.NoError(t, d.Toggle(ctx, registry.LampRef(1)))
	view, _ = reg.Lamp(1)
	assert.True(t, view.IsOn)
}

func TestStoreToggleAllIsOneMerge(t *testing.T) {
	d, reg, rec := newStoreFixture(t, map[string]any{"1": false, "2": true, "3": false})

	require.NoError(t, d.ToggleAll(context.Background(), true))

	merges := rec.mergeCalls()
	// Exactly one merge, covering all three keys together; no observer
	// can see a partial flip.
	require.Len(t, merges, 1)
	assert.Equal(t, map[string]any{"1": true, "2": true, "3": true}, merges[0])

	assert.True(t, reg.Summarize().AllOn)
}

func TestStoreToggleUnknownLamp(t *testing.T) {
	d, _, _ := newStoreFixture(t, map[string]any{"1": true})
	assert.ErrorIs(t, d.Toggle(context.Background(), registry.LampRef(9)), ErrUnknownLamp)
}

func TestStoreToggleMockDevice(t *testing.T) {
	d, reg, _ := newStoreFixture(t, nil)
	ctx := context.Background()

	reg.RegisterMock("desk-strip")
	require.NoError(t, d.Toggle(ctx, registry.MockRef("desk-strip")))
	assert.True(t, reg.Snapshot()[0].IsOn)

	assert.ErrorIs(t, d.Toggle(ctx, registry.MockRef("nope")), ErrUnknownLamp)
}

func TestStoreColorAndRunningNotSupported(t *testing.T) {
	d, _, _ := newStoreFixture(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, d.SetColor(ctx, 1, "#ffffff"), ErrNotSupported)
	assert.ErrorIs(t, d.SetRunning(ctx, true, 0), ErrNotSupported)
}

func TestStoreScheduleVerbs(t *testing.T) {
	d, _, rec := newStoreFixture(t, map[string]any{"1": true})
	ctx := context.Background()
	scheds := schedule.NewStore(rec)

	on, _ := time.Parse("15:04", "07:00")
	off, _ := time.Parse("15:04", "22:30")
	require.NoError(t, d.SetSchedule(ctx, 1, on, off))

	got, err := scheds.Get(1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "07:00", got.On)

	// Incomplete schedules are rejected before any store traffic.
	assert.ErrorIs(t, d.SetSchedule(ctx, 1, on, time.Time{}), schedule.ErrIncomplete)

	require.NoError(t, d.DeleteSchedule(ctx, 1))
	got, err = scheds.Get(1)
	require.NoError(t, err)
	assert.Nil(t, got)
}
