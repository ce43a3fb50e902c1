package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxsync-io/luxsync/internal/device"
	"github.com/luxsync-io/luxsync/internal/device/simulator"
	"github.com/luxsync-io/luxsync/internal/registry"
	"github.com/luxsync-io/luxsync/internal/statechannel"
	"github.com/luxsync-io/luxsync/pkg/lamp"
)

func newDeviceRegistry(t *testing.T, seed map[string]any) (*registry.Registry, statechannel.Channel) {
	t.Helper()
	mem := statechannel.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if len(seed) > 0 {
		require.NoError(t, mem.Merge(ctx, "lampu", seed))
	}

	reg := registry.New(mem, nil)
	go func() { _ = reg.Run(ctx) }()
	require.Eventually(t, func() bool {
		return len(reg.Snapshot()) == len(seed)
	}, time.Second, 5*time.Millisecond)
	return reg, mem
}

func newSimClient(t *testing.T, lamps int) (*device.Client, *simulator.Bank) {
	t.Helper()
	bank := simulator.NewBank(lamps)
	srv := httptest.NewServer(simulator.NewServer("", bank).Handler())
	t.Cleanup(srv.Close)
	return device.NewClient(strings.TrimPrefix(srv.URL, "http://"), time.Second), bank
}

func TestDeviceToggleFollowsKnownState(t *testing.T) {
	client, bank := newSimClient(t, 2)
	reg, mem := newDeviceRegistry(t, map[string]any{"1": false, "2": false})
	d := NewDeviceDispatcher(client, reg)
	ctx := context.Background()

	require.NoError(t, d.Toggle(ctx, registry.LampRef(1)))
	assert.Equal(t, lamp.StateOn, bank.Status().Lamps[0].Status)

	// The poller mirrors the device state back into the channel; only
	// then does a second toggle see the lamp as on.
	require.NoError(t, mem.Write(ctx, "lampu/1", true))
	require.NoError(t, d.Toggle(ctx, registry.LampRef(1)))
	assert.Equal(t, lamp.StateOff, bank.Status().Lamps[0].Status)
}

func TestDeviceToggleAll(t *testing.T) {
	client, bank := newSimClient(t, 3)
	reg, _ := newDeviceRegistry(t, map[string]any{"1": false, "2": false, "3": false})
	d := NewDeviceDispatcher(client, reg)

	require.NoError(t, d.ToggleAll(context.Background(), true))
	for _, l := range bank.Status().Lamps {
		assert.Equal(t, lamp.StateOn, l.Status)
	}
}

func TestDeviceSetColor(t *testing.T) {
	client, bank := newSimClient(t, 2)
	reg, _ := newDeviceRegistry(t, map[string]any{"1": true, "2": false})
	d := NewDeviceDispatcher(client, reg)
	ctx := context.Background()

	require.NoError(t, d.SetColor(ctx, 1, "#0a141e"))
	assert.Equal(t, lamp.RGB{R: 10, G: 20, B: 30}, bank.Status().Lamps[0].CurrentColor)

	// Bad hex is rejected before any request goes out.
	assert.Error(t, d.SetColor(ctx, 1, "not-a-color"))
}

type runningRequest struct {
	Enable   bool     `json:"enable"`
	Color    lamp.RGB `json:"color"`
	Interval int      `json:"interval"`
}

func newRunningCapture(t *testing.T) (*device.Client, *runningRequest) {
	t.Helper()
	captured := &runningRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/lamp/running", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return device.NewClient(strings.TrimPrefix(srv.URL, "http://"), time.Second), captured
}

func TestDeviceRunningPropagatesLitLampColor(t *testing.T) {
	client, captured := newRunningCapture(t)
	reg, _ := newDeviceRegistry(t, map[string]any{
		"1": false,
		"2": map[string]any{"status": "ON", "currentColor": map[string]int{"r": 10, "g": 20, "b": 30}},
	})
	d := NewDeviceDispatcher(client, reg)

	require.NoError(t, d.SetRunning(context.Background(), true, 0))
	assert.True(t, captured.Enable)
	assert.Equal(t, lamp.RGB{R: 10, G: 20, B: 30}, captured.Color)
	assert.Equal(t, 200, captured.Interval)
}

func TestDeviceRunningFallsBackToRandomColor(t *testing.T) {
	client, captured := newRunningCapture(t)
	reg, _ := newDeviceRegistry(t, map[string]any{"1": false, "2": false})
	d := NewDeviceDispatcher(client, reg)

	require.NoError(t, d.SetRunning(context.Background(), true, 500*time.Millisecond))
	assert.True(t, captured.Enable)
	assert.Equal(t, 500, captured.Interval)
}

func TestDeviceSchedulesNotSupported(t *testing.T) {
	client, _ := newSimClient(t, 1)
	reg, _ := newDeviceRegistry(t, nil)
	d := NewDeviceDispatcher(client, reg)
	ctx := context.Background()

	assert.ErrorIs(t, d.SetSchedule(ctx, 1, time.Now(), time.Now()), ErrNotSupported)
	assert.ErrorIs(t, d.DeleteSchedule(ctx, 1), ErrNotSupported)
}
