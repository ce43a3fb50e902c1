package liveness

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxsync-io/luxsync/internal/statechannel"
	"github.com/luxsync-io/luxsync/pkg/lamp"
)

// countingChannel records every Write path while delegating to the real
// channel underneath.
type countingChannel struct {
	statechannel.Channel

	mu     sync.Mutex
	writes []string
}

func (c *countingChannel) Write(ctx context.Context, path string, value any) error {
	c.mu.Lock()
	c.writes = append(c.writes, path)
	c.mu.Unlock()
	return c.Channel.Write(ctx, path, value)
}

func (c *countingChannel) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func statusRaw(t *testing.T, online bool, lastSeen string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(lamp.DeviceStatus{Online: online, LastSeen: lastSeen})
	require.NoError(t, err)
	return raw
}

func newTestMonitor(t *testing.T, now time.Time) (*Monitor, *countingChannel) {
	t.Helper()
	ch := &countingChannel{Channel: statechannel.NewMemory()}
	m := New(Config{
		Channel:  ch,
		DeviceID: "esp32_1",
		Now:      func() time.Time { return now },
	})
	return m, ch
}

func TestMonitorStaleDemotionWritesOnce(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	stale := now.Add(-40 * time.Second).Format(time.RFC3339)
	m, ch := newTestMonitor(t, now)
	ctx := context.Background()

	m.onStatus(statusRaw(t, true, stale))
	require.True(t, m.Online())

	m.CheckNow(ctx)
	assert.False(t, m.Online())
	assert.Equal(t, StateOffline, m.State())
	assert.Equal(t, 1, ch.writeCount())

	// Further checks while offline must not write again.
	m.CheckNow(ctx)
	m.CheckNow(ctx)
	assert.Equal(t, 1, ch.writeCount())

	// The demotion preserved the device's own heartbeat timestamp.
	var got lamp.DeviceStatus
	cancel, err := ch.Subscribe("device_status/esp32_1", func(raw json.RawMessage) {
		require.NoError(t, json.Unmarshal(raw, &got))
	})
	require.NoError(t, err)
	defer cancel()
	assert.False(t, got.Online)
	assert.Equal(t, stale, got.LastSeen)
}

func TestMonitorFreshHeartbeatSurvivesCheck(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m, ch := newTestMonitor(t, now)

	m.onStatus(statusRaw(t, true, now.Add(-10*time.Second).Format(time.RFC3339)))
	m.CheckNow(context.Background())

	assert.True(t, m.Online())
	assert.Equal(t, StateOnline, m.State())
	assert.Zero(t, ch.writeCount())
}

func TestMonitorMissingHeartbeatTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m, ch := newTestMonitor(t, now)

	// Claims online but never reported a heartbeat time.
	m.onStatus(statusRaw(t, true, ""))
	m.CheckNow(context.Background())

	assert.False(t, m.Online())
	assert.Equal(t, 1, ch.writeCount())
}

func TestMonitorDeviceReportedOffline(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m, ch := newTestMonitor(t, now)

	m.onStatus(statusRaw(t, false, now.Format(time.RFC3339)))
	assert.False(t, m.Online())

	// A self-reported offline is not a demotion; no write happens, on
	// this or any later check.
	m.CheckNow(context.Background())
	assert.Zero(t, ch.writeCount())
}

func TestMonitorHeartbeatRevivesAfterDemotion(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m, ch := newTestMonitor(t, now)
	ctx := context.Background()

	m.onStatus(statusRaw(t, true, now.Add(-time.Minute).Format(time.RFC3339)))
	m.CheckNow(ctx)
	require.False(t, m.Online())
	require.Equal(t, 1, ch.writeCount())

	m.onStatus(statusRaw(t, true, now.Format(time.RFC3339)))
	assert.True(t, m.Online())

	m.CheckNow(ctx)
	assert.True(t, m.Online())
	assert.Equal(t, 1, ch.writeCount())
}

func TestMonitorAbsentDocument(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m, _ := newTestMonitor(t, now)

	m.onStatus(statusRaw(t, true, now.Format(time.RFC3339)))
	require.True(t, m.Online())

	m.onStatus(nil)
	assert.False(t, m.Online())
	assert.True(t, m.LastSeen().IsZero())
}

func TestMonitorOnChange(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	var flips []bool
	m := New(Config{
		Channel:  statechannel.NewMemory(),
		DeviceID: "esp32_1",
		Now:      func() time.Time { return now },
		OnChange: func(online bool) { flips = append(flips, online) },
	})

	m.onStatus(statusRaw(t, true, now.Format(time.RFC3339)))
	m.onStatus(statusRaw(t, true, now.Format(time.RFC3339))) // no flip
	m.onStatus(statusRaw(t, false, now.Format(time.RFC3339)))

	assert.Equal(t, []bool{true, false}, flips)
}

func TestMonitorRunDeliversInitialStatus(t *testing.T) {
	mem := statechannel.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Now()
	require.NoError(t, mem.Write(ctx, "device_status/esp32_1",
		lamp.DeviceStatus{Online: true, LastSeen: now.Format(time.RFC3339)}))

	m := New(Config{Channel: mem, DeviceID: "esp32_1", CheckInterval: time.Hour})
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	assert.Eventually(t, m.Online, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
