package liveness

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/luxsync-io/luxsync/internal/pkg/metrics"
	"github.com/luxsync-io/luxsync/internal/statechannel"
	"github.com/luxsync-io/luxsync/pkg/lamp"
	"github.com/luxsync-io/luxsync/pkg/log"
	"github.com/luxsync-io/luxsync/pkg/mqtt/topic"
)

const (
	DefaultCheckInterval = 5 * time.Second
	DefaultStaleTimeout  = 30 * time.Second
)

// Config carries the collaborators and tunables of a Monitor. Channel and
// DeviceID are required; everything else has a default.
type Config struct {
	Channel  statechannel.Channel
	DeviceID string

	// CheckInterval is the period of the staleness timer.
	CheckInterval time.Duration
	// StaleTimeout is the maximum heartbeat age before a device that
	// claims to be online is demoted.
	StaleTimeout time.Duration

	// Now is the clock used for heartbeat age. Tests inject a fake one.
	Now func() time.Time

	// OnChange is invoked after every believed-liveness flip, with the
	// new value. Optional.
	OnChange func(online bool)
}

// Monitor tracks one device's reported status and demotes it to offline
// when its heartbeat goes stale. The demotion is edge triggered: crossing
// the staleness boundary produces exactly one store write, and further
// checks while offline produce none.
type Monitor struct {
	channel  statechannel.Channel
	deviceID string
	path     string
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	onChange func(online bool)

	mu      sync.Mutex
	machine *FiniteStateMachine
	status  lamp.DeviceStatus
	// expired is set by the machine's EventExpired callback while mu is
	// held; the store write itself happens after mu is released, because
	// the channel delivers the echo back into onStatus synchronously.
	expired bool
}

func New(cfg Config) *Monitor {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = DefaultStaleTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &Monitor{
		channel:  cfg.Channel,
		deviceID: cfg.DeviceID,
		path:     topic.CollectionDeviceStatus + "/" + cfg.DeviceID,
		interval: cfg.CheckInterval,
		timeout:  cfg.StaleTimeout,
		now:      cfg.Now,
		onChange: cfg.OnChange,
	}
	m.machine = NewFiniteStateMachine(func(context.Context) { m.expired = true })
	return m
}

// Run subscribes to the device status document and drives the staleness
// timer until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	cancel, err := m.channel.Subscribe(m.path, m.onStatus)
	if err != nil {
		return err
	}
	defer cancel()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// Online reports the believed liveness: the device's own claim, overridden
// by a demotion once its heartbeat went stale.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.Believes()
}

// LastSeen returns the device's last reported heartbeat time, zero when
// none has been seen.
func (m *Monitor) LastSeen() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.LastSeenTime()
}

// State exposes the raw machine state, mainly for diagnostics.
func (m *Monitor) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.Current()
}

// CheckNow evaluates staleness immediately from the already-synced status
// document. It never reads from the store.
func (m *Monitor) CheckNow(ctx context.Context) {
	m.mu.Lock()

	before := m.machine.Believes()
	if err := m.machine.Event(ctx, EventCheck); err != nil {
		// Not in the online state; nothing to evaluate.
		m.mu.Unlock()
		return
	}

	lastSeen := m.status.LastSeenTime()
	if lastSeen.IsZero() || m.now().Sub(lastSeen) > m.timeout {
		_ = m.machine.Event(ctx, EventExpired)
	} else {
		_ = m.machine.Event(ctx, EventFresh)
	}

	demote := m.expired
	m.expired = false
	keep := m.status.LastSeen
	flipped := m.settle(before)
	m.mu.Unlock()

	if demote {
		m.demote(ctx, keep)
	}
	m.announce(flipped)
}

// onStatus folds a status document update into the machine.
func (m *Monitor) onStatus(raw json.RawMessage) {
	m.mu.Lock()

	before := m.machine.Believes()

	var st lamp.DeviceStatus
	switch {
	case raw == nil || json.Unmarshal(raw, &st) != nil:
		// Document absent or malformed: the value is unknown, so the
		// device cannot be believed online.
		m.status = lamp.DeviceStatus{}
		m.fold(EventLost)
	case st.Online:
		m.status = st
		m.fold(EventHeartbeat)
	default:
		m.status = st
		m.fold(EventLost)
	}

	flipped := m.settle(before)
	m.mu.Unlock()
	m.announce(flipped)
}

// fold fires ev and swallows invalid-transition and no-op errors; a
// heartbeat while already online is not an anomaly.
func (m *Monitor) fold(ev string) {
	_ = m.machine.Event(context.Background(), ev)
}

// settle updates the gauge and reports whether the believed liveness
// flipped. Caller holds the lock.
func (m *Monitor) settle(before bool) (flipped bool) {
	after := m.machine.Believes()
	if after {
		metrics.DeviceOnline.WithLabelValues(m.deviceID).Set(1)
	} else {
		metrics.DeviceOnline.WithLabelValues(m.deviceID).Set(0)
	}
	return before != after
}

// announce fires OnChange outside the lock so the callback may call back
// into the monitor.
func (m *Monitor) announce(flipped bool) {
	if flipped && m.onChange != nil {
		m.onChange(m.Online())
	}
}

// demote writes the device offline, preserving the last reported
// heartbeat timestamp.
func (m *Monitor) demote(ctx context.Context, lastSeen string) {
	metrics.LivenessDemotionsTotal.WithLabelValues(m.deviceID).Inc()
	status := lamp.DeviceStatus{Online: false, LastSeen: lastSeen}
	if err := m.channel.Write(ctx, m.path, status); err != nil {
		log.Warn("failed to demote stale device", "device", m.deviceID, "error", err)
	}
}
