package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/luxsync-io/luxsync/internal/pkg/metrics"
	"github.com/luxsync-io/luxsync/internal/statechannel"
	"github.com/luxsync-io/luxsync/pkg/lamp"
	"github.com/luxsync-io/luxsync/pkg/mqtt/topic"
)

// ErrIncomplete rejects a save with only one of the two times set. The
// check runs before any store traffic.
var ErrIncomplete = errors.New("schedule requires both on and off times")

// Store syncs per-lamp on/off schedules against the schedule collection.
// Absence of the record is the only representation of "no schedule"; a
// record with both fields empty is treated as absent on read.
type Store struct {
	channel statechannel.Channel
}

func NewStore(ch statechannel.Channel) *Store {
	return &Store{channel: ch}
}

func path(lampID int) string {
	return topic.CollectionSchedules + "/" + strconv.Itoa(lampID)
}

// Save writes the schedule for one lamp. Both times are required
// together; seconds are discarded and each time serializes as zero-padded
// 24-hour HH:mm.
func (s *Store) Save(ctx context.Context, lampID int, on, off time.Time) error {
	if on.IsZero() || off.IsZero() {
		return ErrIncomplete
	}
	sched := lamp.Schedule{
		On:  on.Format("15:04"),
		Off: off.Format("15:04"),
	}
	if err := s.channel.Write(ctx, path(lampID), sched); err != nil {
		return err
	}
	metrics.ScheduleWritesTotal.WithLabelValues("save").Inc()
	return nil
}

// Remove deletes the schedule record entirely.
func (s *Store) Remove(ctx context.Context, lampID int) error {
	if err := s.channel.Delete(ctx, path(lampID)); err != nil {
		return err
	}
	metrics.ScheduleWritesTotal.WithLabelValues("remove").Inc()
	return nil
}

// Get returns the lamp's schedule, or nil when none exists.
func (s *Store) Get(lampID int) (*lamp.Schedule, error) {
	var out *lamp.Schedule
	cancel, err := s.channel.Subscribe(path(lampID), func(raw json.RawMessage) {
		out = decode(raw)
	})
	if err != nil {
		return nil, err
	}
	// The initial value is delivered synchronously during Subscribe, so a
	// one-shot read is subscribe-then-cancel.
	cancel()
	return out, nil
}

// Watch delivers the lamp's schedule on every change, nil when it is
// absent. The first delivery happens before Watch returns.
func (s *Store) Watch(lampID int, fn func(*lamp.Schedule)) (statechannel.CancelFunc, error) {
	return s.channel.Subscribe(path(lampID), func(raw json.RawMessage) {
		fn(decode(raw))
	})
}

func decode(raw json.RawMessage) *lamp.Schedule {
	if raw == nil {
		return nil
	}
	var sched lamp.Schedule
	if err := json.Unmarshal(raw, &sched); err != nil || !sched.Present() {
		return nil
	}
	return &sched
}
