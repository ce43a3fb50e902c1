package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxsync-io/luxsync/internal/statechannel"
	"github.com/luxsync-io/luxsync/pkg/lamp"
)

func clock(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("15:04:05", value)
	require.NoError(t, err)
	return parsed
}

func TestStoreSaveRoundTrip(t *testing.T) {
	mem := statechannel.NewMemory()
	s := NewStore(mem)
	ctx := context.Background()

	// Seconds are discarded, single-digit fields are zero padded.
	require.NoError(t, s.Save(ctx, 3, clock(t, "07:00:41"), clock(t, "22:30:09")))

	got, err := s.Get(3)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, lamp.Schedule{On: "07:00", Off: "22:30"}, *got)

	require.NoError(t, s.Remove(ctx, 3))
	got, err = s.Get(3)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreSaveRequiresBothTimes(t *testing.T) {
	mem := statechannel.NewMemory()
	s := NewStore(mem)
	ctx := context.Background()

	assert.ErrorIs(t, s.Save(ctx, 1, time.Time{}, clock(t, "22:30:00")), ErrIncomplete)
	assert.ErrorIs(t, s.Save(ctx, 1, clock(t, "07:00:00"), time.Time{}), ErrIncomplete)

	// The rejected saves must not have written anything.
	got, err := s.Get(1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreGetTreatsEmptyRecordAsAbsent(t *testing.T) {
	mem := statechannel.NewMemory()
	s := NewStore(mem)

	require.NoError(t, mem.Write(context.Background(), "jadwal/5", lamp.Schedule{}))

	got, err := s.Get(5)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreWatch(t *testing.T) {
	mem := statechannel.NewMemory()
	s := NewStore(mem)
	ctx := context.Background()

	var seen []*lamp.Schedule
	cancel, err := s.Watch(7, func(sched *lamp.Schedule) { seen = append(seen, sched) })
	require.NoError(t, err)
	defer cancel()

	// Initial delivery: no schedule yet.
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])

	require.NoError(t, s.Save(ctx, 7, clock(t, "06:30:00"), clock(t, "23:00:00")))
	require.Len(t, seen, 2)
	require.NotNil(t, seen[1])
	assert.Equal(t, "06:30", seen[1].On)

	require.NoError(t, s.Remove(ctx, 7))
	require.Len(t, seen, 3)
	assert.Nil(t, seen[2])
}
