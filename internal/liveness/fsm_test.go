package liveness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiniteStateMachineDemotesOnlyOnExpiry(t *testing.T) {
	ctx := context.Background()
	demotions := 0
	f := NewFiniteStateMachine(func(context.Context) { demotions++ })

	require.NoError(t, f.Event(ctx, EventHeartbeat))
	require.NoError(t, f.Event(ctx, EventCheck))
	require.NoError(t, f.Event(ctx, EventExpired))
	assert.Equal(t, StateOffline, f.Current())
	assert.Equal(t, 1, demotions)

	// Entering offline through the device's own report never demotes.
	require.NoError(t, f.Event(ctx, EventHeartbeat))
	require.NoError(t, f.Event(ctx, EventLost))
	assert.Equal(t, StateOffline, f.Current())
	assert.Equal(t, 1, demotions)

	// A check while offline is an invalid event, not a state change.
	assert.Error(t, f.Event(ctx, EventCheck))
	assert.Equal(t, 1, demotions)
}

func TestFiniteStateMachineBelieves(t *testing.T) {
	ctx := context.Background()
	f := NewFiniteStateMachine(nil)

	assert.False(t, f.Believes())

	require.NoError(t, f.Event(ctx, EventHeartbeat))
	assert.True(t, f.Believes())

	// An open staleness evaluation is not yet evidence of absence.
	require.NoError(t, f.Event(ctx, EventCheck))
	assert.True(t, f.Believes())

	require.NoError(t, f.Event(ctx, EventFresh))
	assert.True(t, f.Believes())
}
