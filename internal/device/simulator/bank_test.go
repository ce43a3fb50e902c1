package simulator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxsync-io/luxsync/internal/statechannel"
	"github.com/luxsync-io/luxsync/pkg/lamp"
)

func TestBankMirrorsIntoChannel(t *testing.T) {
	mem := statechannel.NewMemory()
	ctx := context.Background()
	bank := NewBank(3)

	var last map[string]bool
	cancel, err := mem.Subscribe("lampu", func(raw json.RawMessage) {
		last = nil
		if raw != nil {
			require.NoError(t, json.Unmarshal(raw, &last))
		}
	})
	require.NoError(t, err)
	defer cancel()

	// Attaching the mirror seeds the whole collection at once.
	require.NoError(t, bank.Mirror(ctx, mem))
	assert.Equal(t, map[string]bool{"1": false, "2": false, "3": false}, last)

	require.NoError(t, bank.Switch(ctx, 2, true))
	assert.Equal(t, map[string]bool{"1": false, "2": true, "3": false}, last)

	bank.SwitchAll(ctx, true)
	assert.Equal(t, map[string]bool{"1": true, "2": true, "3": true}, last)
}

func TestBankRejectsUnknownLamp(t *testing.T) {
	bank := NewBank(1)
	assert.Error(t, bank.Switch(context.Background(), 5, true))
	assert.Error(t, bank.SetColor(5, lamp.RGB{R: 10, G: 10, B: 10}))
}
