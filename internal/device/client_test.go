package device

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxsync-io/luxsync/internal/device/simulator"
	"github.com/luxsync-io/luxsync/pkg/lamp"
)

func newTestClient(t *testing.T, lamps int) *Client {
	t.Helper()
	srv := httptest.NewServer(simulator.NewServer("", simulator.NewBank(lamps)).Handler())
	t.Cleanup(srv.Close)
	return NewClient(strings.TrimPrefix(srv.URL, "http://"), time.Second)
}

func TestClientStatusRoundTrip(t *testing.T) {
	c := newTestClient(t, 3)
	ctx := context.Background()

	require.NoError(t, c.On(ctx, 2))

	status, err := c.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status.Lamps, 3)
	assert.Equal(t, lamp.StateOff, status.Lamps[0].Status)
	assert.Equal(t, lamp.StateOn, status.Lamps[1].Status)
	assert.False(t, status.RunningLedActive)

	require.NoError(t, c.Off(ctx, 2))
	status, err = c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, lamp.StateOff, status.Lamps[1].Status)
}

func TestClientAllOnOff(t *testing.T) {
	c := newTestClient(t, 4)
	ctx := context.Background()

	require.NoError(t, c.AllOn(ctx))
	status, err := c.Status(ctx)
	require.NoError(t, err)
	for _, l := range status.Lamps {
		assert.Equal(t, lamp.StateOn, l.Status)
	}

	require.NoError(t, c.AllOff(ctx))
	status, err = c.Status(ctx)
	require.NoError(t, err)
	for _, l := range status.Lamps {
		assert.Equal(t, lamp.StateOff, l.Status)
	}
}

func TestClientSetColor(t *testing.T) {
	c := newTestClient(t, 2)
	ctx := context.Background()

	want := lamp.RGB{R: 10, G: 20, B: 30}
	require.NoError(t, c.SetColor(ctx, 1, want))

	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, status.Lamps[0].CurrentColor)
}

func TestClientSetRunning(t *testing.T) {
	c := newTestClient(t, 2)
	ctx := context.Background()

	require.NoError(t, c.SetRunning(ctx, true, lamp.RGB{R: 1, G: 2, B: 3}, 200*time.Millisecond))

	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.RunningLedActive)

	require.NoError(t, c.SetRunning(ctx, false, lamp.RGB{}, 0))
	status, err = c.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.RunningLedActive)
}

func TestClientSurfacesDeviceErrorVerbatim(t *testing.T) {
	c := newTestClient(t, 2)

	err := c.On(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, "unknown lamp id 99", err.Error())

	err = c.SetRunning(context.Background(), true, lamp.RGB{}, 0)
	require.Error(t, err)
	assert.Equal(t, "interval must be positive", err.Error())
}

func TestClientUnreachableDevice(t *testing.T) {
	srv := httptest.NewServer(simulator.NewServer("", simulator.NewBank(1)).Handler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	c := NewClient(addr, 200*time.Millisecond)
	_, err := c.Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device unreachable")
}
