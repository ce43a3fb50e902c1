package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/luxsync-io/luxsync/internal/pkg/metrics"
	"github.com/luxsync-io/luxsync/internal/registry"
)

// ErrNotSupported marks an operation the active deployment mode cannot
// perform. The two modes are mutually exclusive per process; callers keep
// the affordance hidden rather than retrying.
var ErrNotSupported = errors.New("operation not supported in this deployment mode")

// ErrUnknownLamp marks a command addressed to a lamp the registry has
// never seen.
var ErrUnknownLamp = errors.New("unknown lamp")

// DefaultRunningInterval is the running-light step used when the caller
// does not pick one.
const DefaultRunningInterval = 200 * time.Millisecond

// Dispatcher translates user intents into state mutations. Commands are
// fire-and-confirm: no implementation mutates the local view optimistically,
// the view only changes once the subscription delivers the authoritative
// value. Repeating a command is always safe.
type Dispatcher interface {
	// Toggle flips one device, dispatching on the ref's kind.
	Toggle(ctx context.Context, ref registry.DeviceRef) error
	// ToggleAll drives every known lamp to on, as one atomic request.
	ToggleAll(ctx context.Context, on bool) error
	// SetColor recolors one lamp from a hex string such as "#1a2b3c".
	SetColor(ctx context.Context, lampID int, hex string) error
	// SetRunning enables or disables the running-light animation. The
	// animation color is derived client-side: the first lit lamp's
	// color, or a random one when everything is off.
	SetRunning(ctx context.Context, enable bool, interval time.Duration) error
	// SetSchedule saves a lamp's on/off schedule; both times required.
	SetSchedule(ctx context.Context, lampID int, on, off time.Time) error
	// DeleteSchedule removes a lamp's schedule record.
	DeleteSchedule(ctx context.Context, lampID int) error
}

// count records one command outcome and passes the error through.
func count(op string, err error) error {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.CommandsTotal.WithLabelValues(op, status).Inc()
	return err
}

// toggleMock flips a locally registered demo device.
func toggleMock(reg *registry.Registry, id string) error {
	if !reg.ToggleMock(id) {
		return ErrUnknownLamp
	}
	return nil
}
