package liveness

import (
	"context"

	"github.com/looplab/fsm"
)

// Device liveness states. A device cycles online ⇄ stale_check for as long
// as its heartbeat keeps up; the offline state is reached either by the
// device reporting it or by the client's staleness demotion.
const (
	StateUnknown    = "unknown"
	StateOnline     = "online"
	StateStaleCheck = "stale_check"
	StateOffline    = "offline"
)

const (
	// EventHeartbeat fires when the store reports online=true.
	EventHeartbeat = "event_heartbeat"
	// EventLost fires when the store reports online=false or the status
	// document becomes unknown.
	EventLost = "event_lost"
	// EventCheck (timer or manual refresh) opens a staleness evaluation.
	EventCheck = "event_check"
	// EventFresh closes a staleness evaluation with a recent heartbeat.
	EventFresh = "event_fresh"
	// EventExpired closes a staleness evaluation with a stale heartbeat
	// and triggers the one demotion write.
	EventExpired = "event_expired"
)

type FiniteStateMachine struct {
	*fsm.FSM

	// demote performs the single online→offline store write. It runs only
	// on the EventExpired edge, never when the device itself reported
	// offline, so repeated checks while offline write nothing.
	demote func(ctx context.Context)
}

func NewFiniteStateMachine(demote func(ctx context.Context)) *FiniteStateMachine {
	f := &FiniteStateMachine{demote: demote}

	events := fsm.Events{
		{Name: EventHeartbeat, Src: []string{StateUnknown, StateOnline, StateStaleCheck, StateOffline}, Dst: StateOnline},
		{Name: EventLost, Src: []string{StateUnknown, StateOnline, StateStaleCheck}, Dst: StateOffline},
		{Name: EventCheck, Src: []string{StateOnline}, Dst: StateStaleCheck},
		{Name: EventFresh, Src: []string{StateStaleCheck}, Dst: StateOnline},
		{Name: EventExpired, Src: []string{StateStaleCheck}, Dst: StateOffline},
	}

	callbacks := fsm.Callbacks{
		"enter_" + StateOffline: func(ctx context.Context, e *fsm.Event) {
			if e.Event == EventExpired && f.demote != nil {
				f.demote(ctx)
			}
		},
	}

	f.FSM = fsm.NewFSM(StateUnknown, events, callbacks)
	return f
}

// Believes reports whether the machine currently considers the device
// online. stale_check counts: an open evaluation has not yet produced
// evidence of absence.
func (f *FiniteStateMachine) Believes() bool {
	current := f.Current()
	return current == StateOnline || current == StateStaleCheck
}
