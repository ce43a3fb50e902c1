package lamp

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is the on/off state string used on the device wire protocol.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// Lamp is the reconciled state of one light fixture. Instances are
// read-only projections of the remote store; they are mutated only by
// issuing commands that the store echoes back through a subscription.
type Lamp struct {
	ID   int  `json:"id"`
	IsOn bool `json:"isOn"`

	// Color is the lamp's current color when the deployment reports one.
	// Nil in the plain on/off deployment.
	Color *RGB `json:"currentColor,omitempty"`
}

// DeviceStatus is the heartbeat document a physical device maintains under
// device_status/{deviceID}. Only the device ever sets Online to true.
type DeviceStatus struct {
	Online   bool   `json:"online"`
	LastSeen string `json:"lastSeen"`
}

// LastSeenTime parses the LastSeen timestamp. The zero time is returned
// when the field is absent or malformed.
func (s DeviceStatus) LastSeenTime() time.Time {
	if s.LastSeen == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s.LastSeen)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Schedule is the on/off time-of-day schedule for one lamp, stored under
// jadwal/{lampID}. Absence of the record means "no schedule".
type Schedule struct {
	On  string `json:"on"`
	Off string `json:"off"`
}

// Present reports whether the record counts as a schedule: at least one of
// the two times must be non-empty.
func (s Schedule) Present() bool {
	return s.On != "" || s.Off != ""
}

// --- Device wire types (direct-device HTTP mode) ---

// WireLamp is one lamp entry in the device's /lamp/status response.
type WireLamp struct {
	ID           int   `json:"id"`
	Status       State `json:"status"`
	CurrentColor RGB   `json:"currentColor"`
}

// StatusResponse is the body of GET /lamp/status.
type StatusResponse struct {
	Lamps            []WireLamp `json:"lamps"`
	RunningLedActive bool       `json:"runningLedActive"`
}

// ErrorResponse is the JSON body every device endpoint returns alongside a
// non-2xx status. Callers surface Error verbatim.
type ErrorResponse struct {
	Error string `json:"error"`
}

// richValue is the rich lampu/{id} store shape.
type richValue struct {
	Status       State `json:"status"`
	CurrentColor *RGB  `json:"currentColor"`
}

// UnmarshalValue decodes one lampu/{id} store value. Both deployment shapes
// are accepted: a plain boolean, or {status:"ON"|"OFF", currentColor:{r,g,b}}.
func UnmarshalValue(raw json.RawMessage) (isOn bool, color *RGB, err error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil, nil
	}

	var rich richValue
	if err := json.Unmarshal(raw, &rich); err != nil {
		return false, nil, fmt.Errorf("unrecognized lamp value %s: %w", raw, err)
	}
	return rich.Status == StateOn, rich.CurrentColor, nil
}
