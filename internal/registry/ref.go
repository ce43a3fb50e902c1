package registry

import "fmt"

// Kind discriminates the two device families the registry can hold.
type Kind int

const (
	// KindLamp is a store-backed lamp, addressed by its integer key.
	KindLamp Kind = iota
	// KindMock is a locally registered demo device, addressed by name.
	// Mock devices never touch the remote store.
	KindMock
)

// DeviceRef names one controllable device. It is a tagged variant: exactly
// one of the two identities is meaningful, selected by Kind. Callers
// dispatch on Kind explicitly instead of inspecting the identity values.
type DeviceRef struct {
	kind   Kind
	lampID int
	mockID string
}

func LampRef(id int) DeviceRef {
	return DeviceRef{kind: KindLamp, lampID: id}
}

func MockRef(id string) DeviceRef {
	return DeviceRef{kind: KindMock, mockID: id}
}

func (r DeviceRef) Kind() Kind { return r.kind }

// LampID returns the lamp key; valid only when Kind is KindLamp.
func (r DeviceRef) LampID() int { return r.lampID }

// MockID returns the mock device name; valid only when Kind is KindMock.
func (r DeviceRef) MockID() string { return r.mockID }

func (r DeviceRef) String() string {
	if r.kind == KindMock {
		return "mock:" + r.mockID
	}
	return fmt.Sprintf("lamp:%d", r.lampID)
}
