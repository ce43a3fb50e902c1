package topic

import (
	"fmt"
	"strings"
)

// Constants defining the state-document collections.
// These act as the protocol contract between the device firmware and every
// client sharing the store. Changing these values will break compatibility
// with deployed devices.
const (
	// CollectionLamps holds the lamp on/off map, keyed by lamp id.
	// Structure: {root}/lampu
	CollectionLamps = "lampu"

	// CollectionSchedules holds the per-lamp on/off time schedules.
	// Structure: {root}/jadwal
	CollectionSchedules = "jadwal"

	// CollectionDeviceStatus holds the heartbeat documents, keyed by device id.
	// Structure: {root}/device_status
	CollectionDeviceStatus = "device_status"
)

// Builder encapsulates the logic for constructing the retained state topics.
// Each collection lives on exactly one topic carrying a JSON document.
type Builder struct {
	// root is the base namespace for all topics (e.g. "luxsync/v1").
	root string
}

// NewBuilder creates a new Builder with the specified root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.TrimSuffix(root, "/")}
}

// Collection returns the retained topic carrying the named collection's document.
func (b *Builder) Collection(name string) string {
	return fmt.Sprintf("%s/%s", b.root, name)
}

// Wildcard returns the filter matching every collection topic under the root.
// Result: {root}/+
func (b *Builder) Wildcard() string {
	return fmt.Sprintf("%s/+", b.root)
}

// CollectionFromTopic extracts the collection name from a topic produced by
// this builder. The second return value is false when the topic does not
// belong to the builder's namespace.
func (b *Builder) CollectionFromTopic(topic string) (string, bool) {
	prefix := b.root + "/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(topic, prefix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
