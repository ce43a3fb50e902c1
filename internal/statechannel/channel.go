package statechannel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Handler receives the JSON value at a subscribed path. A nil raw means the
// value is absent. Handlers are invoked on the channel's delivery goroutine
// in store order; they must not block and must not call back into the
// channel.
type Handler func(raw json.RawMessage)

// CancelFunc releases a subscription. Every subscriber must call it when the
// owning component stops needing updates; a leaked subscription keeps firing
// against torn-down state.
type CancelFunc func()

// Channel observes and mutates keyed state in the shared remote store.
//
// Paths are "collection" or "collection/key", e.g. "lampu", "lampu/3",
// "device_status/esp32_1". A subscription immediately delivers the current
// value (possibly nil), then every subsequent change in store order. The
// channel's own writes are observed by its own subscriptions; there is no
// read-your-writes gap.
type Channel interface {
	// Subscribe registers h for changes at path and returns the disposer.
	Subscribe(path string, h Handler) (CancelFunc, error)

	// Write replaces the entire value at path. A collection path replaces
	// the whole collection document.
	Write(ctx context.Context, path string, value any) error

	// Merge applies fields to sibling keys of one collection atomically:
	// all keys commit together or the call fails as a whole. A nil field
	// value deletes that key.
	Merge(ctx context.Context, base string, fields map[string]any) error

	// Delete removes the value at path. Absence, not an empty value, is
	// the result.
	Delete(ctx context.Context, path string) error
}

// splitPath splits "collection" or "collection/key" paths. key is empty for
// collection paths.
func splitPath(path string) (collection, key string, err error) {
	if path == "" {
		return "", "", fmt.Errorf("empty path")
	}

	parts := strings.SplitN(path, "/", 2)
	collection = parts[0]
	if collection == "" {
		return "", "", fmt.Errorf("malformed path %q", path)
	}
	if len(parts) == 2 {
		key = parts[1]
		if key == "" || strings.Contains(key, "/") {
			return "", "", fmt.Errorf("malformed path %q", path)
		}
	}
	return collection, key, nil
}

// document is one collection's key→value map.
type document map[string]json.RawMessage

// encodeDocument renders a document deterministically. A nil or empty
// document encodes to nil, which clears the retained value.
func encodeDocument(doc document) ([]byte, error) {
	if len(doc) == 0 {
		return nil, nil
	}
	return json.Marshal(doc)
}

// valueAt resolves what a subscriber at (collection, key) should see in doc.
func valueAt(doc document, key string) json.RawMessage {
	if key == "" {
		raw, _ := encodeDocument(doc)
		return raw
	}
	return doc[key]
}
