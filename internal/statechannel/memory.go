package statechannel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-process Channel with the same semantics as Broker:
// immediate initial delivery, ordered change notification, atomic merge.
// It backs the tests and acts as the local store in direct-device mode,
// where a poller mirrors the device's status into it.
type Memory struct {
	mu     sync.Mutex
	docs   map[string]document
	subs   map[uint64]*subscriber
	nextID uint64
}

var _ Channel = (*Memory)(nil)

// NewMemory creates an empty in-memory channel.
func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]document),
		subs: make(map[uint64]*subscriber),
	}
}

func (m *Memory) Subscribe(path string, h Handler) (CancelFunc, error) {
	collection, key, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.nextID++
	id := m.nextID
	sub := &subscriber{
		collection: collection,
		key:        key,
		handler:    h,
		last:       valueAt(m.docs[collection], key),
	}
	m.subs[id] = sub
	h(sub.last)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}, nil
}

func (m *Memory) Write(ctx context.Context, path string, value any) error {
	collection, key, err := splitPath(path)
	if err != nil {
		return err
	}

	if key == "" {
		var doc document
		if value != nil {
			raw, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("failed to encode document %s: %w", collection, err)
			}
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("collection value for %s must be a key map: %w", collection, err)
			}
		}
		m.replace(collection, doc)
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", path, err)
	}
	m.mutate(collection, func(doc document) {
		doc[key] = raw
	})
	return nil
}

func (m *Memory) Merge(ctx context.Context, base string, fields map[string]any) error {
	collection, key, err := splitPath(base)
	if err != nil {
		return err
	}
	if key != "" {
		return fmt.Errorf("merge base must be a collection, got %q", base)
	}
	if len(fields) == 0 {
		return nil
	}

	encoded := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		if v == nil {
			encoded[k] = nil
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode merge field %s/%s: %w", collection, k, err)
		}
		encoded[k] = raw
	}

	m.mutate(collection, func(doc document) {
		for k, raw := range encoded {
			if raw == nil {
				delete(doc, k)
				continue
			}
			doc[k] = raw
		}
	})
	return nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	collection, key, err := splitPath(path)
	if err != nil {
		return err
	}

	if key == "" {
		m.replace(collection, nil)
		return nil
	}
	m.mutate(collection, func(doc document) {
		delete(doc, key)
	})
	return nil
}

func (m *Memory) mutate(collection string, fn func(document)) {
	m.mu.Lock()
	doc := make(document, len(m.docs[collection])+1)
	for k, v := range m.docs[collection] {
		doc[k] = v
	}
	fn(doc)
	m.applyLocked(collection, doc)
	m.mu.Unlock()
}

func (m *Memory) replace(collection string, doc document) {
	m.mu.Lock()
	m.applyLocked(collection, doc)
	m.mu.Unlock()
}

func (m *Memory) applyLocked(collection string, doc document) {
	m.docs[collection] = doc
	for _, sub := range m.subs {
		if sub.collection != collection {
			continue
		}
		next := valueAt(doc, sub.key)
		if bytes.Equal(sub.last, next) {
			continue
		}
		sub.last = next
		sub.handler(next)
	}
}
