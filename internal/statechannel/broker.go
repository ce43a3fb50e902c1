package statechannel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/luxsync-io/luxsync/pkg/log"
	"github.com/luxsync-io/luxsync/pkg/mqtt"
	"github.com/luxsync-io/luxsync/pkg/mqtt/topic"
)

// Broker is the Channel implementation backed by the shared MQTT store.
//
// Each collection lives in a single retained JSON document on one topic
// ({root}/{collection}). A merge is therefore one retained publish and
// commits atomically for every observer, and the broker's retained delivery
// provides the immediate initial value on subscribe. Concurrent writers
// resolve as last writer wins per document, which this design accepts.
type Broker struct {
	client mqtt.Client
	topics *topic.Builder
	qos    int

	mu     sync.Mutex
	docs   map[string]document
	subs   map[uint64]*subscriber
	nextID uint64
}

type subscriber struct {
	collection string
	key        string
	handler    Handler

	// last is the most recently delivered value, used to suppress
	// duplicate deliveries when the broker echoes this client's own
	// publish back after the local apply.
	last json.RawMessage
}

var _ Channel = (*Broker)(nil)

// NewBroker creates a broker-backed channel over the given MQTT client.
// topicRoot is the namespace the state documents live under.
func NewBroker(client mqtt.Client, topicRoot string) *Broker {
	return &Broker{
		client: client,
		topics: topic.NewBuilder(topicRoot),
		qos:    1,
		docs:   make(map[string]document),
		subs:   make(map[uint64]*subscriber),
	}
}

// Start subscribes to the collection topics. The MQTT client must already
// be started; retained documents arrive as soon as the subscription is
// acknowledged.
func (b *Broker) Start(ctx context.Context) error {
	if err := b.client.Subscribe(ctx, b.topics.Wildcard(), b.qos, b.onMessage); err != nil {
		return fmt.Errorf("failed to subscribe to state topics: %w", err)
	}
	return nil
}

// Close releases the underlying MQTT subscription.
func (b *Broker) Close(ctx context.Context) error {
	return b.client.Unsubscribe(ctx, b.topics.Wildcard())
}

func (b *Broker) Subscribe(path string, h Handler) (CancelFunc, error) {
	collection, key, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	sub := &subscriber{
		collection: collection,
		key:        key,
		handler:    h,
		last:       valueAt(b.docs[collection], key),
	}
	b.subs[id] = sub

	// Initial delivery: the current value, nil when absent.
	h(sub.last)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}, nil
}

func (b *Broker) Write(ctx context.Context, path string, value any) error {
	collection, key, err := splitPath(path)
	if err != nil {
		return err
	}

	if key == "" {
		return b.replaceDocument(ctx, collection, value)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", path, err)
	}
	return b.mutate(ctx, collection, func(doc document) {
		doc[key] = raw
	})
}

func (b *Broker) Merge(ctx context.Context, base string, fields map[string]any) error {
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

	return b.mutate(ctx, collection, func(doc document) {
		for k, raw := range encoded {
			if raw == nil {
				delete(doc, k)
				continue
			}
			doc[k] = raw
		}
	})
}

func (b *Broker) Delete(ctx context.Context, path string) error {
	collection, key, err := splitPath(path)
	if err != nil {
		return err
	}

	if key == "" {
		return b.replaceDocument(ctx, collection, nil)
	}
	return b.mutate(ctx, collection, func(doc document) {
		delete(doc, key)
	})
}

// replaceDocument overwrites a whole collection. A nil value clears it.
func (b *Broker) replaceDocument(ctx context.Context, collection string, value any) error {
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
	return b.publish(ctx, collection, doc)
}

// mutate applies fn to a copy of the collection's document and publishes the
// result.
func (b *Broker) mutate(ctx context.Context, collection string, fn func(document)) error {
	b.mu.Lock()
	doc := make(document, len(b.docs[collection])+1)
	for k, v := range b.docs[collection] {
		doc[k] = v
	}
	b.mu.Unlock()

	fn(doc)
	return b.publish(ctx, collection, doc)
}

// publish sends the document as a retained message and, on success, applies
// it locally so this client's subscriptions observe the write immediately.
// The broker echo that follows carries identical bytes and is suppressed by
// the per-subscriber change check.
func (b *Broker) publish(ctx context.Context, collection string, doc document) error {
	payload, err := encodeDocument(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", collection, err)
	}

	if err := b.client.Publish(ctx, b.topics.Collection(collection), b.qos, true, payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", collection, err)
	}

	b.apply(collection, doc)
	return nil
}

// onMessage handles one retained document update from the broker.
func (b *Broker) onMessage(_ context.Context, msgTopic string, payload []byte) {
	collection, ok := b.topics.CollectionFromTopic(msgTopic)
	if !ok {
		log.Debug("Ignoring message outside the state namespace", "topic", msgTopic)
		return
	}

	var doc document
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &doc); err != nil {
			log.Error(err, "Dropping malformed state document", "topic", msgTopic)
			return
		}
	}
	b.apply(collection, doc)
}

// apply installs the new document and notifies subscribers whose view of it
// changed, in registration order relative to this update.
func (b *Broker) apply(collection string, doc document) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.docs[collection] = doc
	for _, sub := range b.subs {
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
