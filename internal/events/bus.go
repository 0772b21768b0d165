// Package events provides a small in-process publish/subscribe registry.
// Write paths publish topic events (e.g., "pages.invalidated") and in-process
// listeners react without coupling to the publisher. This is an observer
// registry, not a message broker: delivery is synchronous, best effort, and
// scoped to the current process.
package events

import "sync"

// Topics published by the application.
const (
	// TopicPagesInvalidated carries a []string of page namespaces whose
	// cached entries are no longer valid after a durable write.
	TopicPagesInvalidated = "pages.invalidated"
)

// Handler receives the payload published to a topic. Handlers run on the
// publisher's goroutine and must not block.
type Handler func(payload any)

// Bus is a topic-keyed subscription registry safe for concurrent use.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[int]Handler
	next int
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

// Subscribe registers h for topic and returns an unsubscribe function.
// Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(topic string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	id := b.next
	b.next++
	b.subs[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if hs, ok := b.subs[topic]; ok {
			delete(hs, id)
			if len(hs) == 0 {
				delete(b.subs, topic)
			}
		}
	}
}

// Publish delivers payload to every subscriber of topic. A panicking handler
// is isolated so one bad listener cannot take down the publisher or starve
// the remaining subscribers.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() { _ = recover() }()
			h(payload)
		}()
	}
}
