package bus

import (
	"sync"
)

// Topic identifies a class of in-process events.
type Topic string

const (
	// TopicSessionChanged fires whenever the persisted session is granted or
	// revoked. Subscribers re-derive their in-memory auth state from the store.
	TopicSessionChanged Topic = "session-changed"
)

// Event is the payload delivered to subscribers.
type Event struct {
	Topic  Topic
	Reason string
}

// Bus is a small synchronous publish/subscribe hub for cross-component
// signaling. It replaces the ambient storage-change broadcast the UI relied
// on with an explicit, typed contract.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Topic]map[int]func(Event)
}

func New() *Bus {
	return &Bus{
		subs: make(map[Topic]map[int]func(Event)),
	}
}

// Subscribe registers fn for a topic and returns an unsubscribe handle.
// The handle is safe to call more than once.
func (b *Bus) Subscribe(topic Topic, fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]func(Event))
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

// Publish delivers the event to every subscriber of its topic. Delivery is
// synchronous and in no particular order; subscribers must not block.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs[evt.Topic]))
	for _, fn := range b.subs[evt.Topic] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(evt)
	}
}
