package activity

import (
	"errors"
	"log"
	"sync"
)

// subscriberBuffer is the per-subscriber event channel capacity. A
// subscriber that falls this far behind is dropped from the hub.
const subscriberBuffer = 16

// ErrSlowObserver is returned by a Subscriber whose buffer is full.
var ErrSlowObserver = errors.New("observer buffer full")

// Observer receives activity events. Send must not block indefinitely;
// a returned error means the observer is dead or too slow and will be
// unregistered by the hub.
type Observer interface {
	Send(event Event) error
}

// Hub maintains the set of connected observers and broadcasts events to
// all of them. Delivery is best-effort and fully isolated per observer:
// one failing observer never blocks the others or the broadcaster, it is
// simply removed from the registry.
type Hub struct {
	mu        sync.RWMutex
	observers map[Observer]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		observers: make(map[Observer]struct{}),
	}
}

// Register adds an observer to the live set. Registering the same
// observer twice is harmless.
func (h *Hub) Register(obs Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers[obs] = struct{}{}
}

// Unregister removes an observer. Safe to call for observers that were
// never registered or were already removed.
func (h *Hub) Unregister(obs Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.observers, obs)
}

// Count returns the number of registered observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// Broadcast delivers the event to every registered observer. It
// snapshots the registry, attempts delivery to each observer
// independently, and unregisters the ones whose delivery failed after
// the pass, so the registry is never mutated while iterating. Delivery
// failures never propagate to the caller.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	snapshot := make([]Observer, 0, len(h.observers))
	for obs := range h.observers {
		snapshot = append(snapshot, obs)
	}
	h.mu.RUnlock()

	var failed []Observer
	for _, obs := range snapshot {
		if err := obs.Send(event); err != nil {
			log.Printf("activity: dropping observer after failed delivery: %v", err)
			failed = append(failed, obs)
		}
	}

	for _, obs := range failed {
		h.Unregister(obs)
	}
}

// Subscriber is a channel-backed observer handle for transport layers
// (e.g. an SSE connection). Events are delivered to a bounded channel;
// a full buffer fails the send so the hub drops the subscriber instead
// of blocking the recognition path.
type Subscriber struct {
	events chan Event

	mu     sync.Mutex
	closed bool
}

// Subscribe registers a new channel-backed subscriber on the hub.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		events: make(chan Event, subscriberBuffer),
	}
	h.Register(sub)
	return sub
}

// Drop unregisters the subscriber and closes its event channel.
func (h *Hub) Drop(sub *Subscriber) {
	h.Unregister(sub)
	sub.close()
}

// Send implements Observer. It never blocks: if the subscriber's buffer
// is full or the subscriber is closed, the event is rejected.
func (s *Subscriber) Send(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("observer closed")
	}
	select {
	case s.events <- event:
		return nil
	default:
		return ErrSlowObserver
	}
}

// Events returns the channel the transport layer reads from. The
// channel is closed when the subscriber is dropped.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}
