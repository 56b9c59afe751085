package activity

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// recordingObserver collects delivered events and can be told to fail.
type recordingObserver struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (o *recordingObserver) Send(event Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail {
		return errors.New("send failed")
	}
	o.events = append(o.events, event)
	return nil
}

func (o *recordingObserver) received() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Event, len(o.events))
	copy(out, o.events)
	return out
}

func TestHubBroadcastDeliversToAll(t *testing.T) {
	hub := NewHub()
	a := &recordingObserver{}
	b := &recordingObserver{}
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast(Event{IdentityID: "p-1"})

	for name, obs := range map[string]*recordingObserver{"a": a, "b": b} {
		if got := len(obs.received()); got != 1 {
			t.Errorf("observer %s: expected 1 event, got %d", name, got)
		}
	}
}

func TestHubBroadcastIsolatesFailures(t *testing.T) {
	hub := NewHub()
	good1 := &recordingObserver{}
	bad := &recordingObserver{fail: true}
	good2 := &recordingObserver{}
	hub.Register(good1)
	hub.Register(bad)
	hub.Register(good2)

	hub.Broadcast(Event{IdentityID: "p-1"})

	if len(good1.received()) != 1 || len(good2.received()) != 1 {
		t.Error("failure of one observer must not prevent delivery to others")
	}
	if hub.Count() != 2 {
		t.Errorf("failing observer should be unregistered, registry size = %d", hub.Count())
	}

	// The removed observer gets nothing on subsequent broadcasts.
	bad.fail = false
	hub.Broadcast(Event{IdentityID: "p-2"})
	if len(bad.received()) != 0 {
		t.Error("unregistered observer must not receive later events")
	}
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	obs := &recordingObserver{}

	hub.Unregister(obs) // never registered
	hub.Register(obs)
	hub.Unregister(obs)
	hub.Unregister(obs) // already removed

	if hub.Count() != 0 {
		t.Errorf("expected empty registry, got %d", hub.Count())
	}
}

func TestHubRegisterTwiceIsHarmless(t *testing.T) {
	hub := NewHub()
	obs := &recordingObserver{}
	hub.Register(obs)
	hub.Register(obs)

	hub.Broadcast(Event{IdentityID: "p-1"})

	if got := len(obs.received()); got != 1 {
		t.Errorf("double registration should not duplicate delivery, got %d events", got)
	}
}

func TestHubPerObserverOrdering(t *testing.T) {
	hub := NewHub()
	obs := &recordingObserver{}
	hub.Register(obs)

	for i := 0; i < 10; i++ {
		hub.Broadcast(Event{IdentityID: fmt.Sprintf("p-%d", i)})
	}

	events := obs.received()
	if len(events) != 10 {
		t.Fatalf("expected 10 events, got %d", len(events))
	}
	for i, event := range events {
		if want := fmt.Sprintf("p-%d", i); event.IdentityID != want {
			t.Errorf("event %d out of order: got %q, want %q", i, event.IdentityID, want)
		}
	}
}

func TestSubscriberReceivesEvents(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()
	defer hub.Drop(sub)

	hub.Broadcast(Event{IdentityID: "p-1", RecognizedAt: time.Now()})

	select {
	case event := <-sub.Events():
		if event.IdentityID != "p-1" {
			t.Errorf("expected p-1, got %q", event.IdentityID)
		}
	default:
		t.Error("expected buffered event")
	}
}

func TestSubscriberDroppedWhenBufferFull(t *testing.T) {
	hub := NewHub()
	_ = hub.Subscribe()

	// Nobody reads; the buffer eventually fills and the hub drops the
	// subscriber instead of blocking.
	for i := 0; i < subscriberBuffer+1; i++ {
		hub.Broadcast(Event{IdentityID: "p-1"})
	}

	if hub.Count() != 0 {
		t.Errorf("slow subscriber should have been dropped, registry size = %d", hub.Count())
	}
}

func TestSubscriberDropClosesChannel(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()
	hub.Drop(sub)

	if _, ok := <-sub.Events(); ok {
		t.Error("expected closed channel after drop")
	}
	if err := sub.Send(Event{}); err == nil {
		t.Error("send to a dropped subscriber should fail")
	}

	// Dropping twice is safe.
	hub.Drop(sub)
}

func TestHubConcurrentRegistrationAndBroadcast(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			obs := &recordingObserver{}
			hub.Register(obs)
			hub.Unregister(obs)
		}()
		go func() {
			defer wg.Done()
			hub.Broadcast(Event{IdentityID: "p-1"})
		}()
	}

	wg.Wait()
}
