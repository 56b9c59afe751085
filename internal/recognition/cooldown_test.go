package recognition

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCooldownFirstAcceptance(t *testing.T) {
	tracker := NewCooldownTracker(30 * time.Second)

	if !tracker.ShouldAccept("id-1", time.Now()) {
		t.Error("first acceptance should always pass")
	}
}

func TestCooldownSuppressesInsideWindow(t *testing.T) {
	tracker := NewCooldownTracker(30 * time.Second)
	base := time.Now()

	if !tracker.ShouldAccept("id-1", base) {
		t.Fatal("first acceptance should pass")
	}
	if tracker.ShouldAccept("id-1", base.Add(5*time.Second)) {
		t.Error("second acceptance inside the window should be suppressed")
	}
	if tracker.ShouldAccept("id-1", base.Add(29*time.Second)) {
		t.Error("acceptance just before window expiry should be suppressed")
	}
}

func TestCooldownExpiry(t *testing.T) {
	tracker := NewCooldownTracker(30 * time.Second)
	base := time.Now()

	if !tracker.ShouldAccept("id-1", base) {
		t.Fatal("first acceptance should pass")
	}
	if !tracker.ShouldAccept("id-1", base.Add(30*time.Second)) {
		t.Error("acceptance exactly at window boundary should pass")
	}
	// The window restarts from the second acceptance.
	if tracker.ShouldAccept("id-1", base.Add(45*time.Second)) {
		t.Error("acceptance inside the restarted window should be suppressed")
	}
}

func TestCooldownIndependentIdentities(t *testing.T) {
	tracker := NewCooldownTracker(30 * time.Second)
	now := time.Now()

	if !tracker.ShouldAccept("id-1", now) {
		t.Fatal("first acceptance should pass")
	}
	if !tracker.ShouldAccept("id-2", now) {
		t.Error("a different identity must not be affected by id-1's window")
	}
	if tracker.Size() != 2 {
		t.Errorf("expected 2 tracked identities, got %d", tracker.Size())
	}
}

func TestCooldownConcurrentSameIdentity(t *testing.T) {
	tracker := NewCooldownTracker(30 * time.Second)
	now := time.Now()

	const goroutines = 64
	var accepted int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if tracker.ShouldAccept("id-1", now) {
				atomic.AddInt64(&accepted, 1)
			}
		}()
	}

	close(start)
	wg.Wait()

	if accepted != 1 {
		t.Errorf("expected exactly 1 acceptance under concurrency, got %d", accepted)
	}
}

func TestCooldownConcurrentDistinctIdentities(t *testing.T) {
	tracker := NewCooldownTracker(30 * time.Second)
	now := time.Now()

	const goroutines = 32
	var accepted int64
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%8))
			if tracker.ShouldAccept(id, now) {
				atomic.AddInt64(&accepted, 1)
			}
		}(i)
	}

	wg.Wait()

	if accepted != 8 {
		t.Errorf("expected exactly 8 acceptances (one per identity), got %d", accepted)
	}
}
