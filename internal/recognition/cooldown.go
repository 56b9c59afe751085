package recognition

import (
	"sync"
	"time"
)

// cooldownEntry holds the last accepted time for one identity. Each
// entry has its own lock so concurrent recognitions of different
// identities never serialize on each other.
type cooldownEntry struct {
	mu   sync.Mutex
	last time.Time
}

// CooldownTracker suppresses duplicate match logging: an identity is
// accepted at most once per window, measured from its previous accepted
// match. The check and the record update are a single atomic step per
// identity, so two concurrent recognitions of the same identity cannot
// both be accepted inside one window.
//
// Entries are never evicted; memory grows with the number of distinct
// identities ever accepted, which is bounded by the gallery size.
type CooldownTracker struct {
	window  time.Duration
	mu      sync.Mutex
	entries map[string]*cooldownEntry
}

// NewCooldownTracker creates a tracker with the given suppression window.
func NewCooldownTracker(window time.Duration) *CooldownTracker {
	return &CooldownTracker{
		window:  window,
		entries: make(map[string]*cooldownEntry),
	}
}

// entry returns the tracker entry for an identity, creating it if needed.
func (t *CooldownTracker) entry(identityID string) *cooldownEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[identityID]
	if !ok {
		e = &cooldownEntry{}
		t.entries[identityID] = e
	}
	return e
}

// ShouldAccept atomically checks whether the identity is outside its
// cooldown window and, if so, records now as its last accepted time.
// Returns true exactly when the caller should log and broadcast the
// match.
func (t *CooldownTracker) ShouldAccept(identityID string, now time.Time) bool {
	e := t.entry(identityID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.last.IsZero() && now.Sub(e.last) < t.window {
		return false
	}
	e.last = now
	return true
}

// Size returns the number of identities ever accepted.
func (t *CooldownTracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
