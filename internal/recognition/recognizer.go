package recognition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/facewatch/facewatch/internal/activity"
	"github.com/facewatch/facewatch/internal/config"
	"github.com/facewatch/facewatch/internal/store"
)

// ErrInvalidInput is returned when the query embedding does not match
// the configured dimension. No side effects have occurred.
var ErrInvalidInput = errors.New("invalid query embedding")

// Actor identifies the operator performing the recognition. ID is what
// the ledger stores; Name only travels in the broadcast payload. CLI
// callers have no account, so Name stands in for a missing ID.
type Actor struct {
	ID   string
	Name string
}

// Result is the outcome of one recognition call. IdentityID is empty
// when nothing matched; Score is still populated for display. The
// caller always gets the match info even when logging was suppressed by
// the cooldown window.
type Result struct {
	IdentityID   string  `json:"identity_id,omitempty"`
	IdentityName string  `json:"identity_name,omitempty"`
	Method       string  `json:"method"`
	Score        float64 `json:"score"`
	NewlyLogged  bool    `json:"newly_logged"`
}

// Matched reports whether a match was accepted.
func (r *Result) Matched() bool {
	return r.IdentityID != ""
}

// Recognizer is the recognition orchestrator: it scans the gallery,
// applies the match decision policy, deduplicates via the cooldown
// tracker, appends accepted matches to the ledger, and broadcasts them
// to live observers. A single long-lived instance serves all concurrent
// recognition calls.
type Recognizer struct {
	gallery  store.IdentityReader
	ledger   store.Ledger
	hub      *activity.Hub
	cooldown *CooldownTracker

	dim                int
	cosineThreshold    float64
	euclideanThreshold float64

	// now is swappable for tests.
	now func() time.Time
}

// NewRecognizer creates a recognizer bound to a gallery, a ledger, and
// a broadcast hub.
func NewRecognizer(gallery store.IdentityReader, ledger store.Ledger, hub *activity.Hub, dim int, cfg config.RecognitionConfig) *Recognizer {
	return &Recognizer{
		gallery:            gallery,
		ledger:             ledger,
		hub:                hub,
		cooldown:           NewCooldownTracker(cfg.Cooldown),
		dim:                dim,
		cosineThreshold:    cfg.CosineThreshold,
		euclideanThreshold: cfg.EuclideanThreshold,
		now:                time.Now,
	}
}

// Recognize identifies the person in the query embedding. The gallery
// is always scanned in full: a later identity can beat an earlier one,
// so the decision is global-best, never first-threshold-met. Ledger
// write and broadcast happen at most once per call and only for a newly
// accepted (non-suppressed) match.
func (r *Recognizer) Recognize(ctx context.Context, query []float32, actor Actor) (*Result, error) {
	if len(query) != r.dim {
		return nil, fmt.Errorf("%w: expected dimension %d, got %d", ErrInvalidInput, r.dim, len(query))
	}

	identities, err := r.gallery.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning gallery: %w", err)
	}

	cands := newCandidates()
	for i := range identities {
		identity := &identities[i]
		for _, emb := range identity.Embeddings {
			// Tolerate malformed stored vectors; strict dimension
			// checking applies to the query only.
			if len(emb.Vector) != len(query) {
				continue
			}
			cos := CosineSimilarity(query, emb.Vector)
			dist := EuclideanDistance(query, emb.Vector)
			cands.observe(identity, cos, dist)
		}
	}

	decision := chooseMatch(cands, r.cosineThreshold, r.euclideanThreshold)

	result := &Result{
		Method: decision.Method,
		Score:  decision.Score,
	}
	if !decision.Accepted() {
		return result, nil
	}

	identity := decision.Identity
	result.IdentityID = identity.ExternalID
	result.IdentityName = identity.Name

	now := r.now()
	if !r.cooldown.ShouldAccept(identity.ExternalID, now) {
		log.Printf("recognition: suppressed duplicate match for %s (inside cooldown window)", identity.ExternalID)
		return result, nil
	}

	recognizedBy := actor.ID
	if recognizedBy == "" {
		recognizedBy = actor.Name
	}
	rec := &store.MatchRecord{
		IdentityID:   identity.ExternalID,
		IdentityName: identity.Name,
		Score:        decision.Score,
		Method:       decision.Method,
		RecognizedBy: recognizedBy,
		RecognizedAt: now,
	}
	if err := r.ledger.Append(ctx, rec); err != nil {
		// The cooldown record already stands; the window started the
		// moment the match was accepted. Surface the failure instead
		// of hiding it.
		return result, fmt.Errorf("appending match record: %w", err)
	}
	result.NewlyLogged = true

	r.hub.Broadcast(activity.Event{
		IdentityID:   identity.ExternalID,
		IdentityName: identity.Name,
		OperatorName: actor.Name,
		Score:        decision.Score,
		Method:       decision.Method,
		RecognizedAt: now,
	})

	return result, nil
}

// Hub returns the broadcast hub observers connect to.
func (r *Recognizer) Hub() *activity.Hub {
	return r.hub
}

// CooldownSize returns the number of identities currently tracked by
// the cooldown map.
func (r *Recognizer) CooldownSize() int {
	return r.cooldown.Size()
}
