// Package memory provides in-memory implementations of the store
// interfaces for tests and local experimentation.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facewatch/facewatch/internal/store"
)

// Gallery is an in-memory store.IdentityWriter with error injection.
type Gallery struct {
	mu         sync.RWMutex
	identities []store.Identity

	// Error injection for tests.
	ScanError   error
	CreateError error
}

// NewGallery creates an empty in-memory gallery.
func NewGallery() *Gallery {
	return &Gallery{}
}

// ScanAll returns a snapshot of every enrolled identity.
func (g *Gallery) ScanAll(ctx context.Context) ([]store.Identity, error) {
	if g.ScanError != nil {
		return nil, g.ScanError
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]store.Identity, len(g.identities))
	copy(out, g.identities)
	return out, nil
}

// GetByExternalID retrieves one identity, or store.ErrNotFound.
func (g *Gallery) GetByExternalID(ctx context.Context, externalID string) (*store.Identity, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for i := range g.identities {
		if g.identities[i].ExternalID == externalID {
			identity := g.identities[i]
			return &identity, nil
		}
	}
	return nil, store.ErrNotFound
}

// Count returns the number of enrolled identities.
func (g *Gallery) Count(ctx context.Context) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.identities), nil
}

// Create enrolls a new identity.
func (g *Gallery) Create(ctx context.Context, identity *store.Identity) error {
	if g.CreateError != nil {
		return g.CreateError
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.identities {
		if g.identities[i].ExternalID == identity.ExternalID {
			return store.ErrDuplicateID
		}
	}
	identity.ID = int64(len(g.identities) + 1)
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now()
	}
	g.identities = append(g.identities, *identity)
	return nil
}

// AddEmbedding appends an embedding to an existing identity.
func (g *Gallery) AddEmbedding(ctx context.Context, externalID string, emb store.Embedding) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.identities {
		if g.identities[i].ExternalID == externalID {
			g.identities[i].Embeddings = append(g.identities[i].Embeddings, emb)
			return nil
		}
	}
	return store.ErrNotFound
}

// UpdateName changes an identity's display name.
func (g *Gallery) UpdateName(ctx context.Context, externalID, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.identities {
		if g.identities[i].ExternalID == externalID {
			g.identities[i].Name = name
			return nil
		}
	}
	return store.ErrNotFound
}

// Delete removes an identity and its embeddings.
func (g *Gallery) Delete(ctx context.Context, externalID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.identities {
		if g.identities[i].ExternalID == externalID {
			g.identities = append(g.identities[:i], g.identities[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// Ledger is an in-memory store.Ledger with error injection.
type Ledger struct {
	mu      sync.RWMutex
	records []store.MatchRecord

	// Error injection for tests.
	AppendError error
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append persists a match record.
func (l *Ledger) Append(ctx context.Context, rec *store.MatchRecord) error {
	if l.AppendError != nil {
		return l.AppendError
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rec.ID = int64(len(l.records) + 1)
	l.records = append(l.records, *rec)
	return nil
}

// Recent returns the most recent records, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]store.MatchRecord, error) {
	all, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// All returns every record, newest first.
func (l *Ledger) All(ctx context.Context) ([]store.MatchRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]store.MatchRecord, len(l.records))
	copy(out, l.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecognizedAt.After(out[j].RecognizedAt)
	})
	return out, nil
}

// CountByOperatorSince counts records for an operator since the given time.
func (l *Ledger) CountByOperatorSince(ctx context.Context, operatorID string, since time.Time) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	count := 0
	for _, rec := range l.records {
		if rec.RecognizedBy == operatorID && !rec.RecognizedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// DailyCounts returns record counts keyed by UTC day.
func (l *Ledger) DailyCounts(ctx context.Context) (map[string]int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	daily := make(map[string]int)
	for _, rec := range l.records {
		daily[rec.RecognizedAt.UTC().Format("2006-01-02")]++
	}
	return daily, nil
}

// TopIdentities returns the most recognized identities, highest count first.
func (l *Ledger) TopIdentities(ctx context.Context, limit int) ([]store.IdentityCount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	counts := make(map[string]*store.IdentityCount)
	for _, rec := range l.records {
		c, ok := counts[rec.IdentityID]
		if !ok {
			c = &store.IdentityCount{IdentityID: rec.IdentityID, IdentityName: rec.IdentityName}
			counts[rec.IdentityID] = c
		}
		c.Count++
	}

	out := make([]store.IdentityCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].IdentityID < out[j].IdentityID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountsByOperator returns record counts keyed by operator ID.
func (l *Ledger) CountsByOperator(ctx context.Context) (map[string]int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	counts := make(map[string]int)
	for _, rec := range l.records {
		counts[rec.RecognizedBy]++
	}
	return counts, nil
}

// Len returns the number of stored records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Operators is an in-memory store.OperatorStore.
type Operators struct {
	mu  sync.RWMutex
	ops map[string]store.Operator // keyed by ID
}

// NewOperators creates an empty in-memory operator store.
func NewOperators() *Operators {
	return &Operators{ops: make(map[string]store.Operator)}
}

// Create stores a new operator and assigns its ID.
func (s *Operators) Create(ctx context.Context, op *store.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.ops {
		if strings.EqualFold(existing.Email, op.Email) {
			return store.ErrDuplicateID
		}
	}
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}
	s.ops[op.ID] = *op
	return nil
}

// GetByEmail retrieves an operator by email.
func (s *Operators) GetByEmail(ctx context.Context, email string) (*store.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, op := range s.ops {
		if strings.EqualFold(op.Email, email) {
			found := op
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

// Get retrieves an operator by ID.
func (s *Operators) Get(ctx context.Context, id string) (*store.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.ops[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &op, nil
}

// List returns every operator, ordered by name.
func (s *Operators) List(ctx context.Context) ([]store.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Operator, 0, len(s.ops))
	for _, op := range s.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
