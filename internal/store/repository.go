package store

import (
	"context"
	"time"
)

// IdentityReader provides read-only access to the identity gallery.
// Recognition only ever reads; enrollment and removal go through
// IdentityWriter.
type IdentityReader interface {
	// ScanAll returns every enrolled identity with its embeddings.
	// The returned slice is a snapshot; callers must not mutate it.
	ScanAll(ctx context.Context) ([]Identity, error)
	// GetByExternalID retrieves one identity, or ErrNotFound.
	GetByExternalID(ctx context.Context, externalID string) (*Identity, error)
	// Count returns the number of enrolled identities.
	Count(ctx context.Context) (int, error)
}

// IdentityWriter provides write access to the identity gallery.
type IdentityWriter interface {
	IdentityReader

	// Create enrolls a new identity. Returns ErrDuplicateID if the
	// external ID is already taken.
	Create(ctx context.Context, identity *Identity) error
	// AddEmbedding appends an embedding to an existing identity.
	AddEmbedding(ctx context.Context, externalID string, emb Embedding) error
	// UpdateName changes an identity's display name.
	UpdateName(ctx context.Context, externalID, name string) error
	// Delete removes an identity and all of its embeddings.
	Delete(ctx context.Context, externalID string) error
}

// Ledger provides append and read access to the match ledger.
type Ledger interface {
	// Append persists an accepted match record. The record's ID is
	// populated on return.
	Append(ctx context.Context, rec *MatchRecord) error
	// Recent returns the most recent records, newest first.
	Recent(ctx context.Context, limit int) ([]MatchRecord, error)
	// All returns every record, newest first.
	All(ctx context.Context) ([]MatchRecord, error)
	// CountByOperatorSince counts records created by an operator at or
	// after the given time. The operator ID matches what Append stored
	// in RecognizedBy.
	CountByOperatorSince(ctx context.Context, operatorID string, since time.Time) (int, error)
	// DailyCounts returns record counts keyed by UTC day ("2006-01-02").
	DailyCounts(ctx context.Context) (map[string]int, error)
	// TopIdentities returns the most recognized identities, highest
	// count first.
	TopIdentities(ctx context.Context, limit int) ([]IdentityCount, error)
	// CountsByOperator returns record counts keyed by operator ID.
	CountsByOperator(ctx context.Context) (map[string]int, error)
}

// OperatorStore provides access to operator accounts.
type OperatorStore interface {
	// Create stores a new operator. The operator's ID is populated on
	// return.
	Create(ctx context.Context, op *Operator) error
	// GetByEmail retrieves an operator by email, or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*Operator, error)
	// Get retrieves an operator by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Operator, error)
	// List returns every operator account.
	List(ctx context.Context) ([]Operator, error)
}
