// Package store defines the domain types and storage interfaces for the
// identity gallery, the match ledger, and operator accounts.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateID is returned when creating an identity whose external ID
// is already enrolled.
var ErrDuplicateID = errors.New("identity id already exists")

// Embedding is a single enrolled face embedding with its source metadata.
// The vector is immutable once stored.
type Embedding struct {
	Vector    []float32 `json:"vector"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is an enrolled person. An identity may carry multiple
// embeddings; recognition compares a query against all of them.
type Identity struct {
	ID           int64       `json:"id"`
	ExternalID   string      `json:"external_id"`
	Name         string      `json:"name"`
	Embeddings   []Embedding `json:"embeddings"`
	RegisteredBy string      `json:"registered_by,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// MatchRecord is an accepted, non-suppressed recognition, persisted to
// the match ledger exactly once per cooldown window.
type MatchRecord struct {
	ID           int64     `json:"id"`
	IdentityID   string    `json:"identity_id"` // external ID of the matched identity
	IdentityName string    `json:"identity_name"`
	Score        float64   `json:"score"`
	Method       string    `json:"method"` // "cosine" or "euclidean"
	RecognizedBy string    `json:"recognized_by"` // operator ID; operator name for CLI callers without an account
	RecognizedAt time.Time `json:"recognized_at"`
}

// IdentityCount is a ledger aggregate: how often one identity was
// recognized.
type IdentityCount struct {
	IdentityID   string `json:"identity_id"`
	IdentityName string `json:"identity_name"`
	Count        int    `json:"count"`
}

// Operator is a user account allowed to enroll identities and run
// recognitions.
type Operator struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
