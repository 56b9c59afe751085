// Package activity implements the live-activity broadcast hub: a
// registry of connected observers that accepted matches are pushed to
// on a best-effort basis.
package activity

import "time"

// Event is the live-broadcast payload derived from an accepted match.
// It is transient and never persisted.
type Event struct {
	IdentityID   string    `json:"identity_id"`
	IdentityName string    `json:"identity_name"`
	OperatorName string    `json:"operator_name"`
	Score        float64   `json:"score"`
	Method       string    `json:"method"`
	RecognizedAt time.Time `json:"recognized_at"`
}
