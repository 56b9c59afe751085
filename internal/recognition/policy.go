package recognition

import (
	"math"

	"github.com/facewatch/facewatch/internal/store"
)

// Match methods reported in results and persisted to the ledger.
const (
	MethodCosine    = "cosine"
	MethodEuclidean = "euclidean"
	MethodNone      = "none"
)

// cosineCandidate is the best-by-cosine identity found during a scan.
type cosineCandidate struct {
	identity *store.Identity
	score    float64
}

// euclideanCandidate is the best-by-distance identity found during a scan.
type euclideanCandidate struct {
	identity *store.Identity
	dist     float64
}

// candidates accumulates the running best candidates over a full gallery
// scan. Only strict improvements replace the current best, so ties keep
// the first identity encountered in scan order.
type candidates struct {
	cosine    cosineCandidate
	euclidean euclideanCandidate
}

func newCandidates() *candidates {
	return &candidates{
		euclidean: euclideanCandidate{dist: math.Inf(1)},
	}
}

// observe records one query-vs-embedding comparison for an identity.
func (c *candidates) observe(identity *store.Identity, cosScore, dist float64) {
	if cosScore > c.cosine.score {
		c.cosine = cosineCandidate{identity: identity, score: cosScore}
	}
	if dist < c.euclidean.dist {
		c.euclidean = euclideanCandidate{identity: identity, dist: dist}
	}
}

// MatchDecision is the outcome of the match decision policy. Identity is
// nil when no candidate cleared a threshold; Score is still populated for
// diagnostic display.
type MatchDecision struct {
	Identity *store.Identity
	Method   string
	Score    float64
}

// Accepted reports whether the decision accepted a match.
func (d MatchDecision) Accepted() bool {
	return d.Identity != nil
}

// chooseMatch decides whether to accept the best cosine or Euclidean
// candidate. Cosine is checked first: it is scale-invariant and the
// primary signal, Euclidean only corroborates when cosine is
// inconclusive.
func chooseMatch(c *candidates, cosThreshold, eucThreshold float64) MatchDecision {
	if c.cosine.identity != nil && c.cosine.score >= cosThreshold {
		return MatchDecision{
			Identity: c.cosine.identity,
			Method:   MethodCosine,
			Score:    c.cosine.score,
		}
	}

	if c.euclidean.identity != nil && c.euclidean.dist <= eucThreshold {
		return MatchDecision{
			Identity: c.euclidean.identity,
			Method:   MethodEuclidean,
			Score:    DistanceToScore(c.euclidean.dist),
		}
	}

	// Rejected: report the best available score for display.
	var score float64
	switch {
	case c.cosine.score > 0:
		score = c.cosine.score
	case !math.IsInf(c.euclidean.dist, 1):
		score = DistanceToScore(c.euclidean.dist)
	}

	return MatchDecision{Method: MethodNone, Score: score}
}
