package recognition

import (
	"math"
	"testing"

	"github.com/facewatch/facewatch/internal/config"
	"github.com/facewatch/facewatch/internal/store"
)

func testIdentity(externalID string) *store.Identity {
	return &store.Identity{ExternalID: externalID, Name: "Identity " + externalID}
}

func TestChooseMatchCosineWins(t *testing.T) {
	cands := newCandidates()
	cands.observe(testIdentity("a"), 0.9, 1.5)

	d := chooseMatch(cands, config.DefaultCosineThreshold, config.DefaultEuclideanThreshold)

	if !d.Accepted() {
		t.Fatal("expected match to be accepted")
	}
	if d.Method != MethodCosine {
		t.Errorf("expected method %q, got %q", MethodCosine, d.Method)
	}
	if d.Score != 0.9 {
		t.Errorf("expected reported score 0.9, got %v", d.Score)
	}
	if d.Identity.ExternalID != "a" {
		t.Errorf("expected identity a, got %s", d.Identity.ExternalID)
	}
}

func TestChooseMatchCosineThresholdBoundary(t *testing.T) {
	// Exactly at the threshold is accepted.
	cands := newCandidates()
	cands.observe(testIdentity("a"), 0.85, 10)

	d := chooseMatch(cands, config.DefaultCosineThreshold, config.DefaultEuclideanThreshold)
	if !d.Accepted() || d.Method != MethodCosine {
		t.Errorf("cosine score exactly at threshold should be accepted, got method %q", d.Method)
	}

	// Just below is not.
	cands = newCandidates()
	cands.observe(testIdentity("a"), 0.8499999, 10)

	d = chooseMatch(cands, config.DefaultCosineThreshold, config.DefaultEuclideanThreshold)
	if d.Accepted() {
		t.Errorf("cosine score below threshold should be rejected, got method %q", d.Method)
	}
}

func TestChooseMatchEuclideanRescues(t *testing.T) {
	cands := newCandidates()
	cands.observe(testIdentity("a"), 0.5, 0.4)

	d := chooseMatch(cands, config.DefaultCosineThreshold, config.DefaultEuclideanThreshold)

	if !d.Accepted() {
		t.Fatal("expected euclidean candidate to be accepted")
	}
	if d.Method != MethodEuclidean {
		t.Errorf("expected method %q, got %q", MethodEuclidean, d.Method)
	}
	want := DistanceToScore(0.4)
	if math.Abs(d.Score-want) > epsilon {
		t.Errorf("expected mapped score %v, got %v", want, d.Score)
	}
}

func TestChooseMatchEuclideanBoundary(t *testing.T) {
	cands := newCandidates()
	cands.observe(testIdentity("a"), 0.2, 0.6)

	d := chooseMatch(cands, config.DefaultCosineThreshold, config.DefaultEuclideanThreshold)
	if !d.Accepted() || d.Method != MethodEuclidean {
		t.Errorf("distance exactly at threshold should be accepted, got method %q", d.Method)
	}
}

func TestChooseMatchRejectReportsDiagnosticScore(t *testing.T) {
	// Positive cosine score is preferred for display.
	cands := newCandidates()
	cands.observe(testIdentity("a"), 0.4, 2.0)

	d := chooseMatch(cands, config.DefaultCosineThreshold, config.DefaultEuclideanThreshold)
	if d.Accepted() {
		t.Fatal("expected rejection")
	}
	if d.Method != MethodNone {
		t.Errorf("expected method %q, got %q", MethodNone, d.Method)
	}
	if d.Score != 0.4 {
		t.Errorf("expected diagnostic cosine score 0.4, got %v", d.Score)
	}

	// Without a positive cosine score, fall back to the mapped distance.
	cands = newCandidates()
	cands.observe(testIdentity("a"), -0.1, 2.0)

	d = chooseMatch(cands, config.DefaultCosineThreshold, config.DefaultEuclideanThreshold)
	want := DistanceToScore(2.0)
	if math.Abs(d.Score-want) > epsilon {
		t.Errorf("expected mapped diagnostic score %v, got %v", want, d.Score)
	}
}

func TestChooseMatchEmptyScan(t *testing.T) {
	d := chooseMatch(newCandidates(), config.DefaultCosineThreshold, config.DefaultEuclideanThreshold)

	if d.Accepted() {
		t.Fatal("expected rejection for empty scan")
	}
	if d.Method != MethodNone {
		t.Errorf("expected method %q, got %q", MethodNone, d.Method)
	}
	if d.Score != 0.0 {
		t.Errorf("expected score 0.0, got %v", d.Score)
	}
}

func TestCandidatesKeepFirstOnTie(t *testing.T) {
	first := testIdentity("first")
	second := testIdentity("second")

	cands := newCandidates()
	cands.observe(first, 0.9, 0.5)
	cands.observe(second, 0.9, 0.5)

	if cands.cosine.identity != first {
		t.Error("cosine tie should keep the first candidate encountered")
	}
	if cands.euclidean.identity != first {
		t.Error("euclidean tie should keep the first candidate encountered")
	}
}

func TestCandidatesTrackBestIndependently(t *testing.T) {
	a := testIdentity("a")
	b := testIdentity("b")

	cands := newCandidates()
	cands.observe(a, 0.9, 1.0)
	cands.observe(b, 0.5, 0.2)

	if cands.cosine.identity != a {
		t.Error("expected identity a to win on cosine")
	}
	if cands.euclidean.identity != b {
		t.Error("expected identity b to win on euclidean")
	}
}
