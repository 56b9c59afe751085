// Package recognition implements the hybrid face matching engine:
// similarity metrics, the match decision policy, the per-identity
// cooldown tracker, and the recognition orchestrator.
package recognition

import (
	"fmt"
	"math"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value in [-1, 1], where 1 means identical direction.
// Returns 0.0 if either vector has zero magnitude.
// Panics if the vectors have different lengths.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("cosine similarity: vector length mismatch (%d vs %d)", len(a), len(b)))
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return similarity
}

// EuclideanDistance computes the L2 distance between two vectors.
// Panics if the vectors have different lengths.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("euclidean distance: vector length mismatch (%d vs %d)", len(a), len(b)))
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// DistanceToScore maps a Euclidean distance to a display confidence in
// (0, 1]. The mapping 1/(1+dist) is strictly decreasing and maps
// dist=0 to 1.0. It is a UI heuristic, not a calibrated probability.
func DistanceToScore(dist float64) float64 {
	return 1.0 / (1.0 + dist)
}
