package store

import (
	"testing"
)

func TestDuplicateIndexEmpty(t *testing.T) {
	idx := NewDuplicateIndex()
	if match := idx.Nearest([]float32{1, 0, 0}); match != nil {
		t.Errorf("Expected nil match from empty index, got %+v", match)
	}
	if idx.Count() != 0 {
		t.Errorf("Expected count 0, got %d", idx.Count())
	}
}

func TestDuplicateIndexNearest(t *testing.T) {
	idx := NewDuplicateIndex()
	idx.Add("emp-001", "Alice", []float32{1, 0, 0})
	idx.Add("emp-002", "Bob", []float32{0, 1, 0})

	match := idx.Nearest([]float32{0.99, 0.01, 0})
	if match == nil {
		t.Fatal("Expected a match, got nil")
	}
	if match.ExternalID != "emp-001" {
		t.Errorf("Expected emp-001, got %s", match.ExternalID)
	}
	if match.Similarity < 0.99 {
		t.Errorf("Expected similarity near 1, got %f", match.Similarity)
	}
}

func TestDuplicateIndexBuildFromIdentities(t *testing.T) {
	idx := NewDuplicateIndex()
	idx.Add("old", "Old", []float32{1, 0})

	idx.BuildFromIdentities([]Identity{
		{
			ExternalID: "emp-003",
			Name:       "Carol",
			Embeddings: []Embedding{
				{Vector: []float32{0, 1}},
				{Vector: []float32{0.1, 0.9}},
			},
		},
	})

	if idx.Count() != 2 {
		t.Fatalf("Expected 2 indexed embeddings, got %d", idx.Count())
	}
	match := idx.Nearest([]float32{0, 1})
	if match == nil || match.ExternalID != "emp-003" {
		t.Errorf("Expected emp-003, got %+v", match)
	}
}

func TestDuplicateIndexRemove(t *testing.T) {
	idx := NewDuplicateIndex()
	idx.Add("emp-001", "Alice", []float32{1, 0})
	idx.Add("emp-002", "Bob", []float32{0, 1})

	idx.Remove("emp-001")
	if idx.Count() != 1 {
		t.Errorf("Expected count 1 after remove, got %d", idx.Count())
	}

	match := idx.Nearest([]float32{1, 0})
	if match == nil {
		t.Fatal("Expected a match, got nil")
	}
	if match.ExternalID == "emp-001" {
		t.Error("Removed identity should not resolve as owner")
	}
}

func TestDuplicateIndexRename(t *testing.T) {
	idx := NewDuplicateIndex()
	idx.Add("emp-001", "Alice", []float32{1, 0})
	idx.Add("emp-001", "Alice", []float32{0.9, 0.1})

	idx.Rename("emp-001", "Alice Cooper")

	match := idx.Nearest([]float32{1, 0})
	if match == nil {
		t.Fatal("Expected a match, got nil")
	}
	if match.Name != "Alice Cooper" {
		t.Errorf("Expected renamed owner, got %s", match.Name)
	}
}

func TestDuplicateIndexNearestSurvivesManyRemovals(t *testing.T) {
	idx := NewDuplicateIndex()

	// Far more entries than one search page, then remove all but one.
	// Orphaned graph nodes still rank in searches; the survivor must
	// remain findable regardless.
	for i := 0; i < 30; i++ {
		id := string(rune('a' + i%26))
		idx.Add("emp-"+id, "Gone", []float32{1, float32(i) * 0.01})
	}
	idx.Add("emp-keep", "Keeper", []float32{0.99, 0.1})

	for i := 0; i < 30; i++ {
		id := string(rune('a' + i%26))
		idx.Remove("emp-" + id)
	}

	if idx.Count() != 1 {
		t.Fatalf("Expected 1 live entry, got %d", idx.Count())
	}
	match := idx.Nearest([]float32{1, 0.1})
	if match == nil {
		t.Fatal("Expected the surviving entry, got nil")
	}
	if match.ExternalID != "emp-keep" {
		t.Errorf("Expected emp-keep, got %s", match.ExternalID)
	}
}

func TestDuplicateIndexSkipsEmptyEmbedding(t *testing.T) {
	idx := NewDuplicateIndex()
	idx.Add("emp-001", "Alice", nil)
	if idx.Count() != 0 {
		t.Errorf("Expected empty embedding to be skipped, count %d", idx.Count())
	}
}
