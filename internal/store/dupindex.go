package store

import (
	"sync"

	"github.com/coder/hnsw"
)

const dupIndexMaxNeighbors = 16

// DuplicateMatch describes an enrolled embedding that sits close to a
// candidate embedding.
type DuplicateMatch struct {
	ExternalID string
	Name       string
	Similarity float64
}

// DuplicateIndex is an in-memory approximate nearest neighbor index over
// enrolled embeddings. It exists purely to warn about near-duplicate
// enrollments; recognition itself always scans the full gallery.
type DuplicateIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[int64]
	nextKey int64
	owners  map[int64]dupOwner
	// orphans counts graph nodes whose owner was removed. They still
	// occupy neighbor slots, so searches widen by this much.
	orphans int
}

type dupOwner struct {
	externalID string
	name       string
}

// NewDuplicateIndex creates an empty duplicate index.
func NewDuplicateIndex() *DuplicateIndex {
	return &DuplicateIndex{
		owners: make(map[int64]dupOwner),
	}
}

// BuildFromIdentities rebuilds the index from the full gallery.
func (d *DuplicateIndex) BuildFromIdentities(identities []Identity) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.graph = nil
	d.nextKey = 0
	d.owners = make(map[int64]dupOwner)
	d.orphans = 0

	for i := range identities {
		identity := &identities[i]
		for _, emb := range identity.Embeddings {
			d.addLocked(identity.ExternalID, identity.Name, emb.Vector)
		}
	}
}

// Add indexes one embedding belonging to an identity.
func (d *DuplicateIndex) Add(externalID, name string, embedding []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addLocked(externalID, name, embedding)
}

func (d *DuplicateIndex) addLocked(externalID, name string, embedding []float32) {
	if len(embedding) == 0 {
		return
	}
	if d.graph == nil {
		g := hnsw.NewGraph[int64]()
		g.M = dupIndexMaxNeighbors
		g.Ml = 1.0 / float64(dupIndexMaxNeighbors)
		g.Distance = hnsw.CosineDistance
		d.graph = g
	}
	key := d.nextKey
	d.nextKey++
	d.graph.Add(hnsw.MakeNode(key, embedding))
	d.owners[key] = dupOwner{externalID: externalID, name: name}
}

// Remove drops all embeddings owned by an identity from lookup. The graph
// nodes stay behind as orphans; Nearest compensates by searching wider,
// so heavy deletion is better served by BuildFromIdentities.
func (d *DuplicateIndex) Remove(externalID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, owner := range d.owners {
		if owner.externalID == externalID {
			delete(d.owners, key)
			d.orphans++
		}
	}
}

// Rename updates the display name attached to an identity's embeddings.
func (d *DuplicateIndex) Rename(externalID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, owner := range d.owners {
		if owner.externalID == externalID {
			owner.name = name
			d.owners[key] = owner
		}
	}
}

// Nearest returns the closest enrolled embedding to the candidate, or nil
// when the index is empty.
func (d *DuplicateIndex) Nearest(embedding []float32) *DuplicateMatch {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.graph == nil {
		return nil
	}

	// Orphaned nodes rank in search results but resolve to no owner, so
	// widen the search to guarantee a live entry can still surface.
	neighbors := d.graph.Search(embedding, dupIndexMaxNeighbors+d.orphans)
	for _, n := range neighbors {
		owner, ok := d.owners[n.Key]
		if !ok {
			continue
		}
		return &DuplicateMatch{
			ExternalID: owner.externalID,
			Name:       owner.name,
			Similarity: 1 - float64(hnsw.CosineDistance(embedding, n.Value)),
		}
	}
	return nil
}

// Count returns the number of embeddings with a resolvable owner.
func (d *DuplicateIndex) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.owners)
}
