// Package vector provides cosine similarity and an exact in-memory top-k index.
package vector

import "context"

// Index is a read-mostly similarity index over positionally addressed vectors.
// MemoryIndex is the only implementation; retrieval code depends on this
// interface so an approximate index can replace it later.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	Dimensions() int
	Size() int
}

// Result is a single search hit. Position is the index of the vector in insertion order.
type Result struct {
	Position int
	Score    float64
}
