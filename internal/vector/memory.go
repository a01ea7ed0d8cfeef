package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

var _ Index = (*MemoryIndex)(nil)

// MemoryIndex is an exact brute-force cosine index. Norms are computed once at
// insert time so Search costs one dot product per stored vector.
type MemoryIndex struct {
	dimensions int
	vectors    [][]float32
	norms      []float64
	mu         sync.RWMutex
}

// NewMemoryIndex creates an empty index for vectors of the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Add appends vectors; their positions continue from the current Size.
func (m *MemoryIndex) Add(vectors ...[]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range vectors {
		if len(v) != m.dimensions {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(v), m.dimensions)
		}
	}
	for _, v := range vectors {
		vec := make([]float32, m.dimensions)
		copy(vec, v)
		m.vectors = append(m.vectors, vec)
		m.norms = append(m.norms, L2Norm(vec))
	}
	return nil
}

// Search returns the k most similar vectors by cosine similarity, highest
// first. Equal scores keep insertion order.
func (m *MemoryIndex) Search(_ context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.vectors) == 0 {
		return nil, nil
	}
	qn := L2Norm(query)
	scores := make([]Result, len(m.vectors))
	for i, vec := range m.vectors {
		var s float64
		if qn > 0 && m.norms[i] > 0 {
			s = clamp(InnerProduct(query, vec) / (qn * m.norms[i]))
		}
		scores[i] = Result{Position: i, Score: s}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// Dimensions returns the vector width accepted by the index.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
