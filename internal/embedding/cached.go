package embedding

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hyperjump/kotae/pkg/utils"
)

// CachedEmbedder memoizes vectors by exact text. Callers always receive a
// private copy, so mutating a returned vector never corrupts the cache.
type CachedEmbedder struct {
	next  Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps next with an LRU holding up to size vectors.
func NewCachedEmbedder(next Embedder, size int) (*CachedEmbedder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &CachedEmbedder{next: next, cache: cache}, nil
}

// Embed returns the cached vector for text or computes and stores it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return utils.CloneVector(v), nil
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, utils.CloneVector(v))
	return v, nil
}

// EmbedBatch only sends the texts missing from the cache to the wrapped embedder.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missing []string
		slots   []int
	)
	for i, text := range texts {
		if v, ok := c.cache.Get(text); ok {
			out[i] = utils.CloneVector(v)
			continue
		}
		missing = append(missing, text)
		slots = append(slots, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.next.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missing))
	}
	for j, v := range vectors {
		c.cache.Add(missing[j], utils.CloneVector(v))
		out[slots[j]] = v
	}
	return out, nil
}

// Dimensions returns the wrapped embedder's dimensionality.
func (c *CachedEmbedder) Dimensions() int {
	return c.next.Dimensions()
}

// Len reports how many vectors are cached.
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}

// Close purges the cache and closes the wrapped embedder.
func (c *CachedEmbedder) Close() error {
	c.cache.Purge()
	return c.next.Close()
}
