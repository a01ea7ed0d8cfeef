// Package semcache is a per-scope semantic cache: answers are stored under
// their question text and found again by embedding similarity.
package semcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/vector"
)

// payload is the stored value.
type payload struct {
	Embedding []float32 `json:"embedding"`
	Response  string    `json:"response"`
}

// Hit is a successful lookup.
type Hit struct {
	Key        string
	Response   string
	Similarity float64
}

// Cache matches query embeddings against the entries of one scope.
type Cache struct {
	store     Store
	threshold float64
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// New creates a cache over store. threshold must be in (0, 1]; a stored
// entry matches when its cosine similarity is >= threshold. m may be nil.
func New(store Store, threshold float64, logger *zap.Logger, m *metrics.Metrics) (*Cache, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("similarity threshold must be in (0, 1], got %g", threshold)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: store, threshold: threshold, logger: logger, metrics: m}, nil
}

// Key returns the storage key of a question within scope.
func Key(scope, query string) string {
	return scope + ":" + query
}

// Threshold returns the configured similarity threshold.
func (c *Cache) Threshold() float64 {
	return c.threshold
}

// Lookup returns the first entry of scope whose similarity to query reaches
// the threshold. Entries are visited in the store's key order, so when
// several qualify the winner is not necessarily the most similar one.
// Unreadable or undecodable entries are skipped. A store failure is returned as an error
// wrapping ErrStoreUnavailable, never as a miss.
func (c *Cache) Lookup(ctx context.Context, scope string, query []float32) (Hit, bool, error) {
	if len(query) == 0 {
		return Hit{}, false, errors.New("semcache: empty query vector")
	}
	keys, err := c.store.Keys(ctx, Key(scope, "*"))
	if err != nil {
		c.metrics.CacheLookup(metrics.ResultError, 0)
		return Hit{}, false, err
	}

	scanned := 0
	for _, key := range keys {
		raw, err := c.store.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if errors.Is(err, ErrBadEntry) {
			scanned++
			c.corrupt(key, "unreadable value", err)
			continue
		}
		if err != nil {
			c.metrics.CacheLookup(metrics.ResultError, scanned)
			return Hit{}, false, err
		}
		scanned++

		var p payload
		if err := json.Unmarshal(raw, &p); err != nil {
			c.corrupt(key, "undecodable payload", err)
			continue
		}
		if len(p.Embedding) != len(query) {
			c.corrupt(key, "embedding dimension mismatch", nil)
			continue
		}

		sim := vector.Cosine(query, p.Embedding)
		if sim >= c.threshold {
			c.metrics.CacheLookup(metrics.ResultHit, scanned)
			c.logger.Debug("Cache hit",
				zap.String("scope", scope),
				zap.String("key", key),
				zap.Float64("similarity", sim),
			)
			return Hit{Key: key, Response: p.Response, Similarity: sim}, true, nil
		}
	}
	c.metrics.CacheLookup(metrics.ResultMiss, scanned)
	return Hit{}, false, nil
}

func (c *Cache) corrupt(key, reason string, err error) {
	c.metrics.CorruptEntry()
	fields := []zap.Field{zap.String("key", key), zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	c.logger.Warn("Skipping corrupt cache entry", fields...)
}

// Insert stores response under scope:queryText. An identical question text
// overwrites the previous entry.
func (c *Cache) Insert(ctx context.Context, scope, queryText string, query []float32, response string) error {
	if len(query) == 0 {
		return errors.New("semcache: empty query vector")
	}
	data, err := json.Marshal(payload{Embedding: query, Response: response})
	if err != nil {
		return fmt.Errorf("semcache: encode entry: %w", err)
	}
	if err := c.store.Set(ctx, Key(scope, queryText), data); err != nil {
		return err
	}
	c.metrics.CacheInsert()
	return nil
}

// Count returns how many entries scope holds.
func (c *Cache) Count(ctx context.Context, scope string) (int, error) {
	keys, err := c.store.Keys(ctx, Key(scope, "*"))
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Reset removes every entry of every scope.
func (c *Cache) Reset(ctx context.Context) error {
	if err := c.store.FlushAll(ctx); err != nil {
		return err
	}
	c.logger.Info("Semantic cache reset")
	return nil
}

// Close closes the backing store.
func (c *Cache) Close() error {
	return c.store.Close()
}
