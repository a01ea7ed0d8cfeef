package semcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
)

var (
	// ErrNotFound is returned by Store.Get for a missing key.
	ErrNotFound = errors.New("semcache: key not found")
	// ErrStoreUnavailable wraps every backing-store failure. Callers must not
	// treat it as a cache miss.
	ErrStoreUnavailable = errors.New("semcache: store unavailable")
	// ErrBadEntry is returned by Store.Get when the key exists but its value
	// cannot be read as a payload (e.g. a Redis key of another type). It
	// concerns that key only.
	ErrBadEntry = errors.New("semcache: unreadable entry")
)

// Store is the key-value backend behind the cache. Keys are plain strings;
// Keys takes a glob pattern where "*" matches any run of characters.
type Store interface {
	Keys(ctx context.Context, pattern string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	FlushAll(ctx context.Context) error
	Close() error
}

// NewStore opens the backend selected by cfg.Backend.
func NewStore(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendRedis, "":
		return NewRedisStore(cfg.Redis)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
