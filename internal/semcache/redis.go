package semcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hyperjump/kotae/internal/config"
)

const scanBatch = 500

// RedisStore keeps entries as plain Redis strings.
type RedisStore struct {
	client goredis.UniversalClient
}

// NewRedisStore connects to a single node, a cluster or a sentinel group and pings it.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	var client goredis.UniversalClient
	switch {
	case len(cfg.ClusterAddrs) > 0:
		client = goredis.NewClusterClient(&goredis.ClusterOptions{
			Addrs:        cfg.ClusterAddrs,
			Password:     cfg.Password,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			PoolSize:     cfg.PoolSize,
		})
	case len(cfg.SentinelAddrs) > 0:
		client = goredis.NewFailoverClient(&goredis.FailoverOptions{
			MasterName:    cfg.SentinelMaster,
			SentinelAddrs: cfg.SentinelAddrs,
			Password:      cfg.Password,
			DB:            cfg.DB,
			DialTimeout:   cfg.DialTimeout,
			ReadTimeout:   cfg.ReadTimeout,
			WriteTimeout:  cfg.WriteTimeout,
			PoolSize:      cfg.PoolSize,
		})
	default:
		client = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			PoolSize:     cfg.PoolSize,
		})
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, unavailable("redis ping", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client without pinging it.
func NewRedisStoreFromClient(client goredis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Keys runs SCAN MATCH pattern to completion. On a cluster every master is scanned.
func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	cc, ok := s.client.(*goredis.ClusterClient)
	if !ok {
		keys, err := scanAll(ctx, s.client, pattern)
		if err != nil {
			return nil, unavailable("redis scan", err)
		}
		return uniqueKeys(keys), nil
	}

	var (
		mu   sync.Mutex
		keys []string
	)
	err := cc.ForEachMaster(ctx, func(ctx context.Context, node *goredis.Client) error {
		found, err := scanAll(ctx, node, pattern)
		if err != nil {
			return err
		}
		mu.Lock()
		keys = append(keys, found...)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, unavailable("redis scan", err)
	}
	return uniqueKeys(keys), nil
}

// uniqueKeys drops repeats, which SCAN may return, keeping first-seen order.
func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func scanAll(ctx context.Context, c goredis.Cmdable, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := c.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

// Get returns the raw payload, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		if goredis.HasErrorPrefix(err, "WRONGTYPE") {
			return nil, fmt.Errorf("%w: %s: %w", ErrBadEntry, key, err)
		}
		return nil, unavailable("redis get", err)
	}
	return val, nil
}

// Set stores value under key without expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return unavailable("redis set", err)
	}
	return nil
}

// FlushAll empties the configured database (every master on a cluster).
func (s *RedisStore) FlushAll(ctx context.Context) error {
	var err error
	if cc, ok := s.client.(*goredis.ClusterClient); ok {
		err = cc.ForEachMaster(ctx, func(ctx context.Context, node *goredis.Client) error {
			return node.FlushDB(ctx).Err()
		})
	} else {
		err = s.client.FlushDB(ctx).Err()
	}
	if err != nil {
		return unavailable("redis flush", err)
	}
	return nil
}

// Close releases the client's connections.
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
