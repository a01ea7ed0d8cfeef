package semcache

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func benchStore(b *testing.B, backend string) Store {
	switch backend {
	case "redis":
		s := miniredis.RunT(b)
		return NewRedisStoreFromClient(goredis.NewClient(&goredis.Options{Addr: s.Addr()}))
	default:
		st, err := NewSQLiteStore(":memory:")
		if err != nil {
			b.Fatal(err)
		}
		b.Cleanup(func() { _ = st.Close() })
		return st
	}
}

// benchmarkLookupMiss scans n entries of 384 dimensions without a hit.
func benchmarkLookupMiss(b *testing.B, backend string, n int) {
	ctx := context.Background()
	c, err := New(benchStore(b, backend), 0.9, zap.NewNop(), nil)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < n; i++ {
		v := make([]float32, 384)
		v[i%384] = 1
		if err := c.Insert(ctx, "1", fmt.Sprintf("question %d", i), v, "answer"); err != nil {
			b.Fatal(err)
		}
	}
	query := make([]float32, 384)
	for i := range query {
		query[i] = 1
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok, err := c.Lookup(ctx, "1", query); err != nil || ok {
			b.Fatalf("unexpected hit=%v err=%v", ok, err)
		}
	}
}

func BenchmarkLookupMiss_SQLite1000(b *testing.B) { benchmarkLookupMiss(b, "sqlite", 1000) }

func BenchmarkLookupMiss_Redis1000(b *testing.B) { benchmarkLookupMiss(b, "redis", 1000) }
