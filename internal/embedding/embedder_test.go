package embedding

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
)

type countingEmbedder struct {
	*MockEmbedder
	calls atomic.Int32
	texts atomic.Int32
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	c.texts.Add(1)
	return c.MockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	c.texts.Add(int32(len(texts)))
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestMockEmbedder_DeterministicUnitVectors(t *testing.T) {
	e := NewMockEmbedder(16)
	a, err := e.Embed(context.Background(), "Comment faire une omelette ?")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "Comment faire une omelette ?")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedder_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockEmbedder(8).Embed(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCachedEmbedder_HitsAndCopies(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	c, err := NewCachedEmbedder(inner, 2)
	require.NoError(t, err)

	first, err := c.Embed(context.Background(), "a")
	require.NoError(t, err)
	first[0] = 42

	second, err := c.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.NotEqual(t, float32(42), second[0], "cached vector must not alias the caller's copy")
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, 8, c.Dimensions())
}

func TestCachedEmbedder_Evicts(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(4)}
	c, err := NewCachedEmbedder(inner, 2)
	require.NoError(t, err)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c", "a"} {
		_, err := c.Embed(ctx, text)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(4), inner.calls.Load(), "a should have been evicted by c")
	assert.Equal(t, 2, c.Len())
}

func TestCachedEmbedder_BatchOnlySendsMisses(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(4)}
	c, err := NewCachedEmbedder(inner, 10)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Embed(ctx, "b")
	require.NoError(t, err)

	out, err := c.EmbedBatch(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, int32(3), inner.texts.Load(), "b was cached, only a and c should be embedded")

	want, _ := inner.MockEmbedder.Embed(ctx, "c")
	assert.Equal(t, want, out[2])
}

func TestCachedEmbedder_InvalidSize(t *testing.T) {
	_, err := NewCachedEmbedder(NewMockEmbedder(4), 0)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Run("mock with cache", func(t *testing.T) {
		e, err := New(config.EmbeddingConfig{Provider: ProviderMock, Dimensions: 12, CacheSize: 5}, zap.NewNop())
		require.NoError(t, err)
		defer e.Close()
		_, ok := e.(*CachedEmbedder)
		assert.True(t, ok)
		assert.Equal(t, 12, e.Dimensions())
	})
	t.Run("mock without cache", func(t *testing.T) {
		e, err := New(config.EmbeddingConfig{Provider: ProviderMock, Dimensions: 12}, zap.NewNop())
		require.NoError(t, err)
		_, ok := e.(*MockEmbedder)
		assert.True(t, ok)
	})
	t.Run("gemini without key", func(t *testing.T) {
		t.Setenv("KOTAE_TEST_EMPTY_KEY", "")
		_, err := New(config.EmbeddingConfig{Provider: ProviderGemini, APIKeyEnv: "KOTAE_TEST_EMPTY_KEY"}, zap.NewNop())
		assert.True(t, errors.Is(err, ErrMissingAPIKey))
	})
	t.Run("unknown", func(t *testing.T) {
		_, err := New(config.EmbeddingConfig{Provider: "word2vec"}, zap.NewNop())
		assert.Error(t, err)
	})
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := NewMockEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "Comment faire une omelette ?")
	}
}
