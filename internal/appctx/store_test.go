package appctx

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/knowledge"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
)

const testTemplate = "Contexte:\n{context}\nQuestion: {query}"

type fakeLoader struct {
	calls atomic.Int32
	delay time.Duration
	fail  atomic.Bool
	base  *knowledge.Base
}

func (f *fakeLoader) Load(ctx context.Context, app models.Application) (*knowledge.Base, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail.Load() {
		return nil, errors.New("artifact missing")
	}
	return f.base, nil
}

func recipes() *knowledge.Base {
	return &knowledge.Base{
		Dimensions: 2,
		Passages:   []string{"omelette", "crêpes", "soupe"},
		Vectors:    [][]float32{{1, 0}, {0, 1}, {0.7, 0.7}},
	}
}

func newTestStore(loader knowledge.Loader, dims int) (*Store, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	apps := []models.Application{
		{ID: 1, Name: "Application_Recette", PromptTemplate: testTemplate},
		{ID: 2, Name: "Application_Quran", PromptTemplate: testTemplate},
	}
	return NewStore(apps, loader, dims, zap.NewNop(), m), m
}

func TestStore_EnsureLoadedIsIdempotent(t *testing.T) {
	loader := &fakeLoader{base: recipes()}
	s, m := newTestStore(loader, 2)
	ctx := context.Background()

	require.NoError(t, s.EnsureLoaded(ctx, 1))
	first, err := s.Get(1)
	require.NoError(t, err)

	require.NoError(t, s.EnsureLoaded(ctx, 1))
	second, err := s.Get(1)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), loader.calls.Load())
	assert.True(t, s.Status()[0].Loaded)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ContextLoads.WithLabelValues(metrics.ResultOK)))
}

func TestStore_UnknownApplicationSkipsLoader(t *testing.T) {
	loader := &fakeLoader{base: recipes()}
	s, _ := newTestStore(loader, 2)

	err := s.EnsureLoaded(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUnknownApplication)
	assert.Equal(t, int32(0), loader.calls.Load())
	assert.False(t, s.Known(999))
	assert.True(t, s.Known(2))
}

func TestStore_GetBeforeLoad(t *testing.T) {
	s, _ := newTestStore(&fakeLoader{base: recipes()}, 2)
	_, err := s.Get(1)
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestStore_FailureIsNotCached(t *testing.T) {
	loader := &fakeLoader{base: recipes()}
	loader.fail.Store(true)
	s, m := newTestStore(loader, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := s.EnsureLoaded(ctx, 1)
		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, 1, loadErr.AppID)
	}
	assert.Equal(t, int32(2), loader.calls.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ContextLoads.WithLabelValues(metrics.ResultError)))

	loader.fail.Store(false)
	require.NoError(t, s.EnsureLoaded(ctx, 1))
	_, err := s.Get(1)
	assert.NoError(t, err)
}

func TestStore_DimensionMismatchIsLoadError(t *testing.T) {
	s, _ := newTestStore(&fakeLoader{base: recipes()}, 384)
	var loadErr *LoadError
	assert.ErrorAs(t, s.EnsureLoaded(context.Background(), 1), &loadErr)
}

func TestStore_ConcurrentFirstLoadsShareOneLoad(t *testing.T) {
	loader := &fakeLoader{base: recipes(), delay: 50 * time.Millisecond}
	s, _ := newTestStore(loader, 2)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.EnsureLoaded(context.Background(), 1))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loader.calls.Load())
	_, err := s.Get(1)
	assert.NoError(t, err)
}

func TestStore_FirstCallerCancelDoesNotFailWaiters(t *testing.T) {
	loader := &fakeLoader{base: recipes(), delay: 100 * time.Millisecond}
	s, _ := newTestStore(loader, 2)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() { firstErr <- s.EnsureLoaded(firstCtx, 1) }()
	time.Sleep(20 * time.Millisecond)

	secondErr := make(chan error, 1)
	go func() { secondErr <- s.EnsureLoaded(context.Background(), 1) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-firstErr, context.Canceled)
	require.NoError(t, <-secondErr)
	assert.Equal(t, int32(1), loader.calls.Load())
	_, err := s.Get(1)
	assert.NoError(t, err)
}

func TestContext_Retrieve(t *testing.T) {
	s, _ := newTestStore(&fakeLoader{base: recipes()}, 2)
	require.NoError(t, s.EnsureLoaded(context.Background(), 1))
	c, err := s.Get(1)
	require.NoError(t, err)

	got, err := c.Retrieve(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"omelette", "soupe"}, got)

	got, err = c.Retrieve(context.Background(), []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestStore_Status(t *testing.T) {
	s, _ := newTestStore(&fakeLoader{base: recipes()}, 2)
	require.NoError(t, s.EnsureLoaded(context.Background(), 2))
	assert.Equal(t, []models.ApplicationStatus{
		{ID: 1, Name: "Application_Recette", Loaded: false},
		{ID: 2, Name: "Application_Quran", Loaded: true},
	}, s.Status())
}

func TestFromConfig(t *testing.T) {
	apps, err := FromConfig(config.DefaultApplications())
	require.NoError(t, err)
	require.Len(t, apps, 3)
	assert.Contains(t, apps[0].PromptTemplate, "{context}")

	_, err = FromConfig([]config.ApplicationConfig{{ID: 7, Name: "Sans_Prompt"}})
	assert.Error(t, err)
}
