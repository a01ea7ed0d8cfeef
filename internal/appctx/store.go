// Package appctx holds the per-application retrieval context: the loaded
// knowledge base, its vector index and the bound prompt template.
package appctx

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/knowledge"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/prompt"
	"github.com/hyperjump/kotae/internal/vector"
)

var (
	// ErrUnknownApplication is returned for an id that is not declared.
	ErrUnknownApplication = errors.New("unknown application")
	// ErrNotLoaded is returned by Get before a successful EnsureLoaded.
	ErrNotLoaded = errors.New("application context not loaded")
)

// LoadError reports a knowledge-base load failure for one application.
type LoadError struct {
	AppID int
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load application %d: %v", e.AppID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Context is the memoized retrieval bundle of one application.
type Context struct {
	Application models.Application
	Index       *vector.MemoryIndex
	Passages    []string
	Template    *prompt.Template
}

// Retrieve returns the k passages most similar to query, best first. Equal
// scores keep knowledge-base order.
func (c *Context) Retrieve(ctx context.Context, query []float32, k int) ([]string, error) {
	results, err := c.Index.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = c.Passages[r.Position]
	}
	return out, nil
}

// DefaultLoadTimeout bounds one knowledge-base load.
const DefaultLoadTimeout = 2 * time.Minute

// Store lazily loads and memoizes application contexts for the process lifetime.
type Store struct {
	apps       map[int]models.Application
	loader     knowledge.Loader
	dimensions int
	logger     *zap.Logger
	metrics    *metrics.Metrics

	loadTimeout time.Duration

	mu     sync.RWMutex
	loaded map[int]*Context
	group  singleflight.Group
}

// NewStore creates a store over the declared applications. dimensions is
// the embedder's output width; 0 skips the check. m may be nil.
func NewStore(apps []models.Application, loader knowledge.Loader, dimensions int, logger *zap.Logger, m *metrics.Metrics) *Store {
	byID := make(map[int]models.Application, len(apps))
	for _, app := range apps {
		byID[app.ID] = app
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		apps:       byID,
		loader:     loader,
		dimensions: dimensions,
		logger:     logger,
		metrics:    m,
		loaded:     make(map[int]*Context),

		loadTimeout: DefaultLoadTimeout,
	}
}

// FromConfig turns configured applications into models, resolving each prompt template.
func FromConfig(apps []config.ApplicationConfig) ([]models.Application, error) {
	out := make([]models.Application, 0, len(apps))
	for _, a := range apps {
		tmpl, err := prompt.Resolve(a)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Application{
			ID:             a.ID,
			Name:           a.Name,
			PromptTemplate: tmpl.String(),
			KnowledgeBase:  a.KnowledgeBase,
		})
	}
	return out, nil
}

// Known reports whether id is a declared application.
func (s *Store) Known(id int) bool {
	_, ok := s.apps[id]
	return ok
}

// Applications returns the declared applications ordered by id.
func (s *Store) Applications() []models.Application {
	out := make([]models.Application, 0, len(s.apps))
	for _, app := range s.apps {
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Status lists every declared application with its loaded flag.
func (s *Store) Status() []models.ApplicationStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	apps := s.Applications()
	out := make([]models.ApplicationStatus, len(apps))
	for i, app := range apps {
		_, ok := s.loaded[app.ID]
		out[i] = models.ApplicationStatus{ID: app.ID, Name: app.Name, Loaded: ok}
	}
	return out
}

// EnsureLoaded makes the context of id available to Get. It is a no-op once
// loaded. Concurrent first calls share a single load. Failures are not
// memoized: the next call tries again.
func (s *Store) EnsureLoaded(ctx context.Context, id int) error {
	app, ok := s.apps[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownApplication, id)
	}
	s.mu.RLock()
	_, done := s.loaded[id]
	s.mu.RUnlock()
	if done {
		return nil
	}

	// The shared load ignores the first caller's cancellation; loadTimeout
	// bounds it. Each caller stops waiting when its own ctx ends.
	ch := s.group.DoChan(strconv.Itoa(id), func() (interface{}, error) {
		s.mu.RLock()
		_, done := s.loaded[id]
		s.mu.RUnlock()
		if done {
			return nil, nil
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		c, err := s.load(loadCtx, app)
		if err != nil {
			s.metrics.ContextLoad(metrics.ResultError)
			s.logger.Error("Failed to load application context",
				zap.Int("app_id", id),
				zap.String("app", app.Name),
				zap.Error(err),
			)
			return nil, &LoadError{AppID: id, Err: err}
		}

		s.mu.Lock()
		s.loaded[id] = c
		s.mu.Unlock()
		s.metrics.ContextLoad(metrics.ResultOK)
		s.logger.Info("Application context loaded",
			zap.Int("app_id", id),
			zap.String("app", app.Name),
			zap.Int("passages", len(c.Passages)),
		)
		return nil, nil
	})
	select {
	case r := <-ch:
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) load(ctx context.Context, app models.Application) (*Context, error) {
	tmpl, err := prompt.Parse(app.PromptTemplate)
	if err != nil {
		return nil, err
	}
	base, err := s.loader.Load(ctx, app)
	if err != nil {
		return nil, err
	}
	if err := base.Validate(s.dimensions); err != nil {
		return nil, err
	}
	idx, err := vector.NewMemoryIndex(base.Dimensions)
	if err != nil {
		return nil, err
	}
	if err := idx.Add(base.Vectors...); err != nil {
		return nil, err
	}
	return &Context{
		Application: app,
		Index:       idx,
		Passages:    base.Passages,
		Template:    tmpl,
	}, nil
}

// Get returns the memoized context of id, or ErrNotLoaded.
func (s *Store) Get(id int) (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.loaded[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotLoaded, id)
	}
	return c, nil
}
