// Package rag answers questions: semantic cache first, then retrieval
// augmented generation, caching what it generates.
package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/appctx"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/prompt"
	"github.com/hyperjump/kotae/internal/semcache"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Answer is the text returned for a question and whether it came from the cache.
type Answer struct {
	Text      string
	FromCache bool
}

// ProviderError is an embedding or generation failure. Timeout marks a
// generation that exceeded its deadline; such requests can be retried.
type ProviderError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Contexts is the part of the application context store the orchestrator reads.
type Contexts interface {
	Get(id int) (*appctx.Context, error)
}

// Options tune retrieval and generation.
type Options struct {
	TopK          int
	NoDataMarker  string
	StopSequences []string
	Timeout       time.Duration
	// SingleFlight makes concurrent misses for the same question share one generation.
	SingleFlight bool
}

// Orchestrator wires the embedder, cache, context store and generator.
type Orchestrator struct {
	embedder  embedding.Embedder
	cache     *semcache.Cache
	contexts  Contexts
	generator generation.Generator
	opts      Options
	logger    *zap.Logger
	metrics   *metrics.Metrics
	dedup     *semcache.Dedup
}

// New creates an orchestrator. m may be nil.
func New(
	embedder embedding.Embedder,
	cache *semcache.Cache,
	contexts Contexts,
	generator generation.Generator,
	opts Options,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Orchestrator {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.NoDataMarker == "" {
		opts.NoDataMarker = prompt.DefaultNoData
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		embedder:  embedder,
		cache:     cache,
		contexts:  contexts,
		generator: generator,
		opts:      opts,
		logger:    logger,
		metrics:   m,
	}
	if opts.SingleFlight {
		o.dedup = &semcache.Dedup{}
	}
	return o
}

// Ask answers question for application appID. The application context must
// already be loaded. Cache store failures are returned wrapping
// semcache.ErrStoreUnavailable; provider failures as *ProviderError.
func (o *Orchestrator) Ask(ctx context.Context, question string, appID int) (*Answer, error) {
	scope := models.ScopeOf(appID)

	query, err := o.embedder.Embed(ctx, question)
	if err != nil {
		return nil, &ProviderError{Op: "embed", Err: err}
	}

	hit, ok, err := o.cache.Lookup(ctx, scope, query)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if ok {
		o.logger.Info("Answer served from cache",
			zap.Int("app_id", appID),
			utils.QuestionField(question),
			zap.Float64("similarity", hit.Similarity),
		)
		return &Answer{Text: hit.Response, FromCache: true}, nil
	}

	if o.dedup == nil {
		text, err := o.generate(ctx, scope, question, query, appID)
		if err != nil {
			return nil, err
		}
		return &Answer{Text: text}, nil
	}
	text, shared, err := o.dedup.Do(ctx, scope, question, func(ctx context.Context) (string, error) {
		return o.generate(ctx, scope, question, query, appID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		o.logger.Debug("Shared in-flight generation", zap.Int("app_id", appID))
	}
	return &Answer{Text: text}, nil
}

// generate runs retrieval, prompt formatting, generation and cache insertion.
func (o *Orchestrator) generate(ctx context.Context, scope, question string, query []float32, appID int) (string, error) {
	appCtx, err := o.contexts.Get(appID)
	if err != nil {
		return "", err
	}

	passages, err := appCtx.Retrieve(ctx, query, o.opts.TopK)
	if err != nil {
		return "", fmt.Errorf("retrieve: %w", err)
	}
	p := appCtx.Template.Format(passages, question, o.opts.NoDataMarker)

	genCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()
	start := time.Now()
	raw, err := o.generator.Generate(genCtx, p, o.opts.StopSequences)
	elapsed := time.Since(start)
	if err != nil {
		timeout := errors.Is(err, context.DeadlineExceeded)
		result := metrics.ResultError
		if timeout {
			result = metrics.ResultTimeout
		}
		o.metrics.Generation(result, elapsed)
		o.logger.Warn("Generation failed",
			zap.Int("app_id", appID),
			zap.String("provider", o.generator.Name()),
			zap.Bool("timeout", timeout),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", &ProviderError{Op: "generate", Timeout: timeout, Err: err}
	}
	o.metrics.Generation(metrics.ResultOK, elapsed)
	text := generation.TruncateAtStop(raw, o.opts.StopSequences)

	if err := o.cache.Insert(ctx, scope, question, query, text); err != nil {
		return "", fmt.Errorf("cache insert: %w", err)
	}
	o.logger.Info("Answer generated",
		zap.Int("app_id", appID),
		utils.QuestionField(question),
		zap.Int("passages", len(passages)),
		zap.Duration("elapsed", elapsed),
	)
	return text, nil
}
