// Package embedding turns questions and passages into fixed-size vectors.
package embedding

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
)

// Embedder produces vector embeddings for text. Implementations are
// deterministic for identical input and always return Dimensions() values.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Providers.
const (
	ProviderONNX   = "onnx"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// New builds the embedder selected by cfg.Provider, wrapped in an LRU when
// cfg.CacheSize is positive.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case ProviderONNX, "":
		e, err = NewONNXEmbedder(ONNXOptions{
			ModelPath:  cfg.ModelPath,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
		})
	case ProviderGemini:
		e, err = NewGeminiEmbedder(context.Background(), GeminiOptions{
			APIKey:     os.Getenv(cfg.APIKeyEnv),
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	case ProviderMock:
		e = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Embedder ready",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", e.Dimensions()),
	)
	if cfg.CacheSize <= 0 {
		return e, nil
	}
	return NewCachedEmbedder(e, cfg.CacheSize)
}
