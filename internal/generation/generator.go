// Package generation calls the language model that writes answers.
package generation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hyperjump/kotae/internal/config"
)

// Generator produces text for a fully formatted prompt. stop lists markers
// at which the provider should stop; providers that ignore them are still
// safe because callers run TruncateAtStop on the result.
type Generator interface {
	Generate(ctx context.Context, prompt string, stop []string) (string, error)
	Name() string
}

// Error wraps a provider failure with the provider name.
type Error struct {
	Provider string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline.
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// TruncateAtStop cuts text at the earliest occurrence of any stop marker and
// trims surrounding whitespace.
func TruncateAtStop(text string, stops []string) string {
	cut := len(text)
	for _, s := range stops {
		if s == "" {
			continue
		}
		if i := strings.Index(text, s); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.TrimSpace(text[:cut])
}

// Providers.
const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

// New builds the generator selected by cfg.Provider.
func New(cfg config.GenerationConfig) (Generator, error) {
	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllamaGenerator(OllamaOptions{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}), nil
	case ProviderGemini:
		return NewGeminiGenerator(context.Background(), GeminiOptions{
			APIKey:      os.Getenv(cfg.APIKeyEnv),
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}
