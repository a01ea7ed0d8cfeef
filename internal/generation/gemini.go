package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrMissingAPIKey is returned when the Gemini generator has no credentials.
var ErrMissingAPIKey = errors.New("generation: missing API key")

// GeminiOptions configures a GeminiGenerator.
type GeminiOptions struct {
	APIKey      string
	Model       string
	Temperature float64
}

// GeminiGenerator calls generateContent on the Gemini API.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiGenerator creates a client for the Gemini API.
func NewGeminiGenerator(ctx context.Context, opts GeminiOptions) (*GeminiGenerator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{
		client:      client,
		model:       opts.Model,
		temperature: float32(opts.Temperature),
	}, nil
}

// Name returns "gemini".
func (g *GeminiGenerator) Name() string { return ProviderGemini }

// Generate sends prompt as a single user turn.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, stop []string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:   genai.Ptr(g.temperature),
		StopSequences: stop,
	}
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		cfg,
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", &Error{Provider: ProviderGemini, Err: err}
	}
	return strings.TrimSpace(resp.Text()), nil
}
