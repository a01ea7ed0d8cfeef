package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/hyperjump/kotae/pkg/utils"
)

// ErrMissingAPIKey is returned when a hosted provider has no credentials.
var ErrMissingAPIKey = errors.New("embedding: missing API key")

// GeminiOptions configures a GeminiEmbedder.
type GeminiOptions struct {
	APIKey     string
	Model      string
	Dimensions int
}

// GeminiEmbedder calls the Gemini embedContent API.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiEmbedder creates a client for the Gemini API.
func NewGeminiEmbedder(ctx context.Context, opts GeminiOptions) (*GeminiEmbedder, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.Model == "" {
		opts.Model = "text-embedding-004"
	}
	if opts.Dimensions <= 0 {
		opts.Dimensions = 768
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiEmbedder{client: client, model: opts.Model, dimensions: opts.Dimensions}, nil
}

// Embed returns the embedding for a single text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds all texts in one request.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: text}}}
	}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(e.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed: expected %d embeddings", len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) != e.dimensions {
			return nil, fmt.Errorf("gemini embed: embedding %d has wrong dimensionality", i)
		}
		v := utils.CloneVector(emb.Values)
		utils.NormalizeL2(v)
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the requested output dimensionality.
func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the genai client holds no resources that need releasing.
func (e *GeminiEmbedder) Close() error {
	return nil
}
