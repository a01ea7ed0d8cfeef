package generation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// OllamaOptions configures an OllamaGenerator.
type OllamaOptions struct {
	BaseURL     string
	Model       string
	Temperature float64
	// Client defaults to a client without its own timeout; callers bound
	// requests through the context.
	Client *http.Client
}

// OllamaGenerator talks to the Ollama /api/generate endpoint in non-streaming mode.
type OllamaGenerator struct {
	endpoint    string
	model       string
	temperature float64
	client      *http.Client
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewOllamaGenerator returns a generator for a local or remote Ollama server.
func NewOllamaGenerator(opts OllamaOptions) *OllamaGenerator {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:11434"
	}
	if opts.Model == "" {
		opts.Model = "mistral"
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	return &OllamaGenerator{
		endpoint:    strings.TrimRight(opts.BaseURL, "/") + "/api/generate",
		model:       opts.Model,
		temperature: opts.Temperature,
		client:      opts.Client,
	}
}

// Name returns "ollama".
func (g *OllamaGenerator) Name() string { return ProviderOllama }

// Generate sends prompt and returns the trimmed completion.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string, stop []string) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:   g.model,
		Prompt:  prompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: g.temperature, Stop: stop},
	})
	if err != nil {
		return "", g.fail(0, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", g.fail(0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		// Surface the context error so deadlines stay detectable.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", g.fail(0, ctxErr)
		}
		return "", g.fail(0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", g.fail(0, ctxErr)
		}
		return "", g.fail(resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", g.fail(resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(data))))
	}

	var out ollamaResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", g.fail(resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	if out.Error != "" {
		return "", g.fail(resp.StatusCode, fmt.Errorf("%s", out.Error))
	}
	return strings.TrimSpace(out.Response), nil
}

func (g *OllamaGenerator) fail(status int, err error) error {
	return &Error{Provider: ProviderOllama, Status: status, Err: err}
}
