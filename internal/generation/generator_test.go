package generation

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/hyperjump/kotae/internal/config"
)

func TestTruncateAtStop(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		stops []string
		want  string
	}{
		{"marker with tail", "Bonjour [STOP_GENERATION] ignored tail", []string{"[STOP_GENERATION]"}, "Bonjour"},
		{"no marker", "  Bonjour  ", []string{"[STOP_GENERATION]"}, "Bonjour"},
		{"marker first", "[STOP_GENERATION] rien", []string{"[STOP_GENERATION]"}, ""},
		{"earliest of several", "a STOP b END c", []string{"END", "STOP"}, "a"},
		{"empty marker ignored", "texte", []string{""}, "texte"},
		{"no stops", "texte [STOP_GENERATION]", nil, "texte [STOP_GENERATION]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateAtStop(tt.text, tt.stops); got != tt.want {
				t.Errorf("TruncateAtStop(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestOllamaGenerator_Generate(t *testing.T) {
	var (
		got ollamaRequest
		raw map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		_ = json.Unmarshal(body, &raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"  Battez les oeufs. [STOP_GENERATION] x ","done":true}`))
	}))
	defer srv.Close()

	g := NewOllamaGenerator(OllamaOptions{BaseURL: srv.URL + "/", Model: "mistral"})
	out, err := g.Generate(context.Background(), "prompt", []string{"[STOP_GENERATION]"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "Battez les oeufs. [STOP_GENERATION] x" {
		t.Errorf("unexpected output %q", out)
	}
	if got.Model != "mistral" || got.Prompt != "prompt" || got.Stream {
		t.Errorf("unexpected payload %+v", got)
	}
	if len(got.Options.Stop) != 1 || got.Options.Temperature != 0 {
		t.Errorf("unexpected options %+v", got.Options)
	}
	// /api/generate only honours stop inside options.
	if _, ok := raw["stop"]; ok {
		t.Errorf("stop sent at top level: %v", raw)
	}
	if g.Name() != "ollama" {
		t.Errorf("Name() = %s", g.Name())
	}
}

func TestOllamaGenerator_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaGenerator(OllamaOptions{BaseURL: srv.URL}).Generate(context.Background(), "p", nil)
	var genErr *Error
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if genErr.Status != http.StatusNotFound || genErr.Timeout() {
		t.Errorf("unexpected error %+v", genErr)
	}
}

func TestOllamaGenerator_ErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"out of memory"}`))
	}))
	defer srv.Close()

	_, err := NewOllamaGenerator(OllamaOptions{BaseURL: srv.URL}).Generate(context.Background(), "p", nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestOllamaGenerator_Deadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewOllamaGenerator(OllamaOptions{BaseURL: srv.URL}).Generate(ctx, "p", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	var genErr *Error
	if !errors.As(err, &genErr) || !genErr.Timeout() {
		t.Errorf("expected timeout *Error, got %v", err)
	}
}

func TestNew(t *testing.T) {
	g, err := New(config.GenerationConfig{Provider: "ollama", BaseURL: "http://x", Model: "m"})
	if err != nil || g.Name() != ProviderOllama {
		t.Errorf("New(ollama) = %v, %v", g, err)
	}

	t.Setenv("KOTAE_TEST_EMPTY_KEY", "")
	if _, err := New(config.GenerationConfig{Provider: "gemini", APIKeyEnv: "KOTAE_TEST_EMPTY_KEY"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := New(config.GenerationConfig{Provider: "gpt"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
