package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/hyperjump/kotae/internal/knowledge"
	"github.com/hyperjump/kotae/internal/models"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "TEXT": OutputText, "json": OutputJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
}

func TestWriteAnswer(t *testing.T) {
	resp := &models.AskResponse{Response: "Battez les oeufs.", Source: models.SourceGenerated}

	var buf bytes.Buffer
	if err := WriteAnswer(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "Battez les oeufs.") || !strings.Contains(buf.String(), "[source: generated]") {
		t.Errorf("unexpected text output %q", buf.String())
	}

	buf.Reset()
	if err := WriteAnswer(&buf, resp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.AskResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded != *resp {
		t.Errorf("decoded %+v", decoded)
	}
}

func TestWriteApplications(t *testing.T) {
	apps := []models.ApplicationStatus{{ID: 1, Name: "Application_Recette", Loaded: true}, {ID: 2, Name: "Application_Quran"}}
	var buf bytes.Buffer
	if err := WriteApplications(&buf, apps, OutputText); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[0], " loaded") || !strings.HasSuffix(lines[1], "not loaded") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestWriteSummary(t *testing.T) {
	s := &knowledge.Summary{Path: "/kb/recette_embeddings.kb", SizeBytes: 2048, Dimensions: 384, Passages: 10, Samples: []string{"Battre"}}
	var buf bytes.Buffer
	if err := WriteSummary(&buf, s, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"2.0 KiB", "Dimensions: 384", "Passages:   10", "[0] Battre"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{0: "0 B", 1023: "1023 B", 1024: "1.0 KiB", 1536: "1.5 KiB", 5 << 20: "5.0 MiB"}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestClient_Ask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.AskRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ApplicationID == 999 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"unknown application_id"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(models.AskResponse{Response: "ok:" + req.Question, Source: models.SourceCache})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 5*time.Second)
	resp, err := c.Ask(context.Background(), 1, "q")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Response != "ok:q" || resp.Source != models.SourceCache {
		t.Errorf("unexpected response %+v", resp)
	}

	_, err = c.Ask(context.Background(), 999, "q")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Message != "unknown application_id" {
		t.Errorf("expected APIError 400, got %v", err)
	}
}

func TestClient_Applications(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/applications" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"applications":[{"id":1,"name":"Application_Recette","loaded":false}]}`))
	}))
	defer srv.Close()

	apps, err := NewClient(srv.URL, time.Second).Applications(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(apps) != 1 || apps[0].ID != 1 {
		t.Errorf("unexpected apps %+v", apps)
	}
}
