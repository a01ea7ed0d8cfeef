// Package cli provides output formatting and the HTTP client used by the kotae commands.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/hyperjump/kotae/internal/knowledge"
	"github.com/hyperjump/kotae/internal/models"
)

// OutputFormat selects how command results are printed.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat accepts "text" or "json" (any case).
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an ask response.
func WriteAnswer(w io.Writer, resp *models.AskResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	_, err := fmt.Fprintf(w, "%s\n\n[source: %s]\n", resp.Response, resp.Source)
	return err
}

// WriteApplications writes the declared applications.
func WriteApplications(w io.Writer, apps []models.ApplicationStatus, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"applications": apps})
	}
	for _, app := range apps {
		state := "not loaded"
		if app.Loaded {
			state = "loaded"
		}
		if _, err := fmt.Fprintf(w, "%4d  %-24s %s\n", app.ID, app.Name, state); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary writes a knowledge-base summary.
func WriteSummary(w io.Writer, s *knowledge.Summary, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "Artifact:   %s\n", s.Path)
	fmt.Fprintf(w, "Size:       %s\n", FormatBytes(s.SizeBytes))
	fmt.Fprintf(w, "Dimensions: %d\n", s.Dimensions)
	fmt.Fprintf(w, "Passages:   %d\n", s.Passages)
	for i, p := range s.Samples {
		fmt.Fprintf(w, "  [%d] %s\n", i, p)
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
