// Package prompt binds retrieved passages and the user question into an
// application's prompt template.
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// Template slots.
const (
	SlotContext = "{context}"
	SlotQuery   = "{query}"
)

// DefaultNoData fills the context slot when retrieval found nothing.
const DefaultNoData = "Aucune donnée disponible"

// ErrMissingSlot is returned when a template lacks a required slot.
var ErrMissingSlot = errors.New("prompt template is missing a slot")

// Template is a validated prompt template.
type Template struct {
	text string
}

// Parse checks that text contains both {context} and {query}.
func Parse(text string) (*Template, error) {
	for _, slot := range []string{SlotContext, SlotQuery} {
		if !strings.Contains(text, slot) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSlot, slot)
		}
	}
	return &Template{text: text}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Template {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the raw template.
func (t *Template) String() string {
	return t.text
}

// Format fills the template. Substituted values are never re-expanded, so a
// question containing "{context}" is kept verbatim.
func (t *Template) Format(passages []string, query, noData string) string {
	r := strings.NewReplacer(
		SlotContext, FormatContext(passages, noData),
		SlotQuery, query,
	)
	return r.Replace(t.text)
}

// FormatContext renders passages as a "- " bulleted list, one per line, or
// noData when there are none.
func FormatContext(passages []string, noData string) string {
	if len(passages) == 0 {
		if noData == "" {
			return DefaultNoData
		}
		return noData
	}
	return "- " + strings.Join(passages, "\n- ")
}
