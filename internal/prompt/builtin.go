package prompt

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/hyperjump/kotae/internal/config"
)

//go:embed templates/*.txt
var templateFS embed.FS

var builtinFiles = map[string]string{
	"application_recette": "templates/recette.txt",
	"application_quran":   "templates/quran.txt",
	"application_qissas":  "templates/qissas.txt",
}

// Builtin returns the shipped template for an application name (case-insensitive).
func Builtin(name string) (*Template, bool) {
	file, ok := builtinFiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	data, err := templateFS.ReadFile(file)
	if err != nil {
		return nil, false
	}
	return MustParse(string(data)), true
}

// BuiltinNames lists the application names with a shipped template.
func BuiltinNames() []string {
	return []string{"Application_Recette", "Application_Quran", "Application_Qissas"}
}

// Resolve picks the template for app: inline Prompt, then PromptFile, then
// the built-in template for its name.
func Resolve(app config.ApplicationConfig) (*Template, error) {
	switch {
	case app.Prompt != "":
		t, err := Parse(app.Prompt)
		if err != nil {
			return nil, fmt.Errorf("application %d (%s): %w", app.ID, app.Name, err)
		}
		return t, nil
	case app.PromptFile != "":
		data, err := os.ReadFile(app.PromptFile)
		if err != nil {
			return nil, fmt.Errorf("application %d (%s): read prompt file: %w", app.ID, app.Name, err)
		}
		t, err := Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("application %d (%s): %s: %w", app.ID, app.Name, app.PromptFile, err)
		}
		return t, nil
	}
	if t, ok := Builtin(app.Name); ok {
		return t, nil
	}
	return nil, fmt.Errorf("application %d (%s): no prompt configured and no built-in template", app.ID, app.Name)
}
