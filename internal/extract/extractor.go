// Package extract turns source documents into plain text for knowledge-base builds.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor extracts plain text from knowledge-base source files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

var supported = map[string]bool{
	".txt":  true,
	".md":   true,
	".rst":  true,
	".pdf":  true,
	".docx": true,
	".odt":  true,
	".rtf":  true,
	".xlsx": true,
}

// Supported reports whether ext (with leading dot, any case) has a dedicated extractor.
func Supported(ext string) bool {
	return supported[strings.ToLower(ext)]
}

// Extensions returns the extensions with a dedicated extractor.
func Extensions() []string {
	exts := make([]string, 0, len(supported))
	for ext := range supported {
		exts = append(exts, ext)
	}
	return exts
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on ext (e.g. ".pdf").
// Unknown extensions are read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractWithCat(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return extractPlain(content)
	}
}
