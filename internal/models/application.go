// Package models defines the application and request/response types shared across kotae.
package models

import (
	"path"
	"strings"
)

// Application is a domain persona: its own prompt template and knowledge base.
// Applications are declared in configuration and immutable at runtime.
type Application struct {
	ID             int    `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	PromptTemplate string `json:"-" yaml:"-"`
	KnowledgeBase  string `json:"knowledge_base" yaml:"-"`
}

const appPrefix = "Application_"

// ArtifactName is the knowledge-base file name for an application name:
// lower-cased, "application_" prefix removed, "_embeddings.kb" appended.
func ArtifactName(name string) string {
	base := strings.ToLower(strings.TrimSpace(name))
	base = strings.TrimPrefix(base, strings.ToLower(appPrefix))
	base = strings.ReplaceAll(path.Base(base), " ", "_")
	return base + "_embeddings.kb"
}
