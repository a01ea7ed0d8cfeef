package knowledge

import (
	"context"
	"path/filepath"

	"github.com/hyperjump/kotae/internal/models"
)

// FileLoader reads artifacts from disk.
type FileLoader struct {
	dataPath string
}

// NewFileLoader returns a loader resolving conventional artifact names under dataPath.
func NewFileLoader(dataPath string) *FileLoader {
	return &FileLoader{dataPath: dataPath}
}

// Load opens and decodes the artifact for app.
func (l *FileLoader) Load(ctx context.Context, app models.Application) (*Base, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Open(ArtifactPath(app, l.dataPath))
}

// ArtifactPath resolves where app's knowledge base lives: its explicit path,
// or dataPath joined with the conventional artifact name.
func ArtifactPath(app models.Application, dataPath string) string {
	if app.KnowledgeBase != "" {
		return app.KnowledgeBase
	}
	return filepath.Join(dataPath, models.ArtifactName(app.Name))
}
