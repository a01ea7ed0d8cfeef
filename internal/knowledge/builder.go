package knowledge

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/pkg/utils"
)

// BuildOptions configures a Builder.
type BuildOptions struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	// Extensions restricts which files are read; empty means every extension
	// with a dedicated extractor.
	Extensions []string
}

// Builder turns a directory of documents into a knowledge-base artifact.
type Builder struct {
	embedder  embedding.Embedder
	extractor *extract.Extractor
	chunker   *Chunker
	opts      BuildOptions
	logger    *zap.Logger
}

// NewBuilder creates a builder that embeds passages with embedder.
func NewBuilder(embedder embedding.Embedder, opts BuildOptions, logger *zap.Logger) *Builder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = extract.Extensions()
	}
	return &Builder{
		embedder:  embedder,
		extractor: extract.NewExtractor(),
		chunker:   NewChunker(opts.ChunkSize, opts.ChunkOverlap),
		opts:      opts,
		logger:    logger,
	}
}

// BuildDir walks dir in lexical order, chunks every readable document and
// embeds the passages.
func (b *Builder) BuildDir(ctx context.Context, dir string) (*Base, error) {
	files, err := b.collect(dir)
	if err != nil {
		return nil, err
	}
	var passages []string
	for _, path := range files {
		text, err := b.extractor.Extract(path)
		if err != nil {
			b.logger.Warn("Skipping unreadable document", zap.String("path", path), zap.Error(err))
			continue
		}
		chunks := b.chunker.Chunk(text)
		b.logger.Debug("Document chunked", zap.String("path", path), zap.Int("passages", len(chunks)))
		passages = append(passages, chunks...)
	}
	return b.Build(ctx, passages)
}

// Build embeds passages in batches into a new Base. Vectors are L2-normalized.
func (b *Builder) Build(ctx context.Context, passages []string) (*Base, error) {
	if len(passages) == 0 {
		return nil, ErrEmptyBase
	}
	base := &Base{Dimensions: b.embedder.Dimensions()}
	for start := 0; start < len(passages); start += b.opts.BatchSize {
		end := start + b.opts.BatchSize
		if end > len(passages) {
			end = len(passages)
		}
		vectors, err := b.embedder.EmbedBatch(ctx, passages[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed passages %d-%d: %w", start, end, err)
		}
		for i, v := range vectors {
			utils.NormalizeL2(v)
			if err := base.Append(passages[start+i], v); err != nil {
				return nil, fmt.Errorf("passage %d: %w", start+i, err)
			}
		}
		b.logger.Debug("Embedded batch", zap.Int("done", end), zap.Int("total", len(passages)))
	}
	return base, nil
}

func (b *Builder) collect(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !b.allowed(filepath.Ext(path)) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (b *Builder) allowed(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range b.opts.Extensions {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == ext {
			return true
		}
	}
	return false
}
