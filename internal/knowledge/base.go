// Package knowledge loads, builds and stores the per-application passage
// collections used for retrieval.
package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrEmptyBase is returned for an artifact that holds no passages.
var ErrEmptyBase = errors.New("knowledge base is empty")

// Base is an ordered passage collection with one embedding per passage.
// Passages[i] and Vectors[i] describe the same passage.
type Base struct {
	Dimensions int
	Passages   []string
	Vectors    [][]float32
}

// Len returns the number of passages.
func (b *Base) Len() int {
	return len(b.Passages)
}

// Validate checks alignment and dimensionality. dims <= 0 accepts the
// artifact's own dimensionality.
func (b *Base) Validate(dims int) error {
	if len(b.Passages) == 0 {
		return ErrEmptyBase
	}
	if len(b.Passages) != len(b.Vectors) {
		return fmt.Errorf("%d passages but %d vectors", len(b.Passages), len(b.Vectors))
	}
	if dims > 0 && b.Dimensions != dims {
		return fmt.Errorf("dimension mismatch: artifact has %d, embedder produces %d", b.Dimensions, dims)
	}
	for i, v := range b.Vectors {
		if len(v) != b.Dimensions {
			return fmt.Errorf("vector %d has %d dimensions, expected %d", i, len(v), b.Dimensions)
		}
	}
	return nil
}

// Append adds one passage and its vector. The first vector fixes Dimensions.
func (b *Base) Append(passage string, vector []float32) error {
	if b.Dimensions == 0 {
		b.Dimensions = len(vector)
	}
	if len(vector) != b.Dimensions {
		return fmt.Errorf("vector has %d dimensions, expected %d", len(vector), b.Dimensions)
	}
	b.Passages = append(b.Passages, passage)
	b.Vectors = append(b.Vectors, vector)
	return nil
}

// Loader loads an application's knowledge base.
type Loader interface {
	Load(ctx context.Context, app models.Application) (*Base, error)
}
