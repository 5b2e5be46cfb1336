// Package zero implements an Embedder that returns all-zero vectors. It lets
// deployments without an embedding model run the keyword retriever.
package zero

import (
	"context"

	"github.com/papercomputeco/askbase/pkg/embeddings"
)

// Embedder returns a zero vector of fixed dimensionality.
type Embedder struct {
	dimensions int
}

// NewEmbedder creates a zero embedder.
func NewEmbedder(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = 1
	}
	return &Embedder{dimensions: dimensions}
}

func (e *Embedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return make([]float32, e.dimensions), nil
}

func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
