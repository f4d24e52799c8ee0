package embedding

import (
	"context"

	"github.com/bull/codeqa/internal/document"
)

// CustomDimension is the vector size of custom-embedding collections. The
// fuser and the collection schema must agree on it.
const CustomDimension = 256

// Fuser computes a chunk's vector without the embedding capability.
type Fuser interface {
	Fuse(ctx context.Context, chunk document.Chunk) ([]float32, error)
	Dimension() int
}

// FixedFuser is the placeholder fusion step: every chunk maps to the same
// all-ones vector. It is meant to be replaced by a fusion of metadata,
// content and summary embeddings.
type FixedFuser struct {
	dim int
}

// NewFixedFuser returns a fuser producing CustomDimension-sized vectors.
func NewFixedFuser() *FixedFuser {
	return &FixedFuser{dim: CustomDimension}
}

// Fuse returns the constant vector.
func (f *FixedFuser) Fuse(_ context.Context, _ document.Chunk) ([]float32, error) {
	v := make([]float32, f.dim)
	for i := range v {
		v[i] = 1
	}
	return v, nil
}

// Dimension returns the vector size.
func (f *FixedFuser) Dimension() int {
	return f.dim
}
