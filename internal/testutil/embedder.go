package testutil

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// HashEmbedder is a deterministic bag-of-words embedder: every lowercase
// alphanumeric token adds one to the slot its FNV-1a hash selects.
type HashEmbedder struct {
	Dim int
	// Err, when set, is returned instead of vectors.
	Err error

	mu    sync.Mutex
	calls int
}

// NewHashEmbedder creates an embedder producing dim-sized vectors.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{Dim: dim}
}

func (e *HashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.vector(text)
	}
	return vectors, nil
}

func (e *HashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	return e.vector(text), nil
}

// Calls returns how many embed requests were made.
func (e *HashEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, e.Dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, token := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		v[h.Sum32()%uint32(e.Dim)]++
	}
	return v
}
