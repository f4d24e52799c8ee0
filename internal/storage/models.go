package storage

import (
	"fmt"
	"strings"

	"github.com/bull/codeqa/internal/document"
)

// DefaultVectorName is the named vector slot chunk vectors are stored under.
const DefaultVectorName = "code"

// DefaultBatchSize is how many points go into one upsert request.
const DefaultBatchSize = 500

// Point is one chunk ready for upsert.
type Point struct {
	ID     string // UUID, fresh for every ingestion
	Vector []float32
	Chunk  document.Chunk
}

// ScoredChunk is a search hit.
type ScoredChunk struct {
	ID    string
	Chunk document.Chunk
	Score float64
}

// CollectionSpec describes the vector schema of a repository collection.
// Distance is always cosine.
type CollectionSpec struct {
	Size uint64
}

// SearchMode selects how nearest neighbours are picked.
type SearchMode string

const (
	SearchSimilarity SearchMode = "similarity"
	SearchMMR        SearchMode = "mmr"
)

// ParseSearchMode resolves a configured search type.
func ParseSearchMode(s string) (SearchMode, error) {
	switch SearchMode(strings.ToLower(s)) {
	case "", SearchSimilarity:
		return SearchSimilarity, nil
	case SearchMMR:
		return SearchMMR, nil
	default:
		return "", fmt.Errorf("unknown search type %q", s)
	}
}

// SearchRequest is a top-k query against one collection.
type SearchRequest struct {
	Collection string
	Vector     []float32
	TopK       int
	Mode       SearchMode
	Diversity  float32 // MMR only, in [0, 1]
}

// CollectionInfo describes a stored repository.
type CollectionInfo struct {
	Name        string // Repository name as listed
	Collection  string // Backing collection, differs from Name behind an alias
	PointsCount uint64
}
