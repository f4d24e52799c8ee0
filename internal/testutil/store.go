package testutil

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/bull/codeqa/internal/storage"
)

// MemoryStore is an in-memory vector store with cosine search. It counts
// collection creations and upsert calls so tests can assert on idempotence.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memCollection
	aliases     map[string]string
	creates     int
	upserts     int

	// FailUpsert, when set, is returned by every UpsertPoints call.
	FailUpsert error
	// FailExists, when set, is returned by every CollectionExists call.
	FailExists error
	// Unhealthy, when set, is returned by Health.
	Unhealthy error
}

type memCollection struct {
	size   uint64
	points []*storage.Point
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memCollection),
		aliases:     make(map[string]string),
	}
}

func (s *MemoryStore) resolve(name string) (*memCollection, bool) {
	if target, ok := s.aliases[name]; ok {
		name = target
	}
	c, ok := s.collections[name]
	return c, ok
}

func (s *MemoryStore) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailExists != nil {
		return false, s.FailExists
	}
	_, ok := s.resolve(name)
	return ok, nil
}

func (s *MemoryStore) CreateCollection(_ context.Context, name string, spec storage.CollectionSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return nil
	}
	s.collections[name] = &memCollection{size: spec.Size}
	s.creates++
	return nil
}

func (s *MemoryStore) RecreateCollection(_ context.Context, name string, spec storage.CollectionSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[name] = &memCollection{size: spec.Size}
	s.creates++
	return nil
}

func (s *MemoryStore) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	for alias, target := range s.aliases {
		if target == name {
			delete(s.aliases, alias)
		}
	}
	return nil
}

func (s *MemoryStore) UpsertPoints(_ context.Context, collection string, points []*storage.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.FailUpsert != nil {
		return s.FailUpsert
	}

	c, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, collection)
	}
	for _, p := range points {
		if uint64(len(p.Vector)) != c.size {
			return fmt.Errorf("%w: got %d, expected %d", storage.ErrDimensionMismatch, len(p.Vector), c.size)
		}
	}
	c.points = append(c.points, points...)
	return nil
}

func (s *MemoryStore) PublishAlias(_ context.Context, alias, collection string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection]; !ok {
		return "", fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, collection)
	}
	previous := s.aliases[alias]
	s.aliases[alias] = collection
	return previous, nil
}

// Search ranks points by cosine similarity. MMR requests are served as
// plain similarity.
func (s *MemoryStore) Search(_ context.Context, req storage.SearchRequest) ([]storage.ScoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.resolve(req.Collection)
	if !ok || req.TopK <= 0 {
		return nil, nil
	}

	results := make([]storage.ScoredChunk, 0, len(c.points))
	for _, p := range c.points {
		results = append(results, storage.ScoredChunk{
			ID:    p.ID,
			Chunk: p.Chunk,
			Score: cosine(req.Vector, p.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > req.TopK {
		results = results[:req.TopK]
	}
	return results, nil
}

// Creates returns how many collections were created or recreated.
func (s *MemoryStore) Creates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

// Upserts returns how many UpsertPoints calls were made.
func (s *MemoryStore) Upserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

// Points returns the points stored under name, following aliases.
func (s *MemoryStore) Points(name string) []*storage.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.resolve(name)
	if !ok {
		return nil
	}
	return append([]*storage.Point(nil), c.points...)
}

// Collections returns the physical collection names in sorted order.
func (s *MemoryStore) Collections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListRepositories returns aliases and non-staging collections, like
// storage.QdrantStorage.
func (s *MemoryStore) ListRepositories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	for alias := range s.aliases {
		seen[alias] = true
	}
	for name := range s.collections {
		if !strings.Contains(name, storage.StagingInfix) {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetCollectionInfo reports the point count behind name, resolving aliases.
func (s *MemoryStore) GetCollectionInfo(_ context.Context, name string) (*storage.CollectionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	collection := name
	if target, ok := s.aliases[name]; ok {
		collection = target
	}
	c, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
	}
	return &storage.CollectionInfo{
		Name:        name,
		Collection:  collection,
		PointsCount: uint64(len(c.points)),
	}, nil
}

func (s *MemoryStore) Health(context.Context) error {
	return s.Unhealthy
}

// AliasTarget returns the collection alias points at, or "".
func (s *MemoryStore) AliasTarget(alias string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aliases[alias]
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
