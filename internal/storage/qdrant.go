// Package storage keeps repository chunks in Qdrant, one collection per repository.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// StagingInfix separates a repository name from the suffix of its staging
// collections. Staging collections are hidden from listings.
const StagingInfix = "__staging_"

// Config holds the connection settings for Qdrant.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	VectorName string
}

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client     *qdrant.Client
	host       string
	port       int
	vectorName string
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(ctx context.Context, cfg Config) (*QdrantStorage, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	vectorName := cfg.VectorName
	if vectorName == "" {
		vectorName = DefaultVectorName
	}

	storage := &QdrantStorage{
		client:     client,
		host:       cfg.Host,
		port:       cfg.Port,
		vectorName: vectorName,
	}

	if err := storage.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

// newBackOff is the retry policy shared by health checks and upserts.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, newBackOff(ctx))
}

// Health performs a single health check against Qdrant.
// Returns nil if Qdrant is healthy, error otherwise.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// VectorName returns the named vector slot used for chunk vectors.
func (s *QdrantStorage) VectorName() string {
	return s.vectorName
}

// CollectionExists reports whether name is a collection or an alias.
// Either one marks a repository as ingested.
func (s *QdrantStorage) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if exists {
		return true, nil
	}

	target, err := s.aliasTarget(ctx, name)
	if err != nil {
		return false, err
	}
	return target != "", nil
}

// CreateCollection creates name with a cosine named vector of spec.Size
// dimensions unless it already exists.
func (s *QdrantStorage) CreateCollection(ctx context.Context, name string, spec CollectionSpec) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			s.vectorName: {
				Size:     spec.Size,
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	return nil
}

// RecreateCollection drops name if present and creates it empty.
func (s *QdrantStorage) RecreateCollection(ctx context.Context, name string, spec CollectionSpec) error {
	if err := s.DeleteCollection(ctx, name); err != nil {
		return err
	}
	return s.CreateCollection(ctx, name, spec)
}

// DeleteCollection removes name. Missing collections are not an error.
func (s *QdrantStorage) DeleteCollection(ctx context.Context, name string) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	return nil
}

// PublishAlias points alias at collection in a single alias update and
// returns the collection it pointed at before, if any.
func (s *QdrantStorage) PublishAlias(ctx context.Context, alias, collection string) (string, error) {
	previous, err := s.aliasTarget(ctx, alias)
	if err != nil {
		return "", err
	}

	var ops []*qdrant.AliasOperations
	if previous != "" {
		ops = append(ops, qdrant.NewAliasDelete(alias))
	}
	ops = append(ops, qdrant.NewAliasCreate(alias, collection))

	if err := s.client.UpdateAliases(ctx, ops); err != nil {
		return "", fmt.Errorf("failed to point alias %s at %s: %w", alias, collection, err)
	}
	return previous, nil
}

func (s *QdrantStorage) aliasTarget(ctx context.Context, alias string) (string, error) {
	aliases, err := s.client.ListAliases(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list aliases: %w", err)
	}
	for _, a := range aliases {
		if a.GetAliasName() == alias {
			return a.GetCollectionName(), nil
		}
	}
	return "", nil
}

// UpsertPoints writes one batch of points, retrying with backoff.
// Every vector must have spec.Size dimensions; callers batch.
func (s *QdrantStorage) UpsertPoints(ctx context.Context, collection string, points []*Point) error {
	if len(points) == 0 {
		return nil
	}

	dim := len(points[0].Vector)
	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		if len(p.Vector) != dim {
			return fmt.Errorf("%w: point %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(p.Vector), dim)
		}
		payload, err := qdrant.TryValueMap(chunkPayload(p.Chunk))
		if err != nil {
			return fmt.Errorf("point %d payload: %w", i, err)
		}
		structs[i] = &qdrant.PointStruct{
			Id: qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				s.vectorName: qdrant.NewVector(p.Vector...),
			}),
			Payload: payload,
		}
	}

	return s.upsertWithRetry(ctx, collection, structs)
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}

	if err := backoff.Retry(operation, newBackOff(ctx)); err != nil {
		return fmt.Errorf("failed to upsert %d points into %s: %w", len(points), collection, err)
	}
	return nil
}

// Search returns up to req.TopK chunks nearest to req.Vector, best first.
// A missing collection yields no results rather than an error.
func (s *QdrantStorage) Search(ctx context.Context, req SearchRequest) ([]ScoredChunk, error) {
	if req.TopK <= 0 {
		return nil, nil
	}

	var query *qdrant.Query
	switch req.Mode {
	case SearchMMR:
		query = qdrant.NewQueryMMR(qdrant.NewVectorInput(req.Vector...), &qdrant.Mmr{
			Diversity:       qdrant.PtrOf(req.Diversity),
			CandidatesLimit: qdrant.PtrOf(uint32(req.TopK * 4)),
		})
	default:
		query = qdrant.NewQuery(req.Vector...)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: req.Collection,
		Query:          query,
		Using:          &s.vectorName,
		Limit:          qdrant.PtrOf(uint64(req.TopK)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		if exists, existsErr := s.CollectionExists(ctx, req.Collection); existsErr == nil && !exists {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to search %s: %w", req.Collection, err)
	}

	chunks := make([]ScoredChunk, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, ScoredChunk{
			ID:    result.GetId().GetUuid(),
			Chunk: chunkFromPayload(result.GetPayload()),
			Score: float64(result.GetScore()),
		})
	}

	return chunks, nil
}

// ListRepositories returns the ingested repository names: aliases plus
// collections that are neither staging collections nor alias targets.
func (s *QdrantStorage) ListRepositories(ctx context.Context) ([]string, error) {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	aliases, err := s.client.ListAliases(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list aliases: %w", err)
	}

	names := make(map[string]struct{})
	for _, a := range aliases {
		names[a.GetAliasName()] = struct{}{}
	}
	for _, c := range collections {
		if strings.Contains(c, StagingInfix) {
			continue
		}
		names[c] = struct{}{}
	}

	repos := make([]string, 0, len(names))
	for name := range names {
		repos = append(repos, name)
	}
	sort.Strings(repos)
	return repos, nil
}

// GetCollectionInfo returns the point count of a repository. name may be an
// alias, in which case the collection it points at is inspected.
func (s *QdrantStorage) GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	collection, err := s.aliasTarget(ctx, name)
	if err != nil {
		return nil, err
	}
	if collection == "" {
		exists, err := s.client.CollectionExists(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to check collection %s: %w", name, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		collection = name
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %s: %w", collection, err)
	}

	return &CollectionInfo{
		Name:        name,
		Collection:  collection,
		PointsCount: info.GetPointsCount(),
	}, nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
