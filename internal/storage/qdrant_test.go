//go:build integration
// +build integration

package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/codeqa/internal/document"
)

// setupTestStorage creates a storage instance against a local Qdrant and a
// throwaway collection. Skips test if Qdrant is not running.
func setupTestStorage(t *testing.T) (*QdrantStorage, string) {
	storage, err := NewQdrantStorage(context.Background(), Config{Host: "localhost", Port: 6334})
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	name := "test_" + uuid.New().String()[:8]
	err = storage.CreateCollection(context.Background(), name, CollectionSpec{Size: 4})
	require.NoError(t, err, "Failed to create collection")

	t.Cleanup(func() {
		_ = storage.DeleteCollection(context.Background(), name)
		storage.Close()
	})
	return storage, name
}

func testPoint(text string, index int, vector ...float32) *Point {
	return &Point{
		ID:     uuid.New().String(),
		Vector: vector,
		Chunk: document.Chunk{
			Text: text,
			Metadata: document.ChunkMeta{
				File:  document.FileMetadata{FileName: "main.py", Path: "main.py", Length: 100},
				Chunk: document.ChunkMetadata{Index: index, Length: len(text)},
			},
		},
	}
}

func TestUpsertSearchRoundTrip(t *testing.T) {
	storage, name := setupTestStorage(t)
	ctx := context.Background()

	points := []*Point{
		testPoint("first", 0, 1, 0, 0, 0),
		testPoint("second", 1, 0, 1, 0, 0),
		testPoint("third", 2, 0, 0, 1, 0),
	}
	require.NoError(t, storage.UpsertPoints(ctx, name, points))

	results, err := storage.Search(ctx, SearchRequest{
		Collection: name,
		Vector:     []float32{0.9, 0.1, 0, 0},
		TopK:       2,
		Mode:       SearchSimilarity,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "first", results[0].Chunk.Text)
	assert.Equal(t, "main.py", results[0].Chunk.Metadata.File.FileName)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)

	info, err := storage.GetCollectionInfo(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), info.PointsCount)
}

func TestSearchMMR(t *testing.T) {
	storage, name := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertPoints(ctx, name, []*Point{
		testPoint("a", 0, 1, 0, 0, 0),
		testPoint("b", 1, 0.99, 0.01, 0, 0),
		testPoint("c", 2, 0, 1, 0, 0),
	}))

	results, err := storage.Search(ctx, SearchRequest{
		Collection: name,
		Vector:     []float32{1, 0, 0, 0},
		TopK:       2,
		Mode:       SearchMMR,
		Diversity:  0.5,
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchMissingCollection(t *testing.T) {
	storage, _ := setupTestStorage(t)

	results, err := storage.Search(context.Background(), SearchRequest{
		Collection: "does_not_exist_" + uuid.New().String()[:8],
		Vector:     []float32{1, 0, 0, 0},
		TopK:       4,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUpsertDimensionMismatch(t *testing.T) {
	storage, name := setupTestStorage(t)

	err := storage.UpsertPoints(context.Background(), name, []*Point{
		testPoint("a", 0, 1, 0, 0, 0),
		testPoint("b", 1, 1, 0),
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestPublishAlias(t *testing.T) {
	storage, first := setupTestStorage(t)
	ctx := context.Background()

	second := first + StagingInfix + "next"
	require.NoError(t, storage.CreateCollection(ctx, second, CollectionSpec{Size: 4}))
	t.Cleanup(func() { _ = storage.DeleteCollection(context.Background(), second) })

	alias := "alias_" + uuid.New().String()[:8]

	previous, err := storage.PublishAlias(ctx, alias, first)
	require.NoError(t, err)
	assert.Empty(t, previous)

	previous, err = storage.PublishAlias(ctx, alias, second)
	require.NoError(t, err)
	assert.Equal(t, first, previous)

	exists, err := storage.CollectionExists(ctx, alias)
	require.NoError(t, err)
	assert.True(t, exists)

	repos, err := storage.ListRepositories(ctx)
	require.NoError(t, err)
	assert.Contains(t, repos, alias)
	assert.NotContains(t, repos, second)

	info, err := storage.GetCollectionInfo(ctx, alias)
	require.NoError(t, err)
	assert.Equal(t, alias, info.Name)
	assert.Equal(t, second, info.Collection)

	_, err = storage.GetCollectionInfo(ctx, "missing_"+uuid.New().String()[:8])
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	_, err = storage.PublishAlias(ctx, alias, first)
	require.NoError(t, err)
}
