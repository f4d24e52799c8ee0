package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bull/codeqa/internal/document"
	"github.com/bull/codeqa/internal/embedding"
	"github.com/bull/codeqa/internal/storage"
)

// VectorStore is the storage the pipeline writes to.
type VectorStore interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, spec storage.CollectionSpec) error
	RecreateCollection(ctx context.Context, name string, spec storage.CollectionSpec) error
	DeleteCollection(ctx context.Context, name string) error
	UpsertPoints(ctx context.Context, collection string, points []*storage.Point) error
	PublishAlias(ctx context.Context, alias, collection string) (string, error)
}

// Writer turns chunks into points and stores them in one collection.
type Writer struct {
	store     VectorStore
	embedder  embedding.Embedder
	fuser     embedding.Fuser
	batchSize int
	logger    *slog.Logger
}

// NewWriter creates a writer. batchSize <= 0 selects storage.DefaultBatchSize.
func NewWriter(store VectorStore, embedder embedding.Embedder, fuser embedding.Fuser, batchSize int, logger *slog.Logger) *Writer {
	if batchSize <= 0 {
		batchSize = storage.DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		store:     store,
		embedder:  embedder,
		fuser:     fuser,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Write computes a vector per chunk, prepares the collection and upserts the
// points in batches. It returns the number of points written.
//
// Library mode recreates the collection sized to the embedding; custom mode
// creates it, when absent, sized to the fuser's dimension.
func (w *Writer) Write(ctx context.Context, collection string, chunks []document.Chunk, mode EmbeddingMode) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	var (
		vectors [][]float32
		err     error
	)
	switch mode {
	case ModeCustom:
		vectors, err = w.fuse(ctx, chunks)
		if err != nil {
			return 0, err
		}
		spec := storage.CollectionSpec{Size: uint64(w.fuser.Dimension())}
		if err := w.store.CreateCollection(ctx, collection, spec); err != nil {
			return 0, err
		}
	default:
		vectors, err = w.embed(ctx, chunks)
		if err != nil {
			return 0, err
		}
		spec := storage.CollectionSpec{Size: uint64(len(vectors[0]))}
		if err := w.store.RecreateCollection(ctx, collection, spec); err != nil {
			return 0, err
		}
	}

	points := make([]*storage.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = &storage.Point{
			ID:     uuid.New().String(),
			Vector: vectors[i],
			Chunk:  chunk,
		}
	}

	for start := 0; start < len(points); start += w.batchSize {
		end := min(start+w.batchSize, len(points))
		if err := w.store.UpsertPoints(ctx, collection, points[start:end]); err != nil {
			return start, fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}
		w.logger.Debug("Upserted batch", "collection", collection, "from", start, "to", end)
	}

	return len(points), nil
}

func (w *Writer) embed(ctx context.Context, chunks []document.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := w.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	if len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embeddings: empty vector")
	}
	return vectors, nil
}

func (w *Writer) fuse(ctx context.Context, chunks []document.Chunk) ([][]float32, error) {
	dim := w.fuser.Dimension()
	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		v, err := w.fuser.Fuse(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("fuse chunk %d of %s: %w", chunk.Metadata.Chunk.Index, chunk.Metadata.File.Path, err)
		}
		if len(v) != dim {
			return nil, fmt.Errorf("%w: fused vector has %d dimensions, collection expects %d",
				storage.ErrDimensionMismatch, len(v), dim)
		}
		vectors[i] = v
	}
	return vectors, nil
}
