// Package ingest turns a GitHub repository into a collection of embedded chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bull/codeqa/internal/chunking"
	"github.com/bull/codeqa/internal/document"
	"github.com/bull/codeqa/internal/github"
	"github.com/bull/codeqa/internal/repo"
	"github.com/bull/codeqa/internal/storage"
)

// Fetcher provides a local working tree for a repository URL.
type Fetcher interface {
	Fetch(ctx context.Context, repoURL string) (*repo.Checkout, error)
}

// Options tunes a Pipeline.
type Options struct {
	Idempotency Idempotency
	Metrics     *Metrics
	Logger      *slog.Logger
}

// Pipeline orchestrates the full ingestion from fetching to storage.
type Pipeline struct {
	fetcher     Fetcher
	filter      *repo.Filter
	cleaner     *repo.Cleaner
	chunker     *chunking.Chunker
	store       VectorStore
	writer      *Writer
	idempotency Idempotency
	metrics     *Metrics
	locks       *keyLock
	logger      *slog.Logger
}

// NewPipeline creates a new ingestion pipeline with the given components.
func NewPipeline(
	fetcher Fetcher,
	filter *repo.Filter,
	cleaner *repo.Cleaner,
	chunker *chunking.Chunker,
	store VectorStore,
	writer *Writer,
	opts Options,
) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.Idempotency == "" {
		opts.Idempotency = IdempotencyPresence
	}
	return &Pipeline{
		fetcher:     fetcher,
		filter:      filter,
		cleaner:     cleaner,
		chunker:     chunker,
		store:       store,
		writer:      writer,
		idempotency: opts.Idempotency,
		metrics:     opts.Metrics,
		locks:       newKeyLock(),
		logger:      opts.Logger,
	}
}

// Ingest stores repoURL's chunks under the repository name.
//
// An invalid URL returns an error wrapping github.ErrInvalidURL. A repository
// that is already stored returns StatusAlreadyIngested without any work.
// Stage failures return a *Failure alongside a Result carrying the repo name.
func (p *Pipeline) Ingest(ctx context.Context, repoURL string, mode EmbeddingMode) (*Result, error) {
	if err := github.ValidateURL(repoURL); err != nil {
		p.metrics.record(outcomeInvalidURL)
		return nil, err
	}

	name := github.RepoName(repoURL)
	result := &Result{RepoName: name}

	unlock := p.locks.Lock(name)
	defer unlock()

	exists, err := p.store.CollectionExists(ctx, name)
	if err != nil {
		return result, p.fail(result, ReasonStorage, err)
	}
	if exists {
		p.logger.Info("Repository already ingested", "repo", name)
		p.metrics.record(outcomeAlreadyIngested)
		result.Status = StatusAlreadyIngested
		return result, nil
	}

	start := time.Now()
	p.logger.Info("Starting ingestion", "repo", name, "mode", mode.String(), "idempotency", string(p.idempotency))

	checkout, err := p.fetcher.Fetch(ctx, repoURL)
	if err != nil {
		return result, p.fail(result, ReasonFetch, err)
	}
	result.CommitSHA = checkout.CommitSHA

	chunks, err := p.process(checkout, result)
	if err != nil {
		return result, p.fail(result, ReasonProcessing, err)
	}

	if err := p.persist(ctx, name, chunks, mode, result); err != nil {
		return result, p.fail(result, ReasonStorage, err)
	}

	result.Status = StatusIngested
	result.Duration = time.Since(start)
	p.metrics.recordSuccess(result)
	p.logger.Info("Ingestion complete",
		"repo", name,
		"files", result.Files,
		"skipped", result.SkippedFiles,
		"chunks", result.Chunks,
		"collection", result.Collection,
		"duration", result.Duration,
	)

	return result, nil
}

// process runs filter, clean, file metadata, chunk and chunk metadata.
func (p *Pipeline) process(checkout *repo.Checkout, result *Result) ([]document.Chunk, error) {
	filtered, err := p.filter.Files(checkout.Repo, checkout.Name)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	result.Files = len(filtered.Files)
	result.SkippedFiles = filtered.Skipped
	p.logger.Info("Found files", "repo", checkout.Name, "files", result.Files, "skipped", result.SkippedFiles)

	files := p.cleaner.CleanAll(filtered.Files)
	repo.EnrichFileMetadata(files)

	if err := p.chunker.ChunkAll(files); err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	chunking.EnrichChunkMetadata(files)

	chunks := document.AllChunks(files)
	result.Chunks = len(chunks)
	if len(chunks) == 0 {
		return nil, ErrNoContent
	}
	p.logger.Debug("Chunked files", "repo", checkout.Name, "chunks", len(chunks))

	return chunks, nil
}

// persist writes chunks according to the idempotency mode.
func (p *Pipeline) persist(ctx context.Context, name string, chunks []document.Chunk, mode EmbeddingMode, result *Result) error {
	if p.idempotency != IdempotencyAtomic {
		result.Collection = name
		n, err := p.writer.Write(ctx, name, chunks, mode)
		result.Points = n
		return err
	}

	staging := name + storage.StagingInfix + uuid.New().String()[:8]
	result.Collection = staging

	n, err := p.writer.Write(ctx, staging, chunks, mode)
	result.Points = n
	if err != nil {
		p.dropStaging(staging)
		return err
	}

	previous, err := p.store.PublishAlias(ctx, name, staging)
	if err != nil {
		p.dropStaging(staging)
		return fmt.Errorf("publish alias: %w", err)
	}
	if previous != "" && previous != staging {
		if err := p.store.DeleteCollection(ctx, previous); err != nil {
			p.logger.Warn("Failed to delete replaced collection", "collection", previous, "error", err)
		}
	}
	p.logger.Info("Published collection", "repo", name, "collection", staging)
	return nil
}

// dropStaging removes a staging collection on its own context; the
// ingestion context may already be cancelled.
func (p *Pipeline) dropStaging(collection string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.store.DeleteCollection(ctx, collection); err != nil {
		p.logger.Warn("Failed to delete staging collection", "collection", collection, "error", err)
	}
}

func (p *Pipeline) fail(result *Result, reason Reason, err error) error {
	p.logger.Error("Ingestion failed", "repo", result.RepoName, "reason", string(reason), "error", err)
	p.metrics.recordFailure(reason)
	return &Failure{Reason: reason, RepoName: result.RepoName, Err: err}
}

// IsInvalidURL reports whether err came from URL validation.
func IsInvalidURL(err error) bool {
	return errors.Is(err, github.ErrInvalidURL)
}
