// Package rag answers questions about an ingested repository from its
// nearest chunks.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/bull/codeqa/internal/embedding"
	"github.com/bull/codeqa/internal/github"
	"github.com/bull/codeqa/internal/llm"
	"github.com/bull/codeqa/internal/storage"
)

// DefaultTopK is how many chunks are retrieved per question.
const DefaultTopK = 4

// referredFilesHeader introduces the source list appended to every answer,
// empty when nothing was retrieved.
const referredFilesHeader = "\n\nReferred Files: "

// Searcher finds the chunks nearest to a query vector.
type Searcher interface {
	Search(ctx context.Context, req storage.SearchRequest) ([]storage.ScoredChunk, error)
}

// Answer is a composed reply.
type Answer struct {
	Text    string // Model output followed by the referred files
	Sources []string
	Chunks  []storage.ScoredChunk
}

// Options tunes retrieval.
type Options struct {
	TopK      int
	Mode      storage.SearchMode
	Diversity float32
	Metrics   *Metrics
	Logger    *slog.Logger
}

// Composer runs retrieval then generation.
type Composer struct {
	embedder embedding.Embedder
	searcher Searcher
	prompt   *llm.ChatPrompt
	model    llm.ChatModel
	opts     Options
	logger   *slog.Logger
}

// NewComposer creates a composer.
func NewComposer(embedder embedding.Embedder, searcher Searcher, prompt *llm.ChatPrompt, model llm.ChatModel, opts Options) *Composer {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Mode == "" {
		opts.Mode = storage.SearchSimilarity
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Composer{
		embedder: embedder,
		searcher: searcher,
		prompt:   prompt,
		model:    model,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Answer retrieves the chunks of repoURL's collection nearest to query and
// asks the model to answer from them.
func (c *Composer) Answer(ctx context.Context, query, repoURL string) (*Answer, error) {
	answer, err := c.answer(ctx, query, github.RepoName(repoURL))
	if err != nil {
		c.opts.Metrics.answers.WithLabelValues(outcomeFailed).Inc()
		c.logger.Error("Failed to generate answer", "repo", repoURL, "error", err)
		return nil, err
	}
	c.opts.Metrics.answers.WithLabelValues(outcomeAnswered).Inc()
	c.opts.Metrics.retrieved.Observe(float64(len(answer.Chunks)))
	return answer, nil
}

func (c *Composer) answer(ctx context.Context, query, repoName string) (*Answer, error) {
	vector, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := c.searcher.Search(ctx, storage.SearchRequest{
		Collection: repoName,
		Vector:     vector,
		TopK:       c.opts.TopK,
		Mode:       c.opts.Mode,
		Diversity:  c.opts.Diversity,
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", repoName, err)
	}
	c.logger.Debug("Retrieved chunks", "repo", repoName, "count", len(chunks))

	messages, err := c.prompt.Format(joinTexts(chunks), query)
	if err != nil {
		return nil, err
	}

	reply, err := c.model.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	sources := referredFiles(chunks)
	text := reply + referredFilesHeader + strings.Join(sources, "\n")

	return &Answer{
		Text:    text,
		Sources: sources,
		Chunks:  chunks,
	}, nil
}

func joinTexts(chunks []storage.ScoredChunk) string {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Chunk.Text
	}
	return strings.Join(texts, "\n\n")
}

// referredFiles returns the distinct file names of chunks, sorted.
func referredFiles(chunks []storage.ScoredChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	var names []string
	for _, chunk := range chunks {
		name := chunk.Chunk.Metadata.File.FileName
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
