package rag

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/codeqa/internal/chunking"
	"github.com/bull/codeqa/internal/document"
	"github.com/bull/codeqa/internal/embedding"
	"github.com/bull/codeqa/internal/ingest"
	"github.com/bull/codeqa/internal/llm"
	"github.com/bull/codeqa/internal/repo"
	"github.com/bull/codeqa/internal/storage"
	"github.com/bull/codeqa/internal/testutil"
)

const demoURL = "https://github.com/acme/demo"

func testPrompt(t *testing.T) *llm.ChatPrompt {
	t.Helper()
	prompt, err := llm.NewChatPrompt([]llm.MessageTemplate{
		{Role: "system", Content: "Code:\n{context}"},
		{Role: "human", Content: "{question}"},
	})
	require.NoError(t, err)
	return prompt
}

// ingestDemo ingests a local copy of acme/demo holding a.py (600 chars) and
// b.py (10 chars) into store.
func ingestDemo(t *testing.T, store *testutil.MemoryStore, embedder embedding.Embedder) {
	t.Helper()

	dir := testutil.NewGitRepo(t, "demo", "", map[string]string{
		"a.py": testutil.CodeLines("alpha", 12, 50),
		"b.py": "print(42)\n",
	})

	chunker, err := chunking.NewChunker(chunking.Config{})
	require.NoError(t, err)

	logger := testutil.DiscardLogger()
	pipeline := ingest.NewPipeline(
		repo.NewFetcher(filepath.Dir(dir), nil, logger),
		repo.NewFilter(logger),
		repo.NewCleaner(repo.TrimTrailingSpace),
		chunker,
		store,
		ingest.NewWriter(store, embedder, embedding.NewFixedFuser(), 0, logger),
		ingest.Options{Logger: logger},
	)

	result, err := pipeline.Ingest(context.Background(), demoURL, ingest.ModeLibrary)
	require.NoError(t, err)
	require.Equal(t, 3, result.Points)
}

func TestAnswer_EndToEnd(t *testing.T) {
	store := testutil.NewMemoryStore()
	embedder := testutil.NewHashEmbedder(256)
	ingestDemo(t, store, embedder)

	model := &testutil.FakeChatModel{Reply: "alpha values come from compute()."}
	composer := NewComposer(embedder, store, testPrompt(t), model, Options{TopK: 2, Logger: testutil.DiscardLogger()})

	answer, err := composer.Answer(context.Background(), "where is alpha computed", demoURL)
	require.NoError(t, err)

	assert.Equal(t, "alpha values come from compute().\n\nReferred Files: a.py", answer.Text)
	assert.Equal(t, []string{"a.py"}, answer.Sources)
	require.Len(t, answer.Chunks, 2)
	for _, chunk := range answer.Chunks {
		assert.Equal(t, "a.py", chunk.Chunk.Metadata.File.FileName)
	}

	calls := model.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 2)
	assert.Contains(t, calls[0][0].GetContent(), "alpha_00 = compute(00)")
	assert.NotContains(t, calls[0][0].GetContent(), "print(42)")
	assert.Equal(t, "where is alpha computed", calls[0][1].GetContent())
}

func TestAnswer_FewerPointsThanTopK(t *testing.T) {
	store := testutil.NewMemoryStore()
	embedder := testutil.NewHashEmbedder(256)
	ingestDemo(t, store, embedder)

	composer := NewComposer(embedder, store, testPrompt(t), &testutil.FakeChatModel{Reply: "ok"}, Options{TopK: 10})

	answer, err := composer.Answer(context.Background(), "anything", demoURL+".git")
	require.NoError(t, err)

	assert.Len(t, answer.Chunks, 3)
	assert.Equal(t, []string{"a.py", "b.py"}, answer.Sources)
	assert.True(t, strings.HasSuffix(answer.Text, "\n\nReferred Files: a.py\nb.py"))
}

func TestAnswer_MissingCollection(t *testing.T) {
	store := testutil.NewMemoryStore()
	model := &testutil.FakeChatModel{Reply: "I don't know."}
	composer := NewComposer(testutil.NewHashEmbedder(16), store, testPrompt(t), model, Options{})

	answer, err := composer.Answer(context.Background(), "what is this?", "https://github.com/acme/never")
	require.NoError(t, err)

	assert.Equal(t, "I don't know.\n\nReferred Files: ", answer.Text)
	assert.Empty(t, answer.Sources)
	assert.Empty(t, answer.Chunks)
}

type failingSearcher struct{ err error }

func (s failingSearcher) Search(context.Context, storage.SearchRequest) ([]storage.ScoredChunk, error) {
	return nil, s.err
}

func TestAnswer_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("embedding", func(t *testing.T) {
		embedder := testutil.NewHashEmbedder(16)
		embedder.Err = errors.New("quota")
		composer := NewComposer(embedder, testutil.NewMemoryStore(), testPrompt(t), &testutil.FakeChatModel{}, Options{})

		_, err := composer.Answer(ctx, "q", demoURL)
		assert.ErrorIs(t, err, embedder.Err)
	})

	t.Run("search", func(t *testing.T) {
		cause := errors.New("qdrant down")
		composer := NewComposer(testutil.NewHashEmbedder(16), failingSearcher{cause}, testPrompt(t), &testutil.FakeChatModel{}, Options{})

		_, err := composer.Answer(ctx, "q", demoURL)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("model", func(t *testing.T) {
		model := &testutil.FakeChatModel{Err: errors.New("timeout")}
		composer := NewComposer(testutil.NewHashEmbedder(16), testutil.NewMemoryStore(), testPrompt(t), model, Options{})

		_, err := composer.Answer(ctx, "q", demoURL)
		assert.ErrorIs(t, err, model.Err)
	})
}

// recordingSearcher captures the last request.
type recordingSearcher struct {
	req storage.SearchRequest
}

func (s *recordingSearcher) Search(_ context.Context, req storage.SearchRequest) ([]storage.ScoredChunk, error) {
	s.req = req
	return []storage.ScoredChunk{
		{Chunk: document.Chunk{Text: "x", Metadata: document.ChunkMeta{File: document.FileMetadata{FileName: "z.go"}}}},
		{Chunk: document.Chunk{Text: "y", Metadata: document.ChunkMeta{File: document.FileMetadata{FileName: "z.go"}}}},
	}, nil
}

func TestAnswer_SearchRequest(t *testing.T) {
	searcher := &recordingSearcher{}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	composer := NewComposer(testutil.NewHashEmbedder(8), searcher, testPrompt(t), &testutil.FakeChatModel{Reply: "r"}, Options{
		TopK:      3,
		Mode:      storage.SearchMMR,
		Diversity: 0.7,
		Metrics:   metrics,
	})

	answer, err := composer.Answer(context.Background(), "q", "https://github.com/acme/tools.git")
	require.NoError(t, err)

	assert.Equal(t, "tools", searcher.req.Collection)
	assert.Equal(t, 3, searcher.req.TopK)
	assert.Equal(t, storage.SearchMMR, searcher.req.Mode)
	assert.InDelta(t, 0.7, searcher.req.Diversity, 1e-6)
	assert.Len(t, searcher.req.Vector, 8)

	assert.Equal(t, []string{"z.go"}, answer.Sources)
	assert.Equal(t, "r\n\nReferred Files: z.go", answer.Text)
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.answers.WithLabelValues(outcomeAnswered)))
}
