package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/codeqa/internal/github"
	"github.com/bull/codeqa/internal/ingest"
	"github.com/bull/codeqa/internal/rag"
	"github.com/bull/codeqa/internal/storage"
)

type stubIngester struct {
	result *ingest.Result
	err    error
	modes  []ingest.EmbeddingMode
}

func (s *stubIngester) Ingest(_ context.Context, repoURL string, mode ingest.EmbeddingMode) (*ingest.Result, error) {
	s.modes = append(s.modes, mode)
	if err := github.ValidateURL(repoURL); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubAnswerer struct {
	answer *rag.Answer
	err    error
}

func (s *stubAnswerer) Answer(context.Context, string, string) (*rag.Answer, error) {
	return s.answer, s.err
}

type stubLister struct {
	repos   []string
	points  map[string]uint64
	err     error
	infoErr error
}

func (s *stubLister) ListRepositories(context.Context) ([]string, error) {
	return s.repos, s.err
}

func (s *stubLister) GetCollectionInfo(_ context.Context, name string) (*storage.CollectionInfo, error) {
	if s.infoErr != nil {
		return nil, s.infoErr
	}
	return &storage.CollectionInfo{Name: name, Collection: name, PointsCount: s.points[name]}, nil
}

// connect starts server on an in-memory transport and returns a client session.
func connect(t *testing.T, cfg *Config) *mcp.ClientSession {
	t.Helper()
	if cfg.Ingester == nil {
		cfg.Ingester = &stubIngester{}
	}
	if cfg.Answerer == nil {
		cfg.Answerer = &stubAnswerer{answer: &rag.Answer{}}
	}
	if cfg.Lister == nil {
		cfg.Lister = &stubLister{}
	}
	server, err := NewServer(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool[Out any](t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (*mcp.CallToolResult, Out) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)

	var out Out
	if !res.IsError {
		raw, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return res, out
}

func errorText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)

	_, err = NewServer(&Config{Ingester: &stubIngester{}, Answerer: &stubAnswerer{}})
	assert.Error(t, err)
}

func TestListTools(t *testing.T) {
	session := connect(t, &Config{})

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"ingest_repository", "ask_repository", "list_repositories"}, names)
}

func TestIngestRepositoryTool(t *testing.T) {
	t.Run("ingested", func(t *testing.T) {
		ingester := &stubIngester{result: &ingest.Result{
			RepoName:   "demo",
			Status:     ingest.StatusIngested,
			Collection: "demo",
			Files:      2,
			Chunks:     3,
			Duration:   1500 * time.Millisecond,
		}}
		session := connect(t, &Config{Ingester: ingester})

		res, out := callTool[IngestRepositoryOutput](t, session, "ingest_repository", map[string]any{
			"repo_url":          "https://github.com/acme/demo",
			"custom_embeddings": true,
		})

		assert.False(t, res.IsError)
		assert.Equal(t, "demo", out.RepoName)
		assert.Equal(t, "ingested", out.Status)
		assert.Equal(t, 3, out.Chunks)
		assert.InDelta(t, 1.5, out.Seconds, 0.001)
		assert.Equal(t, "Ingested 3 chunks from 2 files of demo.", out.Message)
		assert.Equal(t, []ingest.EmbeddingMode{ingest.ModeCustom}, ingester.modes)
	})

	t.Run("already ingested", func(t *testing.T) {
		ingester := &stubIngester{result: &ingest.Result{RepoName: "demo", Status: ingest.StatusAlreadyIngested}}
		session := connect(t, &Config{Ingester: ingester})

		_, out := callTool[IngestRepositoryOutput](t, session, "ingest_repository", map[string]any{
			"repo_url": "https://github.com/acme/demo",
		})

		assert.Equal(t, "Repository demo is already ingested.", out.Message)
		assert.Equal(t, []ingest.EmbeddingMode{ingest.ModeLibrary}, ingester.modes)
	})

	t.Run("invalid url", func(t *testing.T) {
		session := connect(t, &Config{})

		res, _ := callTool[IngestRepositoryOutput](t, session, "ingest_repository", map[string]any{
			"repo_url": "https://gitlab.com/acme/demo",
		})

		assert.Contains(t, errorText(t, res), "invalid repository url")
	})

	t.Run("failure carries the reason", func(t *testing.T) {
		ingester := &stubIngester{err: &ingest.Failure{
			Reason:   ingest.ReasonStorage,
			RepoName: "demo",
			Err:      errors.New("upsert rejected"),
		}}
		session := connect(t, &Config{Ingester: ingester})

		res, _ := callTool[IngestRepositoryOutput](t, session, "ingest_repository", map[string]any{
			"repo_url": "https://github.com/acme/demo",
		})

		text := errorText(t, res)
		assert.Contains(t, text, "storage_error")
		assert.Contains(t, text, "upsert rejected")
	})
}

func TestAskRepositoryTool(t *testing.T) {
	t.Run("answer with sources", func(t *testing.T) {
		answerer := &stubAnswerer{answer: &rag.Answer{
			Text:    "alpha values come from compute().\n\nReferred Files: a.py",
			Sources: []string{"a.py"},
		}}
		session := connect(t, &Config{Answerer: answerer})

		res, out := callTool[AskRepositoryOutput](t, session, "ask_repository", map[string]any{
			"repo_url": "https://github.com/acme/demo",
			"query":    "Where is alpha computed?",
		})

		assert.False(t, res.IsError)
		assert.Equal(t, answerer.answer.Text, out.Answer)
		assert.Equal(t, []string{"a.py"}, out.Sources)
	})

	t.Run("no sources encodes an empty list", func(t *testing.T) {
		session := connect(t, &Config{Answerer: &stubAnswerer{answer: &rag.Answer{Text: "No code found."}}})

		res, out := callTool[AskRepositoryOutput](t, session, "ask_repository", map[string]any{
			"repo_url": "https://github.com/acme/demo",
			"query":    "Anything?",
		})

		assert.False(t, res.IsError)
		assert.NotNil(t, out.Sources)
		assert.Empty(t, out.Sources)
	})

	t.Run("retrieval failure", func(t *testing.T) {
		session := connect(t, &Config{Answerer: &stubAnswerer{err: errors.New("qdrant down")}})

		res, _ := callTool[AskRepositoryOutput](t, session, "ask_repository", map[string]any{
			"repo_url": "https://github.com/acme/demo",
			"query":    "What is this?",
		})

		assert.Contains(t, errorText(t, res), "failed to generate answer")
	})
}

func TestListRepositoriesTool(t *testing.T) {
	t.Run("lists repositories", func(t *testing.T) {
		session := connect(t, &Config{Lister: &stubLister{
			repos:  []string{"demo", "tools"},
			points: map[string]uint64{"demo": 3, "tools": 12},
		}})

		_, out := callTool[ListRepositoriesOutput](t, session, "list_repositories", map[string]any{})

		assert.Equal(t, []string{"demo", "tools"}, out.Repositories)
		assert.Equal(t, 2, out.Count)
		assert.Equal(t, []RepositorySummary{{Name: "demo", Points: 3}, {Name: "tools", Points: 12}}, out.Details)
	})

	t.Run("inspect failure", func(t *testing.T) {
		session := connect(t, &Config{Lister: &stubLister{
			repos:   []string{"demo"},
			infoErr: errors.New("collection vanished"),
		}})

		res, _ := callTool[ListRepositoriesOutput](t, session, "list_repositories", map[string]any{})

		assert.Contains(t, errorText(t, res), "failed to inspect demo")
	})

	t.Run("empty store", func(t *testing.T) {
		session := connect(t, &Config{})

		_, out := callTool[ListRepositoriesOutput](t, session, "list_repositories", map[string]any{})

		assert.NotNil(t, out.Repositories)
		assert.Zero(t, out.Count)
	})

	t.Run("store failure", func(t *testing.T) {
		session := connect(t, &Config{Lister: &stubLister{err: errors.New("connection refused")}})

		res, _ := callTool[ListRepositoriesOutput](t, session, "list_repositories", map[string]any{})

		assert.Contains(t, errorText(t, res), "qdrant_error")
	})
}
