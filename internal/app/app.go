// Package app wires the codeqa components together from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bull/codeqa/internal/api"
	"github.com/bull/codeqa/internal/chunking"
	"github.com/bull/codeqa/internal/config"
	"github.com/bull/codeqa/internal/embedding"
	"github.com/bull/codeqa/internal/github"
	"github.com/bull/codeqa/internal/ingest"
	"github.com/bull/codeqa/internal/llm"
	mcpserver "github.com/bull/codeqa/internal/mcp"
	"github.com/bull/codeqa/internal/rag"
	"github.com/bull/codeqa/internal/repo"
	"github.com/bull/codeqa/internal/storage"
)

// Store is everything the application needs from the vector database.
type Store interface {
	ingest.VectorStore
	rag.Searcher
	mcpserver.RepositoryLister
	Health(ctx context.Context) error
}

// Deps are the external clients an App is assembled from.
type Deps struct {
	Store    Store
	Embedder embedding.Embedder
	Fuser    embedding.Fuser
	Chat     llm.ChatModel
	// Prober is optional; when set, repositories are looked up on GitHub
	// before cloning.
	Prober repo.Prober
}

// App holds the long-lived components shared by the HTTP server, the MCP
// server and the CLI.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Store    Store
	Pipeline *ingest.Pipeline
	Composer *rag.Composer

	closers []func() error
}

// New connects to Qdrant and OpenAI (and GitHub when probing is enabled)
// and assembles the App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.NewQdrantStorage(ctx, storage.Config{
		Host:       cfg.VectorStore.Host,
		Port:       cfg.VectorStore.Port,
		APIKey:     cfg.VectorStore.APIKey,
		UseTLS:     cfg.VectorStore.UseTLS,
		VectorName: cfg.VectorStore.VectorName,
	})
	if err != nil {
		return nil, err
	}

	embeddingClient, err := embedding.NewClient("", cfg.Embedding.BaseURL)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	chatClient := embeddingClient
	if cfg.LLM.BaseURL != cfg.Embedding.BaseURL {
		chatClient, err = embedding.NewClient("", cfg.LLM.BaseURL)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to create chat client: %w", err)
		}
	}

	deps := Deps{
		Store: store,
		Embedder: embedding.NewEmbedder(embeddingClient, embedding.Options{
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			BatchSize:  cfg.Embedding.BatchSize,
		}),
		Fuser: embedding.NewFixedFuser(),
		Chat:  llm.NewClient(chatClient.Client(), cfg.LLM.ModelName, cfg.LLM.MaxContextTokens, logger),
	}

	if cfg.GitHub.Probe {
		ghClient, err := github.NewClient(ctx, cfg.GitHub.Token)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to create GitHub client: %w", err)
		}
		deps.Prober = github.NewResolver(ghClient)
	}

	a, err := Assemble(cfg, deps, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.closers = append(a.closers, store.Close)
	return a, nil
}

// Assemble builds the pipeline and composer on top of already connected
// clients. A nil logger uses slog.Default().
func Assemble(cfg *config.Config, deps Deps, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Store == nil || deps.Embedder == nil || deps.Chat == nil {
		return nil, errors.New("store, embedder and chat model are required")
	}
	if deps.Fuser == nil {
		deps.Fuser = embedding.NewFixedFuser()
	}

	language, err := chunking.ParseLanguage(cfg.Chunking.Language)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	chunker, err := chunking.NewChunker(chunking.Config{
		Language:     language,
		ChunkSize:    cfg.Chunking.ChunkSize,
		ChunkOverlap: cfg.Chunking.ChunkOverlap,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}

	idempotency, err := ingest.ParseIdempotency(cfg.VectorStore.Idempotency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	mode, err := storage.ParseSearchMode(cfg.VectorStore.SearchType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	prompt, err := NewPrompt(cfg.Prompts)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pipeline := ingest.NewPipeline(
		repo.NewFetcher(cfg.Repos.Dir, deps.Prober, logger),
		repo.NewFilter(logger),
		repo.NewCleaner(repo.TrimTrailingSpace),
		chunker,
		deps.Store,
		ingest.NewWriter(deps.Store, deps.Embedder, deps.Fuser, cfg.VectorStore.BatchSize, logger),
		ingest.Options{
			Idempotency: idempotency,
			Metrics:     ingest.NewMetrics(registry),
			Logger:      logger,
		},
	)

	composer := rag.NewComposer(deps.Embedder, deps.Store, prompt, deps.Chat, rag.Options{
		TopK:      cfg.VectorStore.TopK,
		Mode:      mode,
		Diversity: cfg.VectorStore.MMRDiversity,
		Metrics:   rag.NewMetrics(registry),
		Logger:    logger,
	})

	return &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Store:    deps.Store,
		Pipeline: pipeline,
		Composer: composer,
	}, nil
}

// NewPrompt converts the configured chat messages into a prompt template.
func NewPrompt(prompts config.Prompts) (*llm.ChatPrompt, error) {
	messages := make([]llm.MessageTemplate, 0, len(prompts.RAG.Chat))
	for _, m := range prompts.RAG.Chat {
		messages = append(messages, llm.MessageTemplate{Role: m.Role, Content: m.Content})
	}
	prompt, err := llm.NewChatPrompt(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to build chat prompt: %w", err)
	}
	return prompt, nil
}

// MCPServer registers the repository tools on a new MCP server.
func (a *App) MCPServer() (*mcpserver.Server, error) {
	return mcpserver.NewServer(&mcpserver.Config{
		Ingester: a.Pipeline,
		Answerer: a.Composer,
		Lister:   a.Store,
	})
}

// HTTPServer builds the echo server with /mcp served statelessly.
func (a *App) HTTPServer() (*api.Server, error) {
	mcpServer, err := a.MCPServer()
	if err != nil {
		return nil, err
	}
	mcpHandler := mcpserver.NewHTTPHandler(mcpServer, &mcpserver.HTTPHandlerOptions{Stateless: true})

	return api.NewServer(api.Config{
		Ingester:   a.Pipeline,
		Answerer:   a.Composer,
		Health:     a.Store,
		Gatherer:   a.Registry,
		Registerer: a.Registry,
		MCP:        mcpHandler,
		Logger:     a.Logger,
	})
}

// Close releases the external clients.
func (a *App) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}

// NewLogger creates the slog logger described by cfg, writing to w.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// RunHTTP serves the HTTP API on the configured address until ctx is done.
func (a *App) RunHTTP(ctx context.Context) error {
	server, err := a.HTTPServer()
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(a.Config.Server.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return <-errCh
}
