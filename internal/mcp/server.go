package mcp

import (
	"context"
	"errors"

	"github.com/bull/codeqa/internal/ingest"
	"github.com/bull/codeqa/internal/rag"
	"github.com/bull/codeqa/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "codeqa"
	serverVersion = "v0.1.0"
)

// Ingester stores a repository in the vector store.
type Ingester interface {
	Ingest(ctx context.Context, repoURL string, mode ingest.EmbeddingMode) (*ingest.Result, error)
}

// Answerer answers a question about an ingested repository.
type Answerer interface {
	Answer(ctx context.Context, query, repoURL string) (*rag.Answer, error)
}

// RepositoryLister lists ingested repositories and their sizes.
type RepositoryLister interface {
	ListRepositories(ctx context.Context) ([]string, error)
	GetCollectionInfo(ctx context.Context, name string) (*storage.CollectionInfo, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Ingester Ingester
	Answerer Answerer
	Lister   RepositoryLister
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil || cfg.Ingester == nil || cfg.Answerer == nil || cfg.Lister == nil {
		return nil, errors.New("mcp server requires an ingester, an answerer and a lister")
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_repository",
		Description: "Clone a GitHub repository, chunk its text files and store them in the vector database. Repositories that are already stored are not ingested again.",
	}, makeIngestHandler(cfg.Ingester))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_repository",
		Description: "Answer a question about an ingested repository's code. The answer ends with the files it was based on.",
	}, makeAskHandler(cfg.Answerer))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_repositories",
		Description: "List the repositories stored in the vector database.",
	}, makeListHandler(cfg.Lister))

	return &Server{server: server}, nil
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
