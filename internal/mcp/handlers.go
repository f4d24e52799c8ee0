package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/bull/codeqa/internal/ingest"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// makeIngestHandler creates the ingest_repository tool handler.
// Tool errors are reported to the client as IsError results.
func makeIngestHandler(ingester Ingester) func(
	context.Context, *mcp.CallToolRequest, IngestRepositoryInput,
) (*mcp.CallToolResult, IngestRepositoryOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestRepositoryInput) (
		*mcp.CallToolResult, IngestRepositoryOutput, error,
	) {
		result, err := ingester.Ingest(ctx, input.RepoURL, ingest.ModeFor(input.CustomEmbeddings))
		if err != nil {
			if ingest.IsInvalidURL(err) {
				return nil, IngestRepositoryOutput{}, err
			}
			var failure *ingest.Failure
			if errors.As(err, &failure) {
				return nil, IngestRepositoryOutput{}, fmt.Errorf("%s_error: %w", failure.Reason, err)
			}
			return nil, IngestRepositoryOutput{}, fmt.Errorf("ingestion failed: %w", err)
		}

		out := IngestRepositoryOutput{
			RepoName:     result.RepoName,
			Status:       string(result.Status),
			Collection:   result.Collection,
			Files:        result.Files,
			SkippedFiles: result.SkippedFiles,
			Chunks:       result.Chunks,
			CommitSHA:    result.CommitSHA,
			Seconds:      result.Duration.Seconds(),
		}
		if result.Status == ingest.StatusAlreadyIngested {
			out.Message = fmt.Sprintf("Repository %s is already ingested.", result.RepoName)
		} else {
			out.Message = fmt.Sprintf("Ingested %d chunks from %d files of %s.", result.Chunks, result.Files, result.RepoName)
		}
		return nil, out, nil
	}
}

// makeAskHandler creates the ask_repository tool handler.
func makeAskHandler(answerer Answerer) func(
	context.Context, *mcp.CallToolRequest, AskRepositoryInput,
) (*mcp.CallToolResult, AskRepositoryOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskRepositoryInput) (
		*mcp.CallToolResult, AskRepositoryOutput, error,
	) {
		if input.Query == "" {
			return nil, AskRepositoryOutput{}, errors.New("query is required")
		}

		answer, err := answerer.Answer(ctx, input.Query, input.RepoURL)
		if err != nil {
			return nil, AskRepositoryOutput{}, fmt.Errorf("failed to generate answer: %w", err)
		}

		sources := answer.Sources
		if sources == nil {
			sources = []string{}
		}
		return nil, AskRepositoryOutput{Answer: answer.Text, Sources: sources}, nil
	}
}

// makeListHandler creates the list_repositories tool handler.
func makeListHandler(lister RepositoryLister) func(
	context.Context, *mcp.CallToolRequest, ListRepositoriesInput,
) (*mcp.CallToolResult, ListRepositoriesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListRepositoriesInput) (
		*mcp.CallToolResult, ListRepositoriesOutput, error,
	) {
		repos, err := lister.ListRepositories(ctx)
		if err != nil {
			return nil, ListRepositoriesOutput{}, fmt.Errorf("qdrant_error: failed to list repositories: %w", err)
		}
		if repos == nil {
			repos = []string{}
		}

		details := make([]RepositorySummary, 0, len(repos))
		for _, name := range repos {
			info, err := lister.GetCollectionInfo(ctx, name)
			if err != nil {
				return nil, ListRepositoriesOutput{}, fmt.Errorf("qdrant_error: failed to inspect %s: %w", name, err)
			}
			details = append(details, RepositorySummary{Name: name, Points: info.PointsCount})
		}

		return nil, ListRepositoriesOutput{Repositories: repos, Details: details, Count: len(repos)}, nil
	}
}
