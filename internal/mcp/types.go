// Package mcp exposes repository ingestion and question answering as MCP tools.
package mcp

// IngestRepositoryInput defines the input parameters for the ingest_repository tool.
type IngestRepositoryInput struct {
	// RepoURL is the GitHub repository to ingest.
	RepoURL string `json:"repo_url" jsonschema:"GitHub repository URL, e.g. https://github.com/owner/project"`
	// CustomEmbeddings selects the fixed custom vectors instead of the embedding model.
	CustomEmbeddings bool `json:"custom_embeddings,omitempty" jsonschema:"Store the fixed custom vectors instead of model embeddings"`
}

// IngestRepositoryOutput summarizes an ingestion.
type IngestRepositoryOutput struct {
	RepoName     string  `json:"repo_name"`
	Status       string  `json:"status"`
	Collection   string  `json:"collection,omitempty"`
	Files        int     `json:"files"`
	SkippedFiles int     `json:"skipped_files"`
	Chunks       int     `json:"chunks"`
	CommitSHA    string  `json:"commit_sha,omitempty"`
	Seconds      float64 `json:"seconds"`
	Message      string  `json:"message"`
}

// AskRepositoryInput defines the input parameters for the ask_repository tool.
type AskRepositoryInput struct {
	// RepoURL names the ingested repository to search.
	RepoURL string `json:"repo_url" jsonschema:"GitHub repository URL that was ingested earlier"`
	// Query is the question about the code.
	Query string `json:"query" jsonschema:"Question about the repository's code"`
}

// AskRepositoryOutput contains the generated answer.
type AskRepositoryOutput struct {
	// Answer is the model reply followed by the referred file names.
	Answer string `json:"answer"`
	// Sources lists the distinct file names of the retrieved chunks.
	Sources []string `json:"sources"`
}

// ListRepositoriesInput takes no parameters.
type ListRepositoriesInput struct{}

// RepositorySummary is one stored repository.
type RepositorySummary struct {
	Name   string `json:"name"`
	Points uint64 `json:"points"`
}

// ListRepositoriesOutput lists the ingested repositories.
type ListRepositoriesOutput struct {
	Repositories []string            `json:"repositories"`
	Details      []RepositorySummary `json:"details"`
	Count        int                 `json:"count"`
}
