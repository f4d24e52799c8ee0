package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bull/codeqa/internal/ingest"
)

// fallbackAnswer is printed when no answer could be generated.
const fallbackAnswer = "Sorry, I could not find an answer to that question."

var customEmbeddings bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <repo-url>",
	Short: "Ingest a GitHub repository into the vector store",
	Long: `Clones the repository (or reuses an earlier clone), keeps its text files,
splits them into chunks and stores one point per chunk in a collection named
after the repository.

A repository whose collection already exists is not ingested again.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask <repo-url> <question>",
	Short: "Ask a question about an ingested repository",
	Args:  cobra.ExactArgs(2),
	RunE:  runAsk,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serves /healthcheck, /ingest and /generate, plus /readyz, /metrics and the
MCP streamable HTTP endpoint at /mcp.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func init() {
	ingestCmd.Flags().BoolVar(&customEmbeddings, "custom-embeddings", false, "store the fixed custom vectors instead of model embeddings")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	repoURL := args[0]

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(out, "Ingesting %s (%s embeddings)...\n", repoURL, ingest.ModeFor(customEmbeddings))

	result, err := a.Pipeline.Ingest(ctx, repoURL, ingest.ModeFor(customEmbeddings))
	if err != nil {
		return err
	}

	if result.Status == ingest.StatusAlreadyIngested {
		fmt.Fprintln(out, color.YellowString("Repository %s is already ingested.", result.RepoName))
		return nil
	}

	fmt.Fprintln(out, color.GreenString("Ingested to Vector DB"))
	fmt.Fprintf(out, "  Repository: %s\n", result.RepoName)
	fmt.Fprintf(out, "  Collection: %s\n", result.Collection)
	fmt.Fprintf(out, "  Files: %d (skipped %d)\n", result.Files, result.SkippedFiles)
	fmt.Fprintf(out, "  Chunks: %d\n", result.Chunks)
	if result.CommitSHA != "" {
		fmt.Fprintf(out, "  Commit: %s\n", result.CommitSHA)
	}
	fmt.Fprintf(out, "  Duration: %s\n", result.Duration.Round(time.Millisecond))
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.Composer.Answer(ctx, args[1], args[0])
	if err != nil {
		a.Logger.Error("Failed to answer question", "error", err)
		fmt.Fprintln(out, color.YellowString(fallbackAnswer))
		return nil
	}

	fmt.Fprintln(out, answer.Text)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.RunHTTP(ctx)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	server, err := a.MCPServer()
	if err != nil {
		return err
	}
	a.Logger.Info("Starting codeqa MCP server (stdio mode)")
	return server.Run(ctx)
}
