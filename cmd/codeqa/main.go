// Package main provides the codeqa CLI: ingest GitHub repositories into Qdrant
// and ask questions about their code.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/codeqa/internal/app"
	"github.com/bull/codeqa/internal/config"
)

var (
	configFile  string
	promptsFile string
)

var rootCmd = &cobra.Command{
	Use:   "codeqa",
	Short: "Question answering over GitHub repositories",
	Long: `codeqa ingests GitHub repositories into a Qdrant vector store and answers
questions about their code with an OpenAI chat model.

Configuration is read from built-in defaults, then --config, then
CODEQA_<SECTION>__<KEY> environment variables.

Environment variables:
  OPENAI_API_KEY               OpenAI API key (required)
  GITHUB_TOKEN                 GitHub token for the pre-clone probe (optional)
  CODEQA_VECTOR_STORE__API_KEY Qdrant API key (optional)`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "TOML configuration file (e.g. configs/properties.toml)")
	rootCmd.PersistentFlags().StringVar(&promptsFile, "prompts", "", "TOML prompts file (e.g. configs/prompts.toml)")

	rootCmd.AddCommand(ingestCmd, askCmd, serveCmd, mcpCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

// loadApp reads the configuration selected by the persistent flags and
// connects to the external services. Logs go to stderr.
func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(config.Options{ConfigFile: configFile, PromptsFile: promptsFile})
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cfg.Log, os.Stderr)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}
	return a, nil
}
