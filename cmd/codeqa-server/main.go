// Package main runs the codeqa HTTP server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bull/codeqa/internal/app"
	"github.com/bull/codeqa/internal/config"
)

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(opts)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := app.NewLogger(cfg.Log, os.Stderr)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer a.Close()

	if err := a.RunHTTP(ctx); err != nil {
		logger.Error("HTTP server error", "error", err)
		os.Exit(1)
	}
}

// parseOptions loads .env and then parses args. The flag defaults come from
// CODEQA_CONFIG and CODEQA_PROMPTS, so .env has to be loaded first.
func parseOptions(args []string) (config.Options, error) {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	fs := flag.NewFlagSet("codeqa-server", flag.ContinueOnError)
	configFile := fs.String("config", os.Getenv("CODEQA_CONFIG"), "TOML configuration file")
	promptsFile := fs.String("prompts", os.Getenv("CODEQA_PROMPTS"), "TOML prompts file")
	if err := fs.Parse(args); err != nil {
		return config.Options{}, err
	}

	return config.Options{ConfigFile: *configFile, PromptsFile: *promptsFile}, nil
}
