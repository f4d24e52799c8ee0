// Package config loads codeqa settings from embedded defaults, an optional
// TOML file and CODEQA_ environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bull/codeqa/internal/chunking"
)

// ErrInvalidConfig is returned when loaded settings fail validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full application configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	VectorStore VectorStoreConfig `koanf:"vector_store"`
	Embedding   EmbeddingConfig   `koanf:"embedding"`
	LLM         LLMConfig         `koanf:"llm"`
	Chunking    ChunkingConfig    `koanf:"chunking"`
	Repos       ReposConfig       `koanf:"repos"`
	GitHub      GitHubConfig      `koanf:"github"`
	Log         LogConfig         `koanf:"log"`

	// Prompts is loaded from a separate file, see LoadPrompts.
	Prompts Prompts `koanf:"-"`
}

type ServerConfig struct {
	Host string `koanf:"host" validate:"required"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type VectorStoreConfig struct {
	Host         string  `koanf:"host" validate:"required"`
	Port         int     `koanf:"port" validate:"min=1,max=65535"`
	UseTLS       bool    `koanf:"use_tls"`
	APIKey       string  `koanf:"api_key"`
	VectorName   string  `koanf:"vector_name" validate:"required"`
	TopK         int     `koanf:"top_k" validate:"gt=0"`
	SearchType   string  `koanf:"search_type" validate:"oneof=similarity mmr"`
	MMRDiversity float32 `koanf:"mmr_diversity" validate:"gte=0,lte=1"`
	BatchSize    int     `koanf:"batch_size" validate:"gt=0"`
	Idempotency  string  `koanf:"idempotency" validate:"oneof=presence atomic"`
}

type EmbeddingConfig struct {
	Model      string `koanf:"model" validate:"required"`
	Dimensions int    `koanf:"dimensions" validate:"gte=0"`
	BatchSize  int    `koanf:"batch_size" validate:"gt=0"`
	BaseURL    string `koanf:"base_url"`
}

type LLMConfig struct {
	ModelName        string `koanf:"model_name" validate:"required"`
	MaxContextTokens int    `koanf:"max_context_tokens" validate:"gt=0"`
	BaseURL          string `koanf:"base_url"`
}

type ChunkingConfig struct {
	Language     string `koanf:"language" validate:"required"`
	ChunkSize    int    `koanf:"chunk_size" validate:"gt=0"`
	ChunkOverlap int    `koanf:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
}

type ReposConfig struct {
	Dir string `koanf:"dir" validate:"required"`
}

// GitHubConfig controls the optional pre-clone probe against the GitHub API.
type GitHubConfig struct {
	Probe bool   `koanf:"probe"`
	Token string `koanf:"token"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := chunking.ParseLanguage(c.Chunking.Language); err != nil {
		return fmt.Errorf("%w: chunking.language: %v", ErrInvalidConfig, err)
	}
	return nil
}
