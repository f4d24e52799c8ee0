package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CODEQA_"

//go:embed defaults.toml
var defaultProperties []byte

//go:embed prompts.toml
var defaultPrompts []byte

// Options selects the files Load reads. Empty paths fall back to the built-in files.
type Options struct {
	ConfigFile  string
	PromptsFile string
}

// Load builds the configuration.
//
// Precedence (highest to lowest):
//  1. Environment variables: CODEQA_<SECTION>__<KEY>, e.g.
//     CODEQA_VECTOR_STORE__TOP_K -> vector_store.top_k
//  2. The TOML file at opts.ConfigFile
//  3. Built-in defaults
//
// GITHUB_TOKEN fills github.token when it is not set otherwise.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultProperties), toml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if opts.ConfigFile != "" {
		content, err := os.ReadFile(opts.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", opts.ConfigFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}

	prompts, err := LoadPrompts(opts.PromptsFile)
	if err != nil {
		return nil, err
	}
	cfg.Prompts = prompts

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps CODEQA_VECTOR_STORE__TOP_K to vector_store.top_k.
// Single underscores stay part of the key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}
