package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// ChatMessage is one templated message of a chat prompt.
// Content may reference {context} and {question}.
type ChatMessage struct {
	Role    string `koanf:"role" validate:"oneof=system human ai user assistant"`
	Content string `koanf:"content" validate:"required"`
}

// RAGPrompts holds the retrieval-augmented answer prompt.
type RAGPrompts struct {
	Chat []ChatMessage `koanf:"chat" validate:"required,min=1,dive"`
}

// Prompts is the contents of prompts.toml.
type Prompts struct {
	RAG RAGPrompts `koanf:"rag"`
}

// LoadPrompts reads prompts from path, or the built-in prompts when path is empty.
// A prompts file replaces the built-in prompts entirely.
func LoadPrompts(path string) (Prompts, error) {
	data := defaultPrompts
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return Prompts{}, fmt.Errorf("failed to read prompts file %s: %w", path, err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), toml.Parser()); err != nil {
		return Prompts{}, fmt.Errorf("failed to parse prompts: %w", err)
	}

	var prompts Prompts
	if err := k.Unmarshal("", &prompts); err != nil {
		return Prompts{}, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}
	return prompts, nil
}
