// Package embedding turns text into vectors through OpenAI, and provides the
// custom fusion vectors used when callers opt out of library embeddings.
package embedding

import (
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI client shared by embeddings and chat completion.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client. An empty apiKey falls back to
// OPENAI_API_KEY; baseURL is optional and targets OpenAI-compatible servers.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., chat completion).
func (c *Client) Client() *openai.Client {
	return c.client
}
