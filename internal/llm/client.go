// Package llm sends rendered chat prompts to an OpenAI chat model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/openai/openai-go"
	"github.com/tmc/langchaingo/llms"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// DefaultMaxTokens is the maximum prompt length before truncation (in tokens).
const DefaultMaxTokens = 16000

// ErrEmptyResponse is returned when the model produces no choices.
var ErrEmptyResponse = errors.New("empty chat completion")

// ChatModel completes a conversation and returns the assistant reply.
type ChatModel interface {
	Complete(ctx context.Context, messages []llms.ChatMessage) (string, error)
}

// Client is a ChatModel backed by the OpenAI chat completions API.
type Client struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewClient creates a chat client. Zero values select DefaultModel and DefaultMaxTokens.
func NewClient(client *openai.Client, model string, maxTokens int, logger *slog.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Complete sends messages with temperature 0 and returns the first choice.
func (c *Client) Complete(ctx context.Context, messages []llms.ChatMessage) (string, error) {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range c.truncate(messages) {
		param, err := toParam(msg)
		if err != nil {
			return "", err
		}
		params = append(params, param)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    params,
		Model:       c.model,
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

func toParam(msg llms.ChatMessage) (openai.ChatCompletionMessageParamUnion, error) {
	switch msg.GetType() {
	case llms.ChatMessageTypeSystem:
		return openai.SystemMessage(msg.GetContent()), nil
	case llms.ChatMessageTypeHuman, llms.ChatMessageTypeGeneric:
		return openai.UserMessage(msg.GetContent()), nil
	case llms.ChatMessageTypeAI:
		return openai.AssistantMessage(msg.GetContent()), nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("%w: %s", llms.ErrUnexpectedChatMessageType, msg.GetType())
	}
}

// truncate shortens the longest message so the prompt fits within maxTokens.
// Uses rough estimate of 4 characters per token.
func (c *Client) truncate(messages []llms.ChatMessage) []llms.ChatMessage {
	maxChars := c.maxTokens * 4

	total, longest := 0, -1
	longestLen := 0
	for i, msg := range messages {
		n := utf8.RuneCountInString(msg.GetContent())
		total += n
		if n > longestLen {
			longest, longestLen = i, n
		}
	}
	if total <= maxChars || longest < 0 {
		return messages
	}

	keep := longestLen - (total - maxChars)
	if keep < 0 {
		keep = 0
	}

	c.logger.Warn("truncating prompt",
		"from_chars", total, "to_chars", total-longestLen+keep, "max_tokens", c.maxTokens)

	out := make([]llms.ChatMessage, len(messages))
	copy(out, messages)
	out[longest] = withContent(messages[longest], truncateRunes(messages[longest].GetContent(), keep))
	return out
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func withContent(msg llms.ChatMessage, content string) llms.ChatMessage {
	switch msg.GetType() {
	case llms.ChatMessageTypeSystem:
		return llms.SystemChatMessage{Content: content}
	case llms.ChatMessageTypeAI:
		return llms.AIChatMessage{Content: content}
	default:
		return llms.HumanChatMessage{Content: content}
	}
}
