package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newFakeChat(t *testing.T, reply string, seen chan<- chatRequest) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seen <- req

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}))
	t.Cleanup(srv.Close)

	client := openai.NewClient(option.WithAPIKey("test-key"), option.WithBaseURL(srv.URL))
	return &client
}

func TestClient_Complete(t *testing.T) {
	seen := make(chan chatRequest, 1)
	client := NewClient(newFakeChat(t, "It parses config.", seen), "", 0, nil)

	answer, err := client.Complete(context.Background(), []llms.ChatMessage{
		llms.SystemChatMessage{Content: "ctx"},
		llms.HumanChatMessage{Content: "what does it do?"},
		llms.AIChatMessage{Content: "earlier"},
	})
	require.NoError(t, err)
	assert.Equal(t, "It parses config.", answer)

	req := <-seen
	assert.Equal(t, DefaultModel, req.Model)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "what does it do?", req.Messages[1].Content)
	assert.Equal(t, "assistant", req.Messages[2].Role)
}

func TestClient_Complete_UnsupportedMessage(t *testing.T) {
	client := NewClient(&openai.Client{}, "", 0, nil)

	_, err := client.Complete(context.Background(), []llms.ChatMessage{
		llms.ToolChatMessage{ID: "1", Content: "x"},
	})
	assert.ErrorIs(t, err, llms.ErrUnexpectedChatMessageType)
}

func TestClient_Truncate(t *testing.T) {
	client := NewClient(nil, "", 10, nil) // 40 chars

	messages := []llms.ChatMessage{
		llms.SystemChatMessage{Content: strings.Repeat("é", 100)},
		llms.HumanChatMessage{Content: "question?"},
	}

	out := client.truncate(messages)
	require.Len(t, out, 2)

	assert.Equal(t, llms.ChatMessageTypeSystem, out[0].GetType())
	assert.Equal(t, 31, utf8.RuneCountInString(out[0].GetContent()))
	assert.True(t, utf8.ValidString(out[0].GetContent()))
	assert.Equal(t, "question?", out[1].GetContent())
	// input is left untouched
	assert.Len(t, messages[0].GetContent(), 200)
}

func TestClient_Truncate_Short(t *testing.T) {
	client := NewClient(nil, "", 0, nil)

	messages := []llms.ChatMessage{llms.HumanChatMessage{Content: "short"}}
	assert.Equal(t, messages, client.truncate(messages))
}
