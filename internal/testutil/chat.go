package testutil

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// FakeChatModel returns a fixed reply and records the messages it received.
type FakeChatModel struct {
	Reply string
	Err   error

	mu       sync.Mutex
	messages [][]llms.ChatMessage
}

func (m *FakeChatModel) Complete(_ context.Context, messages []llms.ChatMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, messages)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

// Calls returns the conversations sent so far.
func (m *FakeChatModel) Calls() [][]llms.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]llms.ChatMessage(nil), m.messages...)
}
