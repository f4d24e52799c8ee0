package llm

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

// Prompt variables available to chat templates.
const (
	VarContext  = "context"
	VarQuestion = "question"
)

// MessageTemplate is one role/content pair of a chat prompt.
type MessageTemplate struct {
	Role    string
	Content string
}

// ChatPrompt renders role/content templates into chat messages.
type ChatPrompt struct {
	template prompts.ChatPromptTemplate
}

// NewChatPrompt builds a prompt from f-string templates such as "{question}".
// Roles are system, human (or user) and ai (or assistant).
func NewChatPrompt(messages []MessageTemplate) (*ChatPrompt, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("chat prompt needs at least one message")
	}

	formatters := make([]prompts.MessageFormatter, 0, len(messages))
	for _, msg := range messages {
		tmpl := prompts.PromptTemplate{
			Template:       msg.Content,
			InputVariables: []string{VarContext, VarQuestion},
			TemplateFormat: prompts.TemplateFormatFString,
		}

		switch strings.ToLower(msg.Role) {
		case "system":
			formatters = append(formatters, prompts.SystemMessagePromptTemplate{Prompt: tmpl})
		case "human", "user":
			formatters = append(formatters, prompts.HumanMessagePromptTemplate{Prompt: tmpl})
		case "ai", "assistant":
			formatters = append(formatters, prompts.AIMessagePromptTemplate{Prompt: tmpl})
		default:
			return nil, fmt.Errorf("unknown prompt role %q", msg.Role)
		}
	}

	return &ChatPrompt{template: prompts.NewChatPromptTemplate(formatters)}, nil
}

// Format renders the prompt for a question and its retrieved context.
func (p *ChatPrompt) Format(retrieved, question string) ([]llms.ChatMessage, error) {
	messages, err := p.template.FormatMessages(map[string]any{
		VarContext:  retrieved,
		VarQuestion: question,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}
	return messages, nil
}
