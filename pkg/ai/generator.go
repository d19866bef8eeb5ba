package ai

import (
	"context"
	"strings"
)

// ChatMessage is one turn of conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a full completion request: system prompt, ordered history
// (oldest first, ending with the newest user turn) and sampling limits.
type ChatRequest struct {
	SystemPrompt string
	Messages     []ChatMessage
	MaxTokens    int
	Temperature  float64
}

// ChatCompleter produces the assistant's next turn.
// All LLM providers (OpenAI-compatible, Gemini, Ollama) implement this interface.
// An empty string with a nil error means the provider answered with no text.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ChatCompleterFunc adapts a function to ChatCompleter.
type ChatCompleterFunc func(ctx context.Context, req ChatRequest) (string, error)

func (f ChatCompleterFunc) Complete(ctx context.Context, req ChatRequest) (string, error) {
	return f(ctx, req)
}

func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "assistant", "model":
		return "assistant"
	case "system":
		return "system"
	default:
		return "user"
	}
}
