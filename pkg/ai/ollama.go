package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaBaseURL = "http://127.0.0.1:11434"

// OllamaGenerator talks to a local Ollama server through /api/chat.
type OllamaGenerator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaGenerator builds an Ollama-based ChatCompleter.
func NewOllamaGenerator(baseURL, model string) *OllamaGenerator {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &OllamaGenerator{
		baseURL:    baseURL,
		model:      strings.TrimSpace(model),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Complete implements ChatCompleter using Ollama /api/chat.
func (g *OllamaGenerator) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if g.model == "" {
		return "", fmt.Errorf("ollama generation model required")
	}
	messages := make([]ollamaChatMessage, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, ollamaChatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, ollamaChatMessage{Role: normalizeRole(m.Role), Content: m.Content})
	}
	body := ollamaChatRequest{
		Model:    g.model,
		Messages: messages,
		Stream:   false,
		Options: ollamaOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		},
	}

	var resp ollamaChatResponse
	if _, err := postJSON(ctx, g.httpClient, g.baseURL+"/api/chat", nil, body, &resp, ollamaErrorMessage); err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  ollamaOptions       `json:"options"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}

type ollamaErrorResponse struct {
	Error string `json:"error"`
}

func ollamaErrorMessage(raw []byte) string {
	var errResp ollamaErrorResponse
	if decodeLoose(raw, &errResp) {
		return errResp.Error
	}
	return ""
}
