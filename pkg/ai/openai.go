package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAICompatGenerator calls any OpenAI-compatible /v1/chat/completions endpoint.
// Works with OpenAI itself, vLLM, LiteLLM, LocalAI, OpenRouter, etc.
type OpenAICompatGenerator struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAICompatGenerator builds an OpenAI-compatible ChatCompleter.
// baseURL should include the /v1 prefix; empty means api.openai.com.
func NewOpenAICompatGenerator(baseURL, apiKey, model string) *OpenAICompatGenerator {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAICompatGenerator{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		model:      strings.TrimSpace(model),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Complete implements ChatCompleter using the chat completions API.
func (g *OpenAICompatGenerator) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if g.model == "" {
		return "", fmt.Errorf("openai-compat generation model required")
	}
	messages := make([]oaiMessage, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, oaiMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, oaiMessage{Role: normalizeRole(m.Role), Content: m.Content})
	}
	body := oaiChatRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	headers := map[string]string{}
	if g.apiKey != "" {
		headers["Authorization"] = "Bearer " + g.apiKey
	}

	var resp oaiChatResponse
	if _, err := postJSON(ctx, g.httpClient, g.baseURL+"/chat/completions", headers, body, &resp, oaiErrorMessage); err != nil {
		return "", fmt.Errorf("openai-compat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiChatRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float64      `json:"temperature"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func oaiErrorMessage(raw []byte) string {
	var errResp oaiErrorResponse
	if decodeLoose(raw, &errResp) {
		return errResp.Error.Message
	}
	return ""
}
