package ai

import (
	"fmt"
	"strings"
)

// ProviderConfig selects and configures one chat completion backend.
type ProviderConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

// NewChatCompleter builds the ChatCompleter named by cfg.Provider
// ("openai", "openai-compat", "gemini", "ollama").
func NewChatCompleter(cfg ProviderConfig) (ChatCompleter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai", "openai-compat", "openai_compat":
		return NewOpenAICompatGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case "gemini":
		client, err := NewGeminiClient(cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return NewGeminiGenerator(client.WithBaseURL(cfg.BaseURL), cfg.Model), nil
	case "ollama":
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
