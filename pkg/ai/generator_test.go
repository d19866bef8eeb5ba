package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var sampleRequest = ChatRequest{
	SystemPrompt: "be helpful",
	Messages: []ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "resume tips?"},
	},
	MaxTokens:   1000,
	Temperature: 0.7,
}

func TestOpenAICompatGeneratorSendsHistoryAndLimits(t *testing.T) {
	var got oaiChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Fatalf("missing bearer auth: %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Tailor it.  "}}]}`))
	}))
	defer srv.Close()

	g := NewOpenAICompatGenerator(srv.URL+"/v1/", "sk-test", "gpt-3.5-turbo")
	text, err := g.Complete(context.Background(), sampleRequest)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if text != "Tailor it." {
		t.Fatalf("unexpected text: %q", text)
	}
	if got.Model != "gpt-3.5-turbo" || got.MaxTokens != 1000 || got.Temperature != 0.7 {
		t.Fatalf("unexpected request: %+v", got)
	}
	if len(got.Messages) != 4 || got.Messages[0].Role != "system" || got.Messages[2].Role != "assistant" || got.Messages[3].Content != "resume tips?" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestOpenAICompatGeneratorEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	text, err := NewOpenAICompatGenerator(srv.URL, "", "m").Complete(context.Background(), sampleRequest)
	if err != nil || text != "" {
		t.Fatalf("expected empty answer without error, got %q err=%v", text, err)
	}
}

func TestOpenAICompatGeneratorSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAICompatGenerator(srv.URL, "k", "m").Complete(context.Background(), sampleRequest)
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected api error message, got %v", err)
	}
}

func TestGeminiGeneratorMapsRoles(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-1.5-flash:generateContent") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "g-key" {
			t.Fatalf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Part one. "},{"text":"Part two."}]}}]}`))
	}))
	defer srv.Close()

	client, err := NewGeminiClient("g-key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	g := NewGeminiGenerator(client.WithBaseURL(srv.URL), "models/gemini-1.5-flash")
	text, err := g.Complete(context.Background(), sampleRequest)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if text != "Part one. Part two." {
		t.Fatalf("unexpected text: %q", text)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "be helpful" {
		t.Fatalf("expected system instruction, got %+v", got.SystemInstruction)
	}
	if len(got.Contents) != 3 || got.Contents[1].Role != "model" || got.Contents[2].Role != "user" {
		t.Fatalf("unexpected contents: %+v", got.Contents)
	}
	if got.GenerationConfig == nil || got.GenerationConfig.MaxOutputTokens != 1000 {
		t.Fatalf("unexpected generation config: %+v", got.GenerationConfig)
	}
}

func TestOllamaGeneratorSendsOptions(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"ok"}}`))
	}))
	defer srv.Close()

	text, err := NewOllamaGenerator(srv.URL, "llama3").Complete(context.Background(), sampleRequest)
	if err != nil || text != "ok" {
		t.Fatalf("complete = %q err=%v", text, err)
	}
	if got.Stream || got.Options.NumPredict != 1000 || got.Options.Temperature != 0.7 || len(got.Messages) != 4 {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestNewChatCompleterSelectsProvider(t *testing.T) {
	cases := map[string]any{
		"":       &OpenAICompatGenerator{},
		"openai": &OpenAICompatGenerator{},
		"ollama": &OllamaGenerator{},
		"gemini": &GeminiGenerator{},
	}
	for provider, want := range cases {
		c, err := NewChatCompleter(ProviderConfig{Provider: provider, APIKey: "k", Model: "m"})
		if err != nil {
			t.Fatalf("provider %q: %v", provider, err)
		}
		switch want.(type) {
		case *OpenAICompatGenerator:
			if _, ok := c.(*OpenAICompatGenerator); !ok {
				t.Fatalf("provider %q: got %T", provider, c)
			}
		case *OllamaGenerator:
			if _, ok := c.(*OllamaGenerator); !ok {
				t.Fatalf("provider %q: got %T", provider, c)
			}
		case *GeminiGenerator:
			if _, ok := c.(*GeminiGenerator); !ok {
				t.Fatalf("provider %q: got %T", provider, c)
			}
		}
	}
	if _, err := NewChatCompleter(ProviderConfig{Provider: "nope"}); err == nil {
		t.Fatalf("expected unknown provider to fail")
	}
	if _, err := NewChatCompleter(ProviderConfig{Provider: "gemini"}); err == nil {
		t.Fatalf("expected gemini without key to fail")
	}
}
