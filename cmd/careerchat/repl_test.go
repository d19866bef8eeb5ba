package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mayank-dotcom/career-bot/pkg/domain"
	"github.com/mayank-dotcom/career-bot/pkg/rpcclient"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls map[string][]map[string]any
}

func (f *fakeBackend) record(name string, in map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name] = append(f.calls[name], in)
}

func (f *fakeBackend) inputs(name string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.calls[name]...)
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	f := &fakeBackend{calls: map[string][]map[string]any{}}
	user := domain.User{ID: "u1", Email: "jane@example.com"}
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	results := map[string]any{
		rpcclient.ProcSignIn:  rpcclient.AuthResult{User: user, Token: "tok-1"},
		rpcclient.ProcSignOut: map[string]bool{"ok": true},
		rpcclient.ProcCreateChat: domain.Chat{
			ID: "c1", UserID: "u1", Title: "How do I move into data science?", CreatedAt: now, UpdatedAt: now,
		},
		rpcclient.ProcGetChats: []domain.Chat{{ID: "c9", UserID: "u1", Title: "Old chat", CreatedAt: now, UpdatedAt: now}},
		rpcclient.ProcGetMessages: []domain.Message{
			{ID: "m1", ChatID: "c9", Role: domain.RoleUser, Content: "earlier question", CreatedAt: now},
			{ID: "m2", ChatID: "c9", Role: domain.RoleAssistant, Content: "earlier answer", CreatedAt: now},
		},
		rpcclient.ProcSendMessage: rpcclient.SendMessageResult{
			UserMessage: domain.Message{ID: "srv-1", ChatID: "c1", Role: domain.RoleUser, Status: domain.StatusPtr(domain.StatusSent)},
			AIMessage:   domain.Message{ID: "srv-2", ChatID: "c1", Role: domain.RoleAssistant, Content: "Start with statistics."},
		},
		rpcclient.ProcUpdateMessageStatus: domain.Message{ID: "srv-1"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/rpc/")
		raw := []byte(r.URL.Query().Get("input"))
		if r.Method == http.MethodPost {
			raw, _ = io.ReadAll(r.Body)
		}
		in := map[string]any{}
		_ = json.Unmarshal(raw, &in)
		f.record(name, in)
		res, ok := results[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"no such procedure"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"result": res})
	})
	mux.HandleFunc("/api/parse-pdf", func(w http.ResponseWriter, r *http.Request) {
		f.record("parse-pdf", nil)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rpcclient.ParsedDocument{Text: "Skills: Go", FileName: "resume.pdf"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func fastDelays() rpcclient.StatusDelays {
	return rpcclient.StatusDelays{
		Sent:      rpcclient.Delay{Base: time.Millisecond},
		Delivered: rpcclient.Delay{Base: 2 * time.Millisecond},
		Read:      rpcclient.Delay{Base: 3 * time.Millisecond},
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runScript(t *testing.T, srv *httptest.Server, cache *rpcclient.SessionCache, script string) string {
	t.Helper()
	out := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := newREPL(rpcclient.New(srv.URL), cache, strings.NewReader(script), out, logger, rpcclient.WithStatusDelays(fastDelays()))
	err := r.run(context.Background())
	r.close()
	if err != nil && err != io.EOF {
		t.Fatalf("run: %v", err)
	}
	return out.String()
}

func TestREPLSignInAndSend(t *testing.T) {
	backend, srv := newFakeBackend(t)
	cache := rpcclient.NewSessionCache(filepath.Join(t.TempDir(), "session.json"))

	resume := filepath.Join(t.TempDir(), "resume.pdf")
	if err := os.WriteFile(resume, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("write resume: %v", err)
	}
	script := strings.Join([]string{
		"1", "jane@example.com", "secret123",
		"/attach " + resume,
		"How do I move into data science?",
		"/quit",
	}, "\n") + "\n"
	out := runScript(t, srv, cache, script)

	if !strings.Contains(out, "signed in as jane@example.com") {
		t.Fatalf("missing sign-in banner:\n%s", out)
	}
	if !strings.Contains(out, "sam: Start with statistics.") {
		t.Fatalf("missing assistant reply:\n%s", out)
	}
	s, ok, err := cache.Load()
	if err != nil || !ok || s.Token != "tok-1" {
		t.Fatalf("session not cached: %+v ok=%v err=%v", s, ok, err)
	}

	created := backend.inputs(rpcclient.ProcCreateChat)
	if len(created) != 1 || created[0]["title"] != rpcclient.TitleFromPrompt("How do I move into data science?") {
		t.Fatalf("unexpected createChat calls: %+v", created)
	}
	sent := backend.inputs(rpcclient.ProcSendMessage)
	if len(sent) != 1 {
		t.Fatalf("expected one sendMessage, got %d", len(sent))
	}
	want := rpcclient.ComposeWithDocument("Skills: Go", "How do I move into data science?")
	if sent[0]["content"] != want || sent[0]["chatId"] != "c1" || sent[0]["userId"] != "u1" {
		t.Fatalf("unexpected sendMessage input: %+v", sent[0])
	}
	for _, in := range backend.inputs(rpcclient.ProcUpdateMessageStatus) {
		if in["messageId"] != "srv-1" {
			t.Fatalf("status mirrored to wrong id: %+v", in)
		}
	}
}

func TestREPLRestoredSessionCommands(t *testing.T) {
	backend, srv := newFakeBackend(t)
	cache := rpcclient.NewSessionCache(filepath.Join(t.TempDir(), "session.json"))
	if err := cache.Save(rpcclient.Session{Token: "cached", User: domain.User{ID: "u1", Email: "jane@example.com"}}); err != nil {
		t.Fatalf("save session: %v", err)
	}

	out := runScript(t, srv, cache, "/chats\n/open 1\n/open 5\n/bogus\n/logout\n")

	if len(backend.inputs(rpcclient.ProcSignIn)) != 0 {
		t.Fatalf("restored session must not sign in again")
	}
	for _, want := range []string{"1. Old chat", "you: earlier question", "sam: earlier answer", "no chat 5", "unknown command /bogus", "signed out."} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if got := backend.inputs(rpcclient.ProcGetMessages); len(got) != 1 || got[0]["chatId"] != "c9" {
		t.Fatalf("unexpected getMessages calls: %+v", got)
	}
	if len(backend.inputs(rpcclient.ProcSignOut)) != 1 {
		t.Fatalf("expected signOut call")
	}
	if _, ok, _ := cache.Load(); ok {
		t.Fatalf("expected cache cleared after logout")
	}
}
