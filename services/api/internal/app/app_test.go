package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mayank-dotcom/career-bot/pkg/ai"
	"github.com/mayank-dotcom/career-bot/pkg/domain"
	"github.com/mayank-dotcom/career-bot/pkg/storage"
	"github.com/mayank-dotcom/career-bot/pkg/store"
)

const testSecret = "test-secret-0123456789"

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	return s.text, s.err
}

type testEnv struct {
	app   *App
	store *store.MemoryStore
	llm   *recordingLLM
}

type recordingLLM struct {
	reply string
	err   error
	last  ai.ChatRequest
	calls int32
}

func (r *recordingLLM) Complete(ctx context.Context, req ai.ChatRequest) (string, error) {
	atomic.AddInt32(&r.calls, 1)
	r.last = req
	return r.reply, r.err
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	sessions, err := store.NewJWTSessionStore(testSecret, 0, store.NewMemoryTokenRevoker(), store.JWTOptions{})
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	llm := &recordingLLM{reply: "Focus on Go and distributed systems."}
	var seq, ticks int64
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cfg := Config{
		Store:     st,
		Sessions:  sessions,
		LLM:       llm,
		Extractor: stubExtractor{text: "Jane Doe\njane@example.com\nSkills\nGo, SQL"},
		Now: func() time.Time {
			return start.Add(time.Duration(atomic.AddInt64(&ticks, 1)) * time.Millisecond)
		},
		NewID: func() string {
			return fmt.Sprintf("id-%d", atomic.AddInt64(&seq, 1))
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return &testEnv{app: a, store: st, llm: llm}
}

func (e *testEnv) signUp(t *testing.T, email string) AuthResult {
	t.Helper()
	res, err := e.app.SignUp(context.Background(), SignUpInput{Email: email, Password: "secret1"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	return res
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected missing store error")
	}
}

func TestSignUpAndSignIn(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	name := "  Jane  "
	res, err := env.app.SignUp(ctx, SignUpInput{Email: " Jane@Example.com ", Password: "secret1", Name: &name})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if res.Token == "" || res.User.Email != "jane@example.com" || res.User.Name != "Jane" || res.User.IsSubscribed {
		t.Fatalf("unexpected signup result: %+v", res)
	}
	if res.User.PasswordHash == "secret1" {
		t.Fatalf("password stored in clear")
	}

	if _, err := env.app.SignUp(ctx, SignUpInput{Email: "jane@example.com", Password: "another1"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	if _, err := env.app.SignUp(ctx, SignUpInput{Email: "new@example.com", Password: "12345"}); KindOf(err) != KindValidation || PublicMessage(err) != "Password must be at least 6 characters" {
		t.Fatalf("expected short password error, got %v", err)
	}
	if _, err := env.app.SignUp(ctx, SignUpInput{Email: "long@example.com", Password: strings.Repeat("a", 80)}); KindOf(err) != KindValidation || PublicMessage(err) != "Password must be at most 72 bytes" {
		t.Fatalf("expected long password error, got %v", err)
	}
	if _, err := env.app.SignUp(ctx, SignUpInput{Email: "not-an-email", Password: "secret1"}); KindOf(err) != KindValidation {
		t.Fatalf("expected invalid email, got %v", err)
	}

	in, err := env.app.SignIn(ctx, SignInInput{Email: "JANE@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if in.User.ID != res.User.ID || in.Token == "" {
		t.Fatalf("unexpected signin result: %+v", in)
	}
	for _, bad := range []SignInInput{
		{Email: "jane@example.com", Password: "wrong-password"},
		{Email: "ghost@example.com", Password: "secret1"},
	} {
		if _, err := env.app.SignIn(ctx, bad); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("signin %s: expected invalid credentials, got %v", bad.Email, err)
		}
	}
}

func TestCurrentUserAndSignOut(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	res := env.signUp(t, "a@example.com")

	user, err := env.app.CurrentUser(ctx, TokenInput{Token: res.Token})
	if err != nil || user.ID != res.User.ID {
		t.Fatalf("current user = %+v, %v", user, err)
	}
	if _, err := env.app.CurrentUser(ctx, TokenInput{Token: "garbage"}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if _, err := env.app.Authenticate(ctx, ""); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected auth required, got %v", err)
	}

	if err := env.app.SignOut(ctx, TokenInput{Token: res.Token}); err != nil {
		t.Fatalf("signout: %v", err)
	}
	if _, err := env.app.CurrentUser(ctx, TokenInput{Token: res.Token}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected revoked token to be rejected, got %v", err)
	}
	if err := env.app.SignOut(ctx, TokenInput{Token: "garbage"}); err != nil {
		t.Fatalf("signout with invalid token should succeed: %v", err)
	}
}

func TestUpdateUserAndGetUserByID(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	a := env.signUp(t, "a@example.com")
	env.signUp(t, "b@example.com")

	updated, err := env.app.UpdateUser(ctx, UpdateUserInput{ID: a.User.ID, Email: "A2@example.com"})
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.Email != "a2@example.com" {
		t.Fatalf("unexpected email %q", updated.Email)
	}
	if _, err := env.app.UpdateUser(ctx, UpdateUserInput{ID: a.User.ID, Email: "b@example.com"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
	_, err = env.app.UpdateUser(ctx, UpdateUserInput{ID: "ghost", Email: "g@example.com"})
	if KindOf(err) != KindNotFound || PublicMessage(err) != "User with ID ghost not found" {
		t.Fatalf("expected user not found, got %v", err)
	}

	got, err := env.app.GetUserByID(ctx, UserIDInput{UserID: a.User.ID})
	if err != nil || got == nil || got.Email != "a2@example.com" {
		t.Fatalf("get user = %+v, %v", got, err)
	}
	missing, err := env.app.GetUserByID(ctx, UserIDInput{UserID: "ghost"})
	if err != nil || missing != nil {
		t.Fatalf("expected nil user, got %+v, %v", missing, err)
	}
}

func TestCreateChatAndGetChats(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.signUp(t, "a@example.com")

	chat, err := env.app.CreateChat(ctx, CreateChatInput{UserID: u.User.ID})
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if chat.Title != DefaultChatTitle || chat.Messages == nil {
		t.Fatalf("unexpected chat: %+v", chat)
	}
	long := strings.Repeat("x", 150)
	titled, err := env.app.CreateChat(ctx, CreateChatInput{UserID: u.User.ID, Title: &long})
	if err != nil {
		t.Fatalf("create titled chat: %v", err)
	}
	if len(titled.Title) != maxTitleLength {
		t.Fatalf("expected capped title, got %d chars", len(titled.Title))
	}

	_, err = env.app.CreateChat(ctx, CreateChatInput{UserID: "ghost"})
	if PublicMessage(err) != "User with ID ghost not found" {
		t.Fatalf("expected user not found, got %v", err)
	}

	chats, err := env.app.GetChats(ctx, UserIDInput{UserID: u.User.ID})
	if err != nil || len(chats) != 2 {
		t.Fatalf("get chats = %d, %v", len(chats), err)
	}
	for _, c := range chats {
		if c.Messages == nil {
			t.Fatalf("chat %s should carry an empty message list", c.ID)
		}
	}
	if _, err := env.app.GetChats(ctx, UserIDInput{UserID: "ghost"}); KindOf(err) != KindNotFound {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.signUp(t, "a@example.com")
	chat, err := env.app.CreateChat(ctx, CreateChatInput{UserID: u.User.ID})
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	res, err := env.app.SendMessage(ctx, SendMessageInput{ChatID: chat.ID, UserID: u.User.ID, Content: "How do I become a backend engineer?"})
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if res.UserMessage.StatusOf() != domain.StatusSent || res.AIMessage.Status != nil {
		t.Fatalf("unexpected statuses: user=%v ai=%v", res.UserMessage.Status, res.AIMessage.Status)
	}
	if !res.AIMessage.CreatedAt.After(res.UserMessage.CreatedAt) {
		t.Fatalf("ai message must be stamped after the user message")
	}
	if res.AIMessage.Content != env.llm.reply {
		t.Fatalf("unexpected ai content %q", res.AIMessage.Content)
	}
	if env.llm.last.SystemPrompt != SystemPrompt || env.llm.last.MaxTokens != MaxResponseTokens || env.llm.last.Temperature != Temperature {
		t.Fatalf("generation policy not applied: %+v", env.llm.last)
	}
	if len(env.llm.last.Messages) != 1 || env.llm.last.Messages[0].Role != "user" {
		t.Fatalf("unexpected history: %+v", env.llm.last.Messages)
	}

	if _, err := env.app.SendMessage(ctx, SendMessageInput{ChatID: chat.ID, UserID: u.User.ID, Content: "And what about Go?"}); err != nil {
		t.Fatalf("second send: %v", err)
	}
	roles := make([]string, 0, len(env.llm.last.Messages))
	for _, m := range env.llm.last.Messages {
		roles = append(roles, m.Role)
	}
	if strings.Join(roles, ",") != "user,assistant,user" {
		t.Fatalf("unexpected history roles: %v", roles)
	}

	msgs, err := env.app.GetMessages(ctx, ChatIDInput{ChatID: chat.ID})
	if err != nil || len(msgs) != 4 {
		t.Fatalf("get messages = %d, %v", len(msgs), err)
	}
	assertChronological(t, msgs)
	stored, _, _ := env.store.GetChat(chat.ID)
	if !stored.UpdatedAt.Equal(msgs[3].CreatedAt) {
		t.Fatalf("chat updatedAt not bumped: %v", stored.UpdatedAt)
	}
}

func TestSendMessageOrderingWithFrozenClock(t *testing.T) {
	frozen := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	env := newTestEnv(t, func(c *Config) {
		c.HistoryLimit = 2
		c.Now = func() time.Time { return frozen }
	})
	ctx := context.Background()
	u := env.signUp(t, "a@example.com")
	chat, _ := env.app.CreateChat(ctx, CreateChatInput{UserID: u.User.ID})

	for _, content := range []string{"one", "two", "three"} {
		if _, err := env.app.SendMessage(ctx, SendMessageInput{ChatID: chat.ID, UserID: u.User.ID, Content: content}); err != nil {
			t.Fatalf("send %q: %v", content, err)
		}
		history := env.llm.last.Messages
		if last := history[len(history)-1]; last.Role != "user" || last.Content != content {
			t.Fatalf("history for %q should end with it: %+v", content, history)
		}
	}
	if h := env.llm.last.Messages; len(h) != 2 || h[0].Role != "assistant" {
		t.Fatalf("expected [assistant, user] window, got %+v", h)
	}

	msgs, err := env.app.GetMessages(ctx, ChatIDInput{ChatID: chat.ID})
	if err != nil || len(msgs) != 6 {
		t.Fatalf("get messages = %d, %v", len(msgs), err)
	}
	assertChronological(t, msgs)
	for i, m := range msgs {
		want := domain.RoleUser
		if i%2 == 1 {
			want = domain.RoleAssistant
		}
		if m.Role != want {
			t.Fatalf("message %d has role %s, want %s", i, m.Role, want)
		}
		if i > 0 && !m.CreatedAt.After(msgs[i-1].CreatedAt) {
			t.Fatalf("message %d not stamped after its predecessor: %v <= %v", i, m.CreatedAt, msgs[i-1].CreatedAt)
		}
	}
}

func assertChronological(t *testing.T, msgs []domain.Message) {
	t.Helper()
	for i := 1; i < len(msgs); i++ {
		prev, cur := msgs[i-1], msgs[i]
		if cur.CreatedAt.Before(prev.CreatedAt) {
			t.Fatalf("message %d (%s) is older than %d (%s)", i, cur.ID, i-1, prev.ID)
		}
		if cur.CreatedAt.Equal(prev.CreatedAt) && cur.ID < prev.ID {
			t.Fatalf("messages %d and %d share a time but break the id tie-break", i-1, i)
		}
	}
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.signUp(t, "a@example.com")
	other := env.signUp(t, "b@example.com")
	chat, _ := env.app.CreateChat(ctx, CreateChatInput{UserID: u.User.ID})

	if _, err := env.app.SendMessage(ctx, SendMessageInput{ChatID: chat.ID, UserID: u.User.ID, Content: "   "}); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected empty content error, got %v", err)
	}
	if _, err := env.app.SendMessage(ctx, SendMessageInput{ChatID: "ghost", UserID: u.User.ID, Content: "hi"}); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected chat not found, got %v", err)
	}
	if _, err := env.app.SendMessage(ctx, SendMessageInput{ChatID: chat.ID, UserID: other.User.ID, Content: "hi"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if env.llm.calls != 0 {
		t.Fatalf("llm should not be called for rejected input")
	}
}

func TestSendMessageProviderFailureKeepsUserMessage(t *testing.T) {
	env := newTestEnv(t, nil)
	env.llm.err = errors.New("upstream 500")
	ctx := context.Background()
	u := env.signUp(t, "a@example.com")
	chat, _ := env.app.CreateChat(ctx, CreateChatInput{UserID: u.User.ID})

	_, err := env.app.SendMessage(ctx, SendMessageInput{ChatID: chat.ID, UserID: u.User.ID, Content: "hello"})
	if !errors.Is(err, ErrAIResponse) || PublicMessage(err) != "Failed to get AI response" {
		t.Fatalf("expected ai response error, got %v", err)
	}
	msgs, _ := env.app.GetMessages(ctx, ChatIDInput{ChatID: chat.ID})
	if len(msgs) != 1 || msgs[0].Role != domain.RoleUser {
		t.Fatalf("expected only the user message to remain, got %+v", msgs)
	}
}

func TestSendMessageFallbackAndHistoryLimit(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.HistoryLimit = 2 })
	env.llm.reply = "   "
	ctx := context.Background()
	u := env.signUp(t, "a@example.com")
	chat, _ := env.app.CreateChat(ctx, CreateChatInput{UserID: u.User.ID})

	res, err := env.app.SendMessage(ctx, SendMessageInput{ChatID: chat.ID, UserID: u.User.ID, Content: "one"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.AIMessage.Content != FallbackAIResponse {
		t.Fatalf("expected fallback reply, got %q", res.AIMessage.Content)
	}
	if _, err := env.app.SendMessage(ctx, SendMessageInput{ChatID: chat.ID, UserID: u.User.ID, Content: "two"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if n := len(env.llm.last.Messages); n != 2 {
		t.Fatalf("expected history capped at 2, got %d", n)
	}
	if env.llm.last.Messages[1].Content != "two" {
		t.Fatalf("history should end with the newest message: %+v", env.llm.last.Messages)
	}
}

func TestUpdateMessageStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.signUp(t, "a@example.com")
	chat, _ := env.app.CreateChat(ctx, CreateChatInput{UserID: u.User.ID})
	res, err := env.app.SendMessage(ctx, SendMessageInput{ChatID: chat.ID, UserID: u.User.ID, Content: "hi"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	next, err := env.app.SendMessage(ctx, SendMessageInput{ChatID: chat.ID, UserID: u.User.ID, Content: "still there?"})
	if err != nil {
		t.Fatalf("second send: %v", err)
	}

	msg, err := env.app.UpdateMessageStatus(ctx, UpdateMessageStatusInput{MessageID: res.UserMessage.ID, Status: "read"})
	if err != nil || msg.StatusOf() != domain.StatusRead || msg.Content != "hi" {
		t.Fatalf("update status = %+v, %v", msg, err)
	}
	msgs, err := env.app.GetMessages(ctx, ChatIDInput{ChatID: chat.ID})
	if err != nil || len(msgs) != 4 {
		t.Fatalf("get messages = %d, %v", len(msgs), err)
	}
	for _, m := range msgs {
		switch m.ID {
		case res.UserMessage.ID:
			continue
		case next.UserMessage.ID:
			if m.StatusOf() != domain.StatusSent || m.Content != "still there?" {
				t.Fatalf("neighbouring user message changed: %+v", m)
			}
		default:
			if m.Status != nil || m.Role != domain.RoleAssistant {
				t.Fatalf("assistant message changed: %+v", m)
			}
		}
	}
	for _, status := range []string{"sending", "bogus", ""} {
		if _, err := env.app.UpdateMessageStatus(ctx, UpdateMessageStatusInput{MessageID: res.UserMessage.ID, Status: status}); !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("status %q: expected invalid status, got %v", status, err)
		}
	}
	if _, err := env.app.UpdateMessageStatus(ctx, UpdateMessageStatusInput{MessageID: res.AIMessage.ID, Status: "read"}); !errors.Is(err, ErrAssistantStatus) {
		t.Fatalf("expected assistant rejection, got %v", err)
	}
	if _, err := env.app.UpdateMessageStatus(ctx, UpdateMessageStatusInput{MessageID: "ghost", Status: "read"}); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPrincipalScopesAccess(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.signUp(t, "a@example.com")
	intruder := env.signUp(t, "b@example.com")
	chat, _ := env.app.CreateChat(context.Background(), CreateChatInput{UserID: owner.User.ID})
	sent, err := env.app.SendMessage(context.Background(), SendMessageInput{ChatID: chat.ID, UserID: owner.User.ID, Content: "hi"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	ctx := WithPrincipal(context.Background(), intruder.User.ID)
	if _, err := env.app.GetChats(ctx, UserIDInput{UserID: owner.User.ID}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("getChats: expected forbidden, got %v", err)
	}
	if _, err := env.app.GetMessages(ctx, ChatIDInput{ChatID: chat.ID}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("getMessages: expected forbidden, got %v", err)
	}
	if _, err := env.app.UpdateMessageStatus(ctx, UpdateMessageStatusInput{MessageID: sent.UserMessage.ID, Status: "read"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("updateMessageStatus: expected forbidden, got %v", err)
	}
	if _, err := env.app.GetMessages(ctx, ChatIDInput{ChatID: "ghost"}); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected chat not found under principal, got %v", err)
	}

	ownerCtx := WithPrincipal(context.Background(), owner.User.ID)
	if _, err := env.app.GetMessages(ownerCtx, ChatIDInput{ChatID: chat.ID}); err != nil {
		t.Fatalf("owner getMessages: %v", err)
	}
	if msgs, err := env.app.GetMessages(context.Background(), ChatIDInput{ChatID: "ghost"}); err != nil || len(msgs) != 0 {
		t.Fatalf("anonymous unknown chat = %v, %v", msgs, err)
	}
}

func TestParseDocument(t *testing.T) {
	archive := t.TempDir()
	objects, err := storage.NewFileStore(archive)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	env := newTestEnv(t, func(c *Config) { c.Objects = objects })
	ctx := context.Background()
	u := env.signUp(t, "a@example.com")
	pdf := []byte("%PDF-1.4 fake")

	if _, err := env.app.ParseDocument(ctx, ParseDocumentInput{FileName: "cv.pdf", ContentType: "application/pdf"}); !errors.Is(err, ErrNoFile) {
		t.Fatalf("expected no file, got %v", err)
	}
	if _, err := env.app.ParseDocument(ctx, ParseDocumentInput{FileName: "cv.txt", ContentType: "text/plain", Data: pdf}); !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected not pdf, got %v", err)
	}

	anon, err := env.app.ParseDocument(ctx, ParseDocumentInput{FileName: "cv.pdf", ContentType: "application/pdf", Data: pdf})
	if err != nil {
		t.Fatalf("anonymous parse: %v", err)
	}
	if anon.Sections.Skills != "Go, SQL" || !strings.Contains(anon.Sections.Contact, "jane@example.com") {
		t.Fatalf("unexpected sections: %+v", anon.Sections)
	}
	if _, ok, _ := env.store.GetDocument(anon.DocumentID); ok {
		t.Fatalf("anonymous upload must not be stored")
	}

	owned, err := env.app.ParseDocument(ctx, ParseDocumentInput{FileName: "../cv.pdf", ContentType: "application/pdf; charset=binary", Data: pdf, UserID: u.User.ID})
	if err != nil {
		t.Fatalf("owned parse: %v", err)
	}
	if owned.FileName != "cv.pdf" {
		t.Fatalf("expected base file name, got %q", owned.FileName)
	}
	doc, ok, err := env.store.GetDocument(owned.DocumentID)
	if err != nil || !ok {
		t.Fatalf("stored document: ok=%v err=%v", ok, err)
	}
	if doc.StorageKey != storage.ResumeKey(u.User.ID, owned.DocumentID) {
		t.Fatalf("unexpected storage key %q", doc.StorageKey)
	}
	if _, err := os.Stat(filepath.Join(archive, filepath.FromSlash(doc.StorageKey))); err != nil {
		t.Fatalf("archived pdf missing: %v", err)
	}
}

func TestParseDocumentExtractionFailure(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.Extractor = stubExtractor{err: errors.New("broken xref")} })
	_, err := env.app.ParseDocument(context.Background(), ParseDocumentInput{FileName: "cv.pdf", ContentType: "application/pdf", Data: []byte("%PDF-")})
	if !errors.Is(err, ErrParseFailed) || KindOf(err) != KindInternal {
		t.Fatalf("expected parse failure, got %v", err)
	}
}
