// Package rpcclient is a Go client for the career bot RPC API.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mayank-dotcom/career-bot/pkg/domain"
)

const defaultTimeout = 2 * time.Minute

// Client calls the API over HTTP. It remembers the session token returned by
// SignUp and SignIn and sends it as a bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

type Option func(*Client)

// WithHTTPClient replaces the default client (2 minute timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithToken starts the client with an existing session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// New constructs a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

// AuthResult is the signup/signin payload.
type AuthResult struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

type SendMessageResult struct {
	UserMessage domain.Message `json:"userMessage"`
	AIMessage   domain.Message `json:"aiMessage"`
}

// ParsedDocument is the /api/parse-pdf response.
type ParsedDocument struct {
	Text       string                `json:"text"`
	FileName   string                `json:"fileName"`
	UploadDate string                `json:"uploadDate"`
	DocumentID string                `json:"documentId"`
	Sections   domain.ResumeSections `json:"sections"`
}

func (c *Client) SignUp(ctx context.Context, email, password, name string) (AuthResult, error) {
	in := map[string]any{"email": email, "password": password}
	if strings.TrimSpace(name) != "" {
		in["name"] = name
	}
	var out AuthResult
	if err := c.Call(ctx, ProcSignUp, in, &out); err != nil {
		return AuthResult{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	if err := c.Call(ctx, ProcSignIn, map[string]string{"email": email, "password": password}, &out); err != nil {
		return AuthResult{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

// SignOut revokes the current token and forgets it locally even when the
// server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	token := c.Token()
	c.SetToken("")
	if token == "" {
		return nil
	}
	return c.call(ctx, ProcSignOut, token, map[string]string{"token": token}, nil)
}

// CurrentUser resolves the user behind the current token.
func (c *Client) CurrentUser(ctx context.Context) (domain.User, error) {
	var user domain.User
	err := c.Call(ctx, ProcGetCurrentUser, map[string]string{"token": c.Token()}, &user)
	return user, err
}

func (c *Client) UpdateUser(ctx context.Context, id, email string, name *string) (domain.User, error) {
	in := map[string]any{"id": id, "email": email}
	if name != nil {
		in["name"] = *name
	}
	var user domain.User
	err := c.Call(ctx, ProcUpdateUser, in, &user)
	return user, err
}

// GetUserByID returns nil when the user does not exist.
func (c *Client) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user *domain.User
	err := c.Call(ctx, ProcGetUserByID, map[string]string{"userId": id}, &user)
	return user, err
}

// CreateChat opens a chat; an empty title lets the server pick the default.
func (c *Client) CreateChat(ctx context.Context, userID, title string) (domain.Chat, error) {
	in := map[string]string{"userId": userID}
	if title != "" {
		in["title"] = title
	}
	var chat domain.Chat
	err := c.Call(ctx, ProcCreateChat, in, &chat)
	return chat, err
}

func (c *Client) GetChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	var chats []domain.Chat
	err := c.Call(ctx, ProcGetChats, map[string]string{"userId": userID}, &chats)
	return chats, err
}

func (c *Client) GetMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	var msgs []domain.Message
	err := c.Call(ctx, ProcGetMessages, map[string]string{"chatId": chatID}, &msgs)
	return msgs, err
}

func (c *Client) SendMessage(ctx context.Context, chatID, userID, content string) (SendMessageResult, error) {
	var out SendMessageResult
	err := c.Call(ctx, ProcSendMessage, map[string]string{"chatId": chatID, "userId": userID, "content": content}, &out)
	return out, err
}

func (c *Client) UpdateMessageStatus(ctx context.Context, messageID string, status domain.MessageStatus) (domain.Message, error) {
	var msg domain.Message
	err := c.Call(ctx, ProcUpdateMessageStatus, map[string]string{"messageId": messageID, "status": string(status)}, &msg)
	return msg, err
}

// ParsePDF uploads a PDF and returns its extracted text.
func (c *Client) ParsePDF(ctx context.Context, fileName string, r io.Reader) (ParsedDocument, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(fileName)))
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	if err != nil {
		return ParsedDocument{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return ParsedDocument{}, fmt.Errorf("read %s: %w", fileName, err)
	}
	if err := mw.Close(); err != nil {
		return ParsedDocument{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/parse-pdf", &buf)
	if err != nil {
		return ParsedDocument{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ParsedDocument{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return ParsedDocument{}, &APIError{Status: resp.StatusCode, Message: msg}
	}
	var doc ParsedDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return ParsedDocument{}, fmt.Errorf("decode parse-pdf response: %w", err)
	}
	return doc, nil
}

// Call invokes a registered procedure with input and decodes its result into out.
func (c *Client) Call(ctx context.Context, name string, input, out any) error {
	return c.call(ctx, name, c.Token(), input, out)
}

func (c *Client) call(ctx context.Context, name, token string, input, out any) error {
	proc, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("unknown procedure %q", name)
	}
	data, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encode %s input: %w", name, err)
	}
	target := c.baseURL + "/rpc/" + name
	method := http.MethodPost
	var body io.Reader = bytes.NewReader(data)
	if proc.Kind == KindQuery {
		method = http.MethodGet
		target += "?input=" + url.QueryEscape(string(data))
		body = nil
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&envelope)
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}
		if decodeErr == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			if envelope.Error.Message != "" {
				apiErr.Message = envelope.Error.Message
			}
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decode %s response: %w", name, decodeErr)
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", name, err)
	}
	return nil
}
