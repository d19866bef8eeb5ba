package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mayank-dotcom/career-bot/internal/util"
	"github.com/mayank-dotcom/career-bot/pkg/ai"
	"github.com/mayank-dotcom/career-bot/pkg/domain"
	"github.com/mayank-dotcom/career-bot/pkg/store"
)

const (
	DefaultChatTitle = "New Chat"
	maxTitleLength   = 100
	maxContentLength = 20000
)

type CreateChatInput struct {
	UserID string  `json:"userId"`
	Title  *string `json:"title,omitempty"`
}

type ChatIDInput struct {
	ChatID string `json:"chatId"`
}

type SendMessageInput struct {
	ChatID  string `json:"chatId"`
	UserID  string `json:"userId"`
	Content string `json:"content"`
}

type SendMessageResult struct {
	UserMessage domain.Message `json:"userMessage"`
	AIMessage   domain.Message `json:"aiMessage"`
}

type UpdateMessageStatusInput struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// CreateChat opens an empty chat for an existing user.
func (a *App) CreateChat(ctx context.Context, in CreateChatInput) (domain.Chat, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return domain.Chat{}, validation("User id is required")
	}
	if err := authorize(ctx, userID); err != nil {
		return domain.Chat{}, err
	}
	if err := a.requireUser(userID); err != nil {
		return domain.Chat{}, err
	}
	now := a.timestamp()
	chat := domain.Chat{
		ID:        a.newID(),
		UserID:    userID,
		Title:     chatTitle(in.Title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.CreateChat(chat); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Chat{}, UserNotFound(userID)
		}
		return domain.Chat{}, wrap(ErrInternal, fmt.Errorf("create chat: %w", err))
	}
	chat.Messages = []domain.Message{}
	return chat, nil
}

// GetChats lists a user's chats, most recently active first, with their messages.
func (a *App) GetChats(ctx context.Context, in UserIDInput) ([]domain.Chat, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, validation("User id is required")
	}
	if err := authorize(ctx, userID); err != nil {
		return nil, err
	}
	if err := a.requireUser(userID); err != nil {
		return nil, err
	}
	chats, err := a.store.ListChatsByUser(userID)
	if err != nil {
		return nil, wrap(ErrInternal, fmt.Errorf("list chats: %w", err))
	}
	for i := range chats {
		if chats[i].Messages == nil {
			chats[i].Messages = []domain.Message{}
		}
	}
	return chats, nil
}

// GetMessages returns a chat's messages oldest first. An unknown chat has none.
func (a *App) GetMessages(ctx context.Context, in ChatIDInput) ([]domain.Message, error) {
	chatID := strings.TrimSpace(in.ChatID)
	if chatID == "" {
		return nil, validation("Chat id is required")
	}
	chat, ok, err := a.store.GetChat(chatID)
	if err != nil {
		return nil, wrap(ErrInternal, fmt.Errorf("load chat: %w", err))
	}
	if !ok {
		if _, authed := PrincipalFromContext(ctx); authed {
			return nil, ErrChatNotFound
		}
		return []domain.Message{}, nil
	}
	if err := authorize(ctx, chat.UserID); err != nil {
		return nil, err
	}
	msgs, err := a.store.ListMessages(chatID, 0)
	if err != nil {
		return nil, wrap(ErrInternal, fmt.Errorf("list messages: %w", err))
	}
	return msgs, nil
}

// SendMessage stores the user's message, asks the LLM for a reply over the
// chat history and stores the reply. The user message is kept when the
// provider fails.
func (a *App) SendMessage(ctx context.Context, in SendMessageInput) (SendMessageResult, error) {
	logger := util.LoggerFromContext(ctx)
	chatID := strings.TrimSpace(in.ChatID)
	userID := strings.TrimSpace(in.UserID)
	if chatID == "" || userID == "" {
		return SendMessageResult{}, validation("Chat id and user id are required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return SendMessageResult{}, ErrEmptyContent
	}
	if len([]rune(in.Content)) > maxContentLength {
		return SendMessageResult{}, validation(fmt.Sprintf("Message must be at most %d characters", maxContentLength))
	}
	if err := authorize(ctx, userID); err != nil {
		return SendMessageResult{}, err
	}
	chat, ok, err := a.store.GetChat(chatID)
	if err != nil {
		return SendMessageResult{}, wrap(ErrInternal, fmt.Errorf("load chat: %w", err))
	}
	if !ok {
		return SendMessageResult{}, ErrChatNotFound
	}
	if chat.UserID != userID {
		return SendMessageResult{}, ErrForbidden
	}

	userMsg, err := a.appendMessage(domain.Message{
		ID:      a.newID(),
		ChatID:  chatID,
		Role:    domain.RoleUser,
		Content: in.Content,
		Status:  domain.StatusPtr(domain.StatusSent),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return SendMessageResult{}, ErrChatNotFound
		}
		return SendMessageResult{}, wrap(ErrInternal, fmt.Errorf("save user message: %w", err))
	}

	history, err := a.store.ListMessages(chatID, a.historyLimit)
	if err != nil {
		return SendMessageResult{}, wrap(ErrInternal, fmt.Errorf("load history: %w", err))
	}
	started := time.Now()
	reply, err := a.llm.Complete(ctx, ai.ChatRequest{
		SystemPrompt: SystemPrompt,
		Messages:     toChatMessages(history),
		MaxTokens:    MaxResponseTokens,
		Temperature:  Temperature,
	})
	if err != nil {
		logger.Error("ai completion failed",
			"chat_id", chatID,
			"model", a.model,
			"history", len(history),
			"duration_ms", time.Since(started).Milliseconds(),
			"err", err,
		)
		return SendMessageResult{}, wrap(ErrAIResponse, err)
	}
	if strings.TrimSpace(reply) == "" {
		reply = FallbackAIResponse
	}

	aiMsg, err := a.appendMessage(domain.Message{
		ID:      a.newID(),
		ChatID:  chatID,
		Role:    domain.RoleAssistant,
		Content: reply,
	})
	if err != nil {
		return SendMessageResult{}, wrap(ErrInternal, fmt.Errorf("save ai message: %w", err))
	}
	if err := a.store.TouchChat(chatID, aiMsg.CreatedAt); err != nil && !errors.Is(err, store.ErrNotFound) {
		return SendMessageResult{}, wrap(ErrInternal, fmt.Errorf("touch chat: %w", err))
	}
	logger.Info("ai reply stored",
		"chat_id", chatID,
		"model", a.model,
		"history", len(history),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return SendMessageResult{UserMessage: userMsg, AIMessage: aiMsg}, nil
}

// appendMessage stamps msg strictly after the newest message of its chat
// and stores it.
func (a *App) appendMessage(msg domain.Message) (domain.Message, error) {
	a.appendMu.Lock()
	defer a.appendMu.Unlock()
	latest, err := a.store.ListMessages(msg.ChatID, 1)
	if err != nil {
		return domain.Message{}, fmt.Errorf("load latest message: %w", err)
	}
	msg.CreatedAt = a.timestamp()
	if n := len(latest); n > 0 && !msg.CreatedAt.After(latest[n-1].CreatedAt) {
		msg.CreatedAt = latest[n-1].CreatedAt.Add(time.Microsecond)
	}
	if err := a.store.AppendMessage(msg); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// UpdateMessageStatus overwrites the delivery status of a user message.
func (a *App) UpdateMessageStatus(ctx context.Context, in UpdateMessageStatusInput) (domain.Message, error) {
	status := domain.MessageStatus(strings.TrimSpace(in.Status))
	if !status.Persistable() {
		return domain.Message{}, ErrInvalidStatus
	}
	id := strings.TrimSpace(in.MessageID)
	if id == "" {
		return domain.Message{}, validation("Message id is required")
	}
	msg, ok, err := a.store.GetMessage(id)
	if err != nil {
		return domain.Message{}, wrap(ErrInternal, fmt.Errorf("load message: %w", err))
	}
	if !ok {
		return domain.Message{}, ErrMessageNotFound
	}
	if msg.Role != domain.RoleUser {
		return domain.Message{}, ErrAssistantStatus
	}
	if _, authed := PrincipalFromContext(ctx); authed {
		chat, ok, err := a.store.GetChat(msg.ChatID)
		if err != nil {
			return domain.Message{}, wrap(ErrInternal, fmt.Errorf("load chat: %w", err))
		}
		if !ok {
			return domain.Message{}, ErrMessageNotFound
		}
		if err := authorize(ctx, chat.UserID); err != nil {
			return domain.Message{}, err
		}
	}
	if err := a.store.UpdateMessageStatus(id, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Message{}, ErrMessageNotFound
		}
		return domain.Message{}, wrap(ErrInternal, fmt.Errorf("update status: %w", err))
	}
	msg.Status = domain.StatusPtr(status)
	return msg, nil
}

func (a *App) requireUser(id string) error {
	_, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return wrap(ErrInternal, fmt.Errorf("load user: %w", err))
	}
	if !ok {
		return UserNotFound(id)
	}
	return nil
}

func chatTitle(title *string) string {
	if title == nil {
		return DefaultChatTitle
	}
	t := strings.TrimSpace(*title)
	if t == "" {
		return DefaultChatTitle
	}
	if r := []rune(t); len(r) > maxTitleLength {
		t = string(r[:maxTitleLength])
	}
	return t
}

func toChatMessages(history []domain.Message) []ai.ChatMessage {
	out := make([]ai.ChatMessage, 0, len(history))
	for _, m := range history {
		out = append(out, ai.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
