package store

import (
	"errors"
	"time"

	"github.com/mayank-dotcom/career-bot/pkg/domain"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Store defines persistence operations for users, chats, messages and documents.
type Store interface {
	// users
	CreateUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	UpdateUser(domain.User) error

	// chats
	CreateChat(domain.Chat) error
	GetChat(id string) (domain.Chat, bool, error)
	ListChatsByUser(userID string) ([]domain.Chat, error)
	TouchChat(id string, at time.Time) error

	// messages
	AppendMessage(domain.Message) error
	GetMessage(id string) (domain.Message, bool, error)
	ListMessages(chatID string, limit int) ([]domain.Message, error)
	UpdateMessageStatus(id string, status domain.MessageStatus) error

	// documents
	SaveDocument(domain.Document) error
	GetDocument(id string) (domain.Document, bool, error)
}

// SessionStore issues and validates session tokens.
type SessionStore interface {
	NewSession(user domain.User) (string, error)
	ParseSession(token string) (SessionClaims, error)
	DeleteSession(token string) error
}

// SessionClaims is the verified content of a session token.
type SessionClaims struct {
	UserID    string
	Email     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
