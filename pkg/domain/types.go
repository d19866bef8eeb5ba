package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageStatus is the delivery label shown next to user-authored messages.
type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusError     MessageStatus = "error"
)

var statusRank = map[MessageStatus]int{
	StatusSending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// Valid reports whether s is a known status.
func (s MessageStatus) Valid() bool {
	if s == StatusError {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Persistable reports whether s may be written to storage.
// "sending" only ever exists on the client.
func (s MessageStatus) Persistable() bool {
	return s.Valid() && s != StatusSending
}

// CanAdvanceTo reports whether the progression s -> next moves forward.
// Any non-terminal status may fall into error; error and read are terminal.
func (s MessageStatus) CanAdvanceTo(next MessageStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == StatusError || s == StatusRead {
		return false
	}
	if next == StatusError {
		return true
	}
	return statusRank[next] > statusRank[s]
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name,omitempty"`
	IsSubscribed bool      `json:"isSubscribed"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Messages  []Message `json:"messages,omitempty"`
}

type Message struct {
	ID        string         `json:"id"`
	ChatID    string         `json:"chatId"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Status    *MessageStatus `json:"status,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// StatusOf returns the message status or "" for assistant messages.
func (m Message) StatusOf() MessageStatus {
	if m.Status == nil {
		return ""
	}
	return *m.Status
}

// Document is text extracted from an uploaded PDF (usually a resume).
type Document struct {
	ID         string         `json:"id"`
	UserID     string         `json:"userId,omitempty"`
	FileName   string         `json:"fileName"`
	Text       string         `json:"text"`
	Sections   ResumeSections `json:"sections"`
	StorageKey string         `json:"-"`
	SizeBytes  int64          `json:"sizeBytes"`
	UploadDate time.Time      `json:"uploadDate"`
}

type ResumeSections struct {
	Contact        string `json:"contact"`
	Summary        string `json:"summary"`
	Experience     string `json:"experience"`
	Education      string `json:"education"`
	Skills         string `json:"skills"`
	Projects       string `json:"projects"`
	Certifications string `json:"certifications"`
}

// StatusPtr is a convenience for building messages.
func StatusPtr(s MessageStatus) *MessageStatus {
	return &s
}
