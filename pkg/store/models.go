package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string
	IsSubscribed bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`

	Chats     []ChatModel     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Documents []DocumentModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

type ChatModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index"`
	Title     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index"`

	Messages []MessageModel `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
}

type MessageModel struct {
	ID        string    `gorm:"primaryKey"`
	ChatID    string    `gorm:"not null;index:idx_message_chat_created,priority:1"`
	Role      string    `gorm:"not null"`
	Content   string    `gorm:"type:text;not null"`
	Status    *string   `gorm:"size:16"`
	CreatedAt time.Time `gorm:"not null;index:idx_message_chat_created,priority:2"`
}

type DocumentModel struct {
	ID         string `gorm:"primaryKey"`
	UserID     string `gorm:"not null;index"`
	FileName   string `gorm:"not null"`
	Text       string `gorm:"type:text;not null"`
	Sections   datatypes.JSON
	StorageKey string
	SizeBytes  int64     `gorm:"not null"`
	UploadDate time.Time `gorm:"not null"`
}
