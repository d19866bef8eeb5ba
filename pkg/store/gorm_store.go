package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mayank-dotcom/career-bot/pkg/domain"
)

const migrateLockID int64 = 51830417

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// GormStore implements Store using GORM on Postgres or SQLite.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB for the given driver and runs auto-migrations.
func NewGormStore(driver, dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	cfg := &gorm.Config{Logger: gormLog, TranslateError: true}

	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres, "":
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		err = withMigrationLock(db, migrate)
	case DriverSQLite:
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		err = prepareSQLite(db)
		if err == nil {
			err = migrate(db)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func migrate(tx *gorm.DB) error {
	if err := tx.AutoMigrate(&UserModel{}, &ChatModel{}, &MessageModel{}, &DocumentModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// SQLite enforces foreign keys per connection, so the pool is pinned to one.
func prepareSQLite(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return fmt.Errorf("enable sqlite foreign keys: %w", err)
	}
	return nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateUser inserts a new user; a taken email yields ErrDuplicateEmail.
func (s *GormStore) CreateUser(u domain.User) error {
	model := userToModel(u)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// UpdateUser rewrites the mutable profile columns of an existing user.
func (s *GormStore) UpdateUser(u domain.User) error {
	res := s.db.Model(&UserModel{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"email":         u.Email,
			"name":          u.Name,
			"is_subscribed": u.IsSubscribed,
			"updated_at":    u.UpdatedAt.UTC(),
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateChat inserts a chat owned by an existing user.
func (s *GormStore) CreateChat(c domain.Chat) error {
	model := chatToModel(c)
	if err := s.db.Omit("Messages").Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// GetChat returns one chat without its messages.
func (s *GormStore) GetChat(id string) (domain.Chat, bool, error) {
	var model ChatModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Chat{}, false, nil
		}
		return domain.Chat{}, false, err
	}
	return chatFromModel(model), true, nil
}

// ListChatsByUser returns the user's chats, most recently updated first,
// each carrying its messages in creation order.
func (s *GormStore) ListChatsByUser(userID string) ([]domain.Chat, error) {
	var models []ChatModel
	err := s.db.Where("user_id = ?", userID).
		Preload("Messages", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC").Order("id ASC")
		}).
		Order("updated_at DESC").
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	chats := make([]domain.Chat, 0, len(models))
	for _, m := range models {
		chat := chatFromModel(m)
		chat.Messages = make([]domain.Message, 0, len(m.Messages))
		for _, msg := range m.Messages {
			chat.Messages = append(chat.Messages, messageFromModel(msg))
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

// TouchChat sets the chat's updated_at.
func (s *GormStore) TouchChat(id string, at time.Time) error {
	res := s.db.Model(&ChatModel{}).Where("id = ?", id).UpdateColumn("updated_at", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage records a message in an existing chat.
func (s *GormStore) AppendMessage(msg domain.Message) error {
	model := messageToModel(msg)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// GetMessage returns one message by ID.
func (s *GormStore) GetMessage(id string) (domain.Message, bool, error) {
	var model MessageModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Message{}, false, nil
		}
		return domain.Message{}, false, err
	}
	return messageFromModel(model), true, nil
}

// ListMessages returns a chat's messages oldest first. A positive limit keeps
// only the most recent limit messages.
func (s *GormStore) ListMessages(chatID string, limit int) ([]domain.Message, error) {
	var models []MessageModel
	query := s.db.Where("chat_id = ?", chatID)
	if limit > 0 {
		if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&models).Error; err != nil {
			return nil, err
		}
		for i, j := 0, len(models)-1; i < j; i, j = i+1, j-1 {
			models[i], models[j] = models[j], models[i]
		}
	} else if err := query.Order("created_at ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(models))
	for _, m := range models {
		msgs = append(msgs, messageFromModel(m))
	}
	return msgs, nil
}

// UpdateMessageStatus changes only the status column of one message.
func (s *GormStore) UpdateMessageStatus(id string, status domain.MessageStatus) error {
	res := s.db.Model(&MessageModel{}).Where("id = ?", id).UpdateColumn("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveDocument stores parsed PDF text for a user.
func (s *GormStore) SaveDocument(doc domain.Document) error {
	model, err := documentToModel(doc)
	if err != nil {
		return err
	}
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// GetDocument returns one stored document.
func (s *GormStore) GetDocument(id string) (domain.Document, bool, error) {
	var model DocumentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Document{}, false, nil
		}
		return domain.Document{}, false, err
	}
	return documentFromModel(model), true, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		IsSubscribed: u.IsSubscribed,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Name:         m.Name,
		IsSubscribed: m.IsSubscribed,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

func chatToModel(c domain.Chat) ChatModel {
	return ChatModel{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func chatFromModel(m ChatModel) domain.Chat {
	return domain.Chat{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

func messageToModel(msg domain.Message) MessageModel {
	var status *string
	if msg.Status != nil {
		value := string(*msg.Status)
		status = &value
	}
	return MessageModel{
		ID:        msg.ID,
		ChatID:    msg.ChatID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		Status:    status,
		CreatedAt: msg.CreatedAt.UTC(),
	}
}

func messageFromModel(m MessageModel) domain.Message {
	var status *domain.MessageStatus
	if m.Status != nil && *m.Status != "" {
		status = domain.StatusPtr(domain.MessageStatus(*m.Status))
	}
	return domain.Message{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Role:      domain.Role(m.Role),
		Content:   m.Content,
		Status:    status,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func documentToModel(doc domain.Document) (DocumentModel, error) {
	sections, err := json.Marshal(doc.Sections)
	if err != nil {
		return DocumentModel{}, fmt.Errorf("encode sections: %w", err)
	}
	return DocumentModel{
		ID:         doc.ID,
		UserID:     doc.UserID,
		FileName:   doc.FileName,
		Text:       doc.Text,
		Sections:   datatypes.JSON(sections),
		StorageKey: doc.StorageKey,
		SizeBytes:  doc.SizeBytes,
		UploadDate: doc.UploadDate.UTC(),
	}, nil
}

func documentFromModel(m DocumentModel) domain.Document {
	var sections domain.ResumeSections
	if len(m.Sections) > 0 {
		_ = json.Unmarshal(m.Sections, &sections)
	}
	return domain.Document{
		ID:         m.ID,
		UserID:     m.UserID,
		FileName:   m.FileName,
		Text:       m.Text,
		Sections:   sections,
		StorageKey: m.StorageKey,
		SizeBytes:  m.SizeBytes,
		UploadDate: m.UploadDate.UTC(),
	}
}
