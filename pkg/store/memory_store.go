package store

import (
	"sort"
	"sync"
	"time"

	"github.com/mayank-dotcom/career-bot/pkg/domain"
)

// MemoryStore is an in-memory Store for dev and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	emails    map[string]string
	chats     map[string]domain.Chat
	messages  map[string]domain.Message
	byChat    map[string][]string
	documents map[string]domain.Document
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		emails:    make(map[string]string),
		chats:     make(map[string]domain.Chat),
		messages:  make(map[string]domain.Message),
		byChat:    make(map[string][]string),
		documents: make(map[string]domain.Document),
	}
}

func (s *MemoryStore) CreateUser(u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[u.Email]; taken {
		return ErrDuplicateEmail
	}
	s.users[u.ID] = u
	s.emails[u.Email] = u.ID
	return nil
}

func (s *MemoryStore) HasUserEmail(email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.emails[email]
	return ok, nil
}

func (s *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) UpdateUser(u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	if owner, taken := s.emails[u.Email]; taken && owner != u.ID {
		return ErrDuplicateEmail
	}
	delete(s.emails, existing.Email)
	existing.Email = u.Email
	existing.Name = u.Name
	existing.IsSubscribed = u.IsSubscribed
	existing.UpdatedAt = u.UpdatedAt
	s.users[u.ID] = existing
	s.emails[u.Email] = u.ID
	return nil
}

func (s *MemoryStore) CreateChat(c domain.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[c.UserID]; !ok {
		return ErrNotFound
	}
	c.Messages = nil
	s.chats[c.ID] = c
	return nil
}

func (s *MemoryStore) GetChat(id string) (domain.Chat, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[id]
	return c, ok, nil
}

func (s *MemoryStore) ListChatsByUser(userID string) ([]domain.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chats := make([]domain.Chat, 0)
	for _, c := range s.chats {
		if c.UserID != userID {
			continue
		}
		c.Messages = s.orderedMessages(c.ID, 0)
		chats = append(chats, c)
	}
	sort.Slice(chats, func(i, j int) bool {
		if !chats[i].UpdatedAt.Equal(chats[j].UpdatedAt) {
			return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
		}
		return chats[i].CreatedAt.After(chats[j].CreatedAt)
	})
	return chats, nil
}

func (s *MemoryStore) TouchChat(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return ErrNotFound
	}
	c.UpdatedAt = at
	s.chats[id] = c
	return nil
}

func (s *MemoryStore) AppendMessage(msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[msg.ChatID]; !ok {
		return ErrNotFound
	}
	if msg.Status != nil {
		msg.Status = domain.StatusPtr(*msg.Status)
	}
	s.messages[msg.ID] = msg
	s.byChat[msg.ChatID] = append(s.byChat[msg.ChatID], msg.ID)
	return nil
}

func (s *MemoryStore) GetMessage(id string) (domain.Message, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	return copyMessage(msg), ok, nil
}

func (s *MemoryStore) ListMessages(chatID string, limit int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orderedMessages(chatID, limit), nil
}

func (s *MemoryStore) UpdateMessageStatus(id string, status domain.MessageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}
	msg.Status = domain.StatusPtr(status)
	s.messages[id] = msg
	return nil
}

func (s *MemoryStore) SaveDocument(doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[doc.UserID]; !ok {
		return ErrNotFound
	}
	s.documents[doc.ID] = doc
	return nil
}

func (s *MemoryStore) GetDocument(id string) (domain.Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	return doc, ok, nil
}

// orderedMessages expects s.mu to be held.
func (s *MemoryStore) orderedMessages(chatID string, limit int) []domain.Message {
	ids := s.byChat[chatID]
	msgs := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		msgs = append(msgs, copyMessage(s.messages[id]))
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs
}

func copyMessage(msg domain.Message) domain.Message {
	if msg.Status != nil {
		msg.Status = domain.StatusPtr(*msg.Status)
	}
	return msg
}
