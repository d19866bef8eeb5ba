package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mayank-dotcom/career-bot/pkg/domain"
)

// Session is the locally cached sign-in.
type Session struct {
	Token   string      `json:"token"`
	User    domain.User `json:"user"`
	SavedAt time.Time   `json:"savedAt"`
}

// SessionCache persists a Session as JSON. Restored sessions are trusted as
// is; call Verify to check one against the server.
type SessionCache struct {
	path string
}

func NewSessionCache(path string) *SessionCache {
	return &SessionCache{path: path}
}

// DefaultSessionPath is <user config dir>/career-bot/session.json.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "career-bot", "session.json"), nil
}

func (c *SessionCache) Path() string { return c.path }

// Load returns the cached session. A missing file reports false; an
// unreadable one is removed and also reports false.
func (c *SessionCache) Load() (Session, bool, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil || s.Token == "" || s.User.ID == "" {
		_ = c.Clear()
		return Session{}, false, nil
	}
	return s, true, nil
}

// Save writes the session with owner-only permissions.
func (c *SessionCache) Save(s Session) error {
	if s.SavedAt.IsZero() {
		s.SavedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".session-*.json")
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp.Name(), c.path)
}

// Clear removes the cached session.
func (c *SessionCache) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Verify asks the server whether the session token is still valid and
// returns the current user record.
func (c *SessionCache) Verify(ctx context.Context, client *Client, s Session) (domain.User, error) {
	var user domain.User
	err := client.call(ctx, ProcGetCurrentUser, s.Token, map[string]string{"token": s.Token}, &user)
	return user, err
}
