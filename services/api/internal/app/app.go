package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mayank-dotcom/career-bot/pkg/ai"
	"github.com/mayank-dotcom/career-bot/pkg/storage"
	"github.com/mayank-dotcom/career-bot/pkg/store"
)

// TextExtractor turns uploaded PDF bytes into text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Config wires the dependencies of App.
type Config struct {
	Store    store.Store
	Sessions store.SessionStore
	LLM      ai.ChatCompleter
	// Model is only reported in logs; the provider owns the real setting.
	Model string
	// HistoryLimit caps the messages sent to the LLM; 0 sends the whole chat.
	HistoryLimit int
	Extractor    TextExtractor
	// Objects archives raw PDFs when set.
	Objects storage.ObjectStore

	Now   func() time.Time
	NewID func() string
}

// App implements the career bot procedures.
type App struct {
	store        store.Store
	sessions     store.SessionStore
	llm          ai.ChatCompleter
	model        string
	historyLimit int
	extractor    TextExtractor
	objects      storage.ObjectStore
	now          func() time.Time
	newID        func() string

	// appendMu serializes message stamping so times within a chat stay increasing.
	appendMu sync.Mutex
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.LLM == nil {
		return nil, errors.New("llm client is required")
	}
	if cfg.Extractor == nil {
		return nil, errors.New("pdf extractor is required")
	}
	if cfg.HistoryLimit < 0 {
		cfg.HistoryLimit = 0
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &App{
		store:        cfg.Store,
		sessions:     cfg.Sessions,
		llm:          cfg.LLM,
		model:        cfg.Model,
		historyLimit: cfg.HistoryLimit,
		extractor:    cfg.Extractor,
		objects:      cfg.Objects,
		now:          cfg.Now,
		newID:        cfg.NewID,
	}, nil
}

// timestamp returns the current UTC time at the precision Postgres keeps.
func (a *App) timestamp() time.Time {
	return a.now().UTC().Truncate(time.Microsecond)
}
