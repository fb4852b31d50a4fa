// Package settings holds the small key-value state (theme,
// chat-history-enabled) the core reads to gate chat-history durability and
// serves back through the settings HTTP endpoints.
package settings

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/glasscore/glasscore/pkg/store"
)

// Default is the preference set a brand-new user starts with.
var Default = Settings{Theme: "system", ChatHistoryEnabled: true}

// Settings is one user's preferences.
type Settings struct {
	Theme              string
	ChatHistoryEnabled bool
}

// Store is an in-memory settings table with optional durable read-through
// on first access and write-through on every update.
type Store struct {
	durable store.SettingsStore // nil when no database is configured
	logger  *slog.Logger

	mu   sync.Mutex
	byID map[string]Settings
}

// New builds a settings Store. durable may be nil.
func New(durable store.SettingsStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{durable: durable, logger: logger, byID: make(map[string]Settings)}
}

// Get returns userID's settings, loading from the durable store on first
// access if one is configured. A durable-store failure falls back to
// Default rather than blocking the caller.
func (s *Store) Get(ctx context.Context, userID string) Settings {
	s.mu.Lock()
	if cached, ok := s.byID[userID]; ok {
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()

	result := Default
	if s.durable != nil {
		loaded, err := s.durable.GetSettings(ctx, userID)
		switch {
		case err == nil:
			result = Settings{Theme: loaded.Theme, ChatHistoryEnabled: loaded.ChatHistoryEnabled}
		case errors.Is(err, store.ErrNotFound):
			// leave result as Default
		default:
			s.logger.Warn("settings durable read failed", "user_id", userID, "error", err)
		}
	}

	s.mu.Lock()
	s.byID[userID] = result
	s.mu.Unlock()
	return result
}

// Patch applies a partial update and writes through to the durable store
// if configured. A durable-store failure is logged; the in-memory value is
// still updated so the gateway's response reflects the caller's intent.
func (s *Store) Patch(ctx context.Context, userID string, theme *string, chatHistoryEnabled *bool) Settings {
	current := s.Get(ctx, userID)
	if theme != nil {
		current.Theme = *theme
	}
	if chatHistoryEnabled != nil {
		current.ChatHistoryEnabled = *chatHistoryEnabled
	}

	s.mu.Lock()
	s.byID[userID] = current
	s.mu.Unlock()

	if s.durable != nil {
		if err := s.durable.PutSettings(ctx, store.Settings{
			UserID:             userID,
			Theme:              current.Theme,
			ChatHistoryEnabled: current.ChatHistoryEnabled,
		}); err != nil {
			s.logger.Warn("settings durable write failed", "user_id", userID, "error", err)
		}
	}
	return current
}

// ChatHistoryEnabledFunc returns a closure suitable for
// pkg/core/chat.New's enabled parameter.
func (s *Store) ChatHistoryEnabledFunc(userID string) func() bool {
	return func() bool {
		return s.Get(context.Background(), userID).ChatHistoryEnabled
	}
}
