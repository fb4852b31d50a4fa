// Package chat keeps a bounded per-user ring of conversation turns, with an
// optional durable append so history survives process restarts when a
// database is configured.
package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/glasscore/glasscore/pkg/store"
)

// DefaultCapacity is the number of turns kept in memory per user.
const DefaultCapacity = 30

// Turn is one in-memory conversation turn. PhotoRef is an opaque
// identifier (a photo request id or URL), never raw image bytes.
type Turn struct {
	Query     string
	Response  string
	Timestamp time.Time
	HadPhoto  bool
	PhotoRef  string
}

// History is one user's bounded turn ring.
type History struct {
	userID   string
	capacity int
	durable  store.ChatHistoryStore // nil when no database is configured
	enabled  func() bool            // reflects the user's chatHistoryEnabled setting
	logger   *slog.Logger

	mu    sync.Mutex
	turns []Turn // oldest first, len <= capacity
}

// New builds a History for userID. durable may be nil. enabled, if
// non-nil, gates whether AddTurn writes through to durable; nil means
// always enabled.
func New(userID string, durable store.ChatHistoryStore, enabled func() bool, logger *slog.Logger) *History {
	if logger == nil {
		logger = slog.Default()
	}
	return &History{
		userID:   userID,
		capacity: DefaultCapacity,
		durable:  durable,
		enabled:  enabled,
		logger:   logger,
	}
}

// AddTurn writes to the in-memory ring synchronously and, if a durable
// store is configured and chat history is enabled, appends asynchronously
// with a short deadline. Durable failures are logged and never surfaced to
// the caller: the in-memory ring is authoritative.
func (h *History) AddTurn(query, response string, hadPhoto bool, photoRef string) {
	turn := Turn{
		Query:     query,
		Response:  response,
		Timestamp: time.Now(),
		HadPhoto:  hadPhoto,
		PhotoRef:  photoRef,
	}

	h.mu.Lock()
	h.turns = append(h.turns, turn)
	if len(h.turns) > h.capacity {
		h.turns = h.turns[len(h.turns)-h.capacity:]
	}
	h.mu.Unlock()

	if h.durable == nil || (h.enabled != nil && !h.enabled()) {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := h.durable.AppendTurn(ctx, store.ChatTurn{
			UserID:    h.userID,
			Date:      turn.Timestamp.UTC().Format("2006-01-02"),
			Query:     query,
			Response:  response,
			HadPhoto:  hadPhoto,
			PhotoRef:  photoRef,
			Timestamp: turn.Timestamp,
		})
		if err != nil {
			h.logger.Warn("chat history durable append failed", "user_id", h.userID, "error", err)
		}
	}()
}

// RecentTurns returns up to limit turns, youngest-last, filtered to those
// younger than maxAge (zero means no age filter).
func (h *History) RecentTurns(limit int, maxAge time.Duration) []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()

	turns := h.turns
	if maxAge > 0 {
		cutoff := time.Now().Add(-maxAge)
		var filtered []Turn
		for _, t := range turns {
			if t.Timestamp.After(cutoff) {
				filtered = append(filtered, t)
			}
		}
		turns = filtered
	}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
