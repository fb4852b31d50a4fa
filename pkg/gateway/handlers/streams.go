// Package handlers implements the HTTP surface described by the external
// interfaces section: server-push streams, hardware passthrough actions,
// settings, and photo retrieval.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/glasscore/glasscore/pkg/core/chat"
	"github.com/glasscore/glasscore/pkg/core/eventbus"
	"github.com/glasscore/glasscore/pkg/core/idgen"
	"github.com/glasscore/glasscore/pkg/core/session"
	"github.com/glasscore/glasscore/pkg/gateway/sse"
)

// AgentSenderID mirrors pkg/core/query.AgentID without importing the query
// package into the gateway's HTTP layer.
const AgentSenderID = "agent"

// StreamDeps bundles the collaborators every server-push endpoint needs.
type StreamDeps struct {
	Bus               *eventbus.Bus
	Registry          *session.Registry
	HeartbeatInterval time.Duration
	Logger            *slog.Logger
}

type connectedEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type heartbeatEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Active    bool      `json:"active"`
}

type historyMessage struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId,omitempty"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	Image       string    `json:"image,omitempty"`
}

type historyEvent struct {
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Messages  []historyMessage `json:"messages"`
}

// ChatStreamHandler serves GET /api/chat/stream?userId=...
type ChatStreamHandler struct{ StreamDeps }

func (h ChatStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	sse.SetHeaders(w)
	w.WriteHeader(http.StatusOK)
	writer, err := sse.New(w)
	if err != nil {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	if err := writer.Write(mustJSON(connectedEvent{Type: "connected", Timestamp: time.Now()})); err != nil {
		return
	}

	subscriberID := idgen.NewPrefixed("sub_")
	flushed := h.Bus.Subscribe(userID, eventbus.TopicChat, subscriberID, writer)

	user, ok := h.Registry.Get(userID)
	if !flushed {
		messages := expandHistory(user, ok)
		if err := writer.Write(mustJSON(historyEvent{Type: "history", Timestamp: time.Now(), Messages: messages})); err != nil {
			h.Bus.Unsubscribe(userID, eventbus.TopicChat, subscriberID)
			return
		}
	}

	active := ok && user.HasSession()
	if err := writer.Write(mustJSON(heartbeatEvent{Type: "session_heartbeat", Timestamp: time.Now(), Active: active})); err != nil {
		h.Bus.Unsubscribe(userID, eventbus.TopicChat, subscriberID)
		return
	}

	runHeartbeatLoop(r, h.Bus, h.Registry, userID, eventbus.TopicChat, subscriberID, writer, h.HeartbeatInterval, h.Logger)
}

func expandHistory(user *session.User, ok bool) []historyMessage {
	if !ok {
		return nil
	}
	turns := user.History().RecentTurns(0, 0)
	out := make([]historyMessage, 0, len(turns)*2)
	for i, t := range turns {
		out = append(out, historyMessage{
			ID:        fmt.Sprintf("%s-%d-u", user.UserID(), i),
			SenderID:  user.UserID(),
			Content:   t.Query,
			Timestamp: t.Timestamp,
			Image:     turnImage(t),
		})
		out = append(out, historyMessage{
			ID:        fmt.Sprintf("%s-%d-a", user.UserID(), i),
			SenderID:  AgentSenderID,
			Content:   t.Response,
			Timestamp: t.Timestamp,
		})
	}
	return out
}

func turnImage(t chat.Turn) string {
	if !t.HadPhoto {
		return ""
	}
	return t.PhotoRef
}

// TranscriptionStreamHandler serves GET /api/transcription-stream?userId=...
type TranscriptionStreamHandler struct{ StreamDeps }

func (h TranscriptionStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	serveLivenessOnlyStream(w, r, h.StreamDeps, eventbus.TopicTranscription)
}

// PhotoStreamHandler serves GET /api/photo-stream?userId=...
type PhotoStreamHandler struct{ StreamDeps }

func (h PhotoStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	serveLivenessOnlyStream(w, r, h.StreamDeps, eventbus.TopicPhoto)
}

// serveLivenessOnlyStream implements the shared open-time protocol for
// topic-transcription and topic-photo: connected, pending drain, immediate
// heartbeat, periodic heartbeat — no history replay.
func serveLivenessOnlyStream(w http.ResponseWriter, r *http.Request, deps StreamDeps, topic eventbus.Topic) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	sse.SetHeaders(w)
	w.WriteHeader(http.StatusOK)
	writer, err := sse.New(w)
	if err != nil {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	if err := writer.Write(mustJSON(connectedEvent{Type: "connected", Timestamp: time.Now()})); err != nil {
		return
	}

	subscriberID := idgen.NewPrefixed("sub_")
	deps.Bus.Subscribe(userID, topic, subscriberID, writer)

	user, ok := deps.Registry.Get(userID)
	active := ok && user.HasSession()
	if err := writer.Write(mustJSON(heartbeatEvent{Type: "heartbeat", Timestamp: time.Now(), Active: active})); err != nil {
		deps.Bus.Unsubscribe(userID, topic, subscriberID)
		return
	}

	runHeartbeatLoop(r, deps.Bus, deps.Registry, userID, topic, subscriberID, writer, deps.HeartbeatInterval, deps.Logger)
}

func runHeartbeatLoop(r *http.Request, bus *eventbus.Bus, registry *session.Registry, userID string, topic eventbus.Topic, subscriberID string, writer *sse.Writer, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer bus.Unsubscribe(userID, topic, subscriberID)

	eventName := "session_heartbeat"
	if topic != eventbus.TopicChat {
		eventName = "heartbeat"
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			user, ok := registry.Get(userID)
			active := ok && user.HasSession()
			if err := writer.Write(mustJSON(heartbeatEvent{Type: eventName, Timestamp: time.Now(), Active: active})); err != nil {
				if logger != nil {
					logger.Debug("sse heartbeat write failed, disconnecting", "user_id", userID, "error", err)
				}
				return
			}
		}
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"type":"error"}`
	}
	return string(b)
}
