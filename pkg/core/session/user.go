// Package session owns the per-user aggregate that wires every other core
// component to one wearable's hardware session, plus the process-wide
// registry that creates, reattaches, and tears down those aggregates on a
// grace period.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/glasscore/glasscore/pkg/core/agent"
	"github.com/glasscore/glasscore/pkg/core/chat"
	"github.com/glasscore/glasscore/pkg/core/eventbus"
	"github.com/glasscore/glasscore/pkg/core/hardware"
	"github.com/glasscore/glasscore/pkg/core/location"
	"github.com/glasscore/glasscore/pkg/core/notification"
	"github.com/glasscore/glasscore/pkg/core/photo"
	"github.com/glasscore/glasscore/pkg/core/query"
	"github.com/glasscore/glasscore/pkg/core/settings"
	"github.com/glasscore/glasscore/pkg/core/transcript"
	"github.com/glasscore/glasscore/pkg/core/wakeword"
	"github.com/glasscore/glasscore/pkg/store"
)

// busPublisher adapts eventbus.Bus to photo.Publisher for one (userID,
// topic) pair without photo needing to import eventbus.
type busPublisher struct {
	bus    *eventbus.Bus
	userID string
}

func (p busPublisher) Publish(meta photo.Meta) {
	_ = p.bus.Broadcast(p.userID, eventbus.TopicPhoto, meta)
}

// User is one connected wearable's worth of state: the accumulator,
// location/photo/notification managers, chat history, and the query
// pipeline that ties them together. All mutation of a User's hardware
// session handle must be serialised by the caller (the Registry never calls
// concurrently into the same User, and the lifecycle controller is the only
// caller of SetAppSession/ClearAppSession).
type User struct {
	userID string
	bus    *eventbus.Bus
	agent  *agent.Adapter
	logger *slog.Logger

	matcher     *wakeword.Matcher
	accumulator *transcript.Accumulator
	location    *location.Manager
	photos      *photo.Store
	notifs      *notification.Store
	history     *chat.History
	pipeline    *query.Pipeline
	settings    *settings.Store

	mu      sync.Mutex
	session hardware.Session // nil when no hardware is attached
}

// Deps bundles the process-wide collaborators a User needs at construction.
// Durable may be nil (no database configured).
type Deps struct {
	Bus           *eventbus.Bus
	Agent         *agent.Adapter
	Geocoder      hardware.Geocoder
	Durable       store.Store
	Settings      *settings.Store
	SilenceWindow time.Duration
	Logger        *slog.Logger
}

// New builds a User for userID. The user has no hardware session attached
// until SetAppSession is called.
func New(userID string, deps Deps) *User {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	u := &User{
		userID:   userID,
		bus:      deps.Bus,
		agent:    deps.Agent,
		logger:   logger,
		matcher:  wakeword.New(),
		settings: deps.Settings,
	}

	accessor := u.sessionAccessor
	u.location = location.New(accessor, deps.Geocoder)
	u.photos = photo.New(userID, accessor, busPublisher{bus: deps.Bus, userID: userID})
	u.notifs = notification.New()

	var durableChat store.ChatHistoryStore
	if deps.Durable != nil {
		durableChat = deps.Durable
	}
	enabled := func() bool { return true }
	if deps.Settings != nil {
		enabled = deps.Settings.ChatHistoryEnabledFunc(userID)
	}
	u.history = chat.New(userID, durableChat, enabled, logger)

	u.accumulator = transcript.New(u.matcher, deps.SilenceWindow, u.onQueryReady)

	u.pipeline = query.New(query.Dependencies{
		UserID:   userID,
		Session:  accessor,
		Bus:      deps.Bus,
		Agent:    deps.Agent,
		Location: u.location,
		Photos:   u.photos,
		Notifs:   u.notifs,
		History:  u.history,
		Logger:   logger,
	})

	return u
}

// UserID returns the owning user's id.
func (u *User) UserID() string { return u.userID }

func (u *User) sessionAccessor() hardware.Session {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.session
}

// HasSession reports whether a hardware session is currently attached.
func (u *User) HasSession() bool {
	return u.sessionAccessor() != nil
}

// Session returns the currently attached hardware session, or nil if none
// is attached. Exposed for HTTP handlers that pass imperative calls
// (speak, stop-audio) straight through to the glasses.
func (u *User) Session() hardware.Session {
	return u.sessionAccessor()
}

// onQueryReady is the accumulator's ReadyFunc: it runs the query pipeline
// for the completed utterance. Runs on the accumulator's own goroutine, not
// serialised against a concurrent SetAppSession/ClearAppSession — callers
// that need strict per-user serialisation across pipeline runs and
// attach/detach should confine User to one owning worker (see the
// concurrency model).
func (u *User) onQueryReady(q, speakerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	u.pipeline.Run(ctx, q, speakerID)
}

// SetAppSession attaches a new hardware session, first tearing down any
// previously attached one to avoid duplicate listeners on an ungraceful
// reconnect, then resets the accumulator's destroyed flag and registers
// every callback.
func (u *User) SetAppSession(s hardware.Session) {
	u.mu.Lock()
	previous := u.session
	u.mu.Unlock()

	if previous != nil {
		u.ClearAppSession()
	}

	u.mu.Lock()
	u.session = s
	u.mu.Unlock()

	u.accumulator.Reattach()

	s.OnTranscription(func(ev hardware.TranscriptionEvent) {
		u.broadcastTranscription(ev)
		u.accumulator.Feed(ev)
	})
	s.OnLocation(u.location.OnLocation)
	s.OnNotification(u.notifs.OnNotification)
	s.OnSettingsChange(func(c hardware.SettingsChange) { u.location.SetTimezone(c.Timezone) })
}

type transcriptionEvent struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

// broadcastTranscription forwards a raw transcription event, unchanged,
// onto topic-transcription, independent of whatever the accumulator does
// with it.
func (u *User) broadcastTranscription(ev hardware.TranscriptionEvent) {
	if err := u.bus.Broadcast(u.userID, eventbus.TopicTranscription, transcriptionEvent{
		Type:    "transcription",
		Text:    ev.Text,
		IsFinal: ev.IsFinal,
	}); err != nil {
		u.logger.Warn("transcription broadcast failed", "user_id", u.userID, "error", err)
	}
}

// ClearAppSession detaches the current hardware session, if any: it stops
// the accumulator's silence timer, marks it destroyed so late callbacks
// from the outgoing session are ignored, drops the session handle, and
// closes the session's own callback registrations.
func (u *User) ClearAppSession() {
	u.mu.Lock()
	s := u.session
	u.session = nil
	u.mu.Unlock()

	if s == nil {
		return
	}
	u.accumulator.Destroy()
	if err := s.Close(); err != nil {
		u.logger.Debug("hardware session close failed", "user_id", u.userID, "error", err)
	}
}

// Teardown releases every resource owned by the User. Called exactly once,
// by the registry, on hard removal.
func (u *User) Teardown() {
	u.ClearAppSession()
}

// Accessors for the server-push transport and HTTP handlers.

func (u *User) Accumulator() *transcript.Accumulator { return u.accumulator }
func (u *User) Location() *location.Manager          { return u.location }
func (u *User) Photos() *photo.Store                 { return u.photos }
func (u *User) Notifications() *notification.Store   { return u.notifs }
func (u *User) History() *chat.History               { return u.history }
func (u *User) Pipeline() *query.Pipeline            { return u.pipeline }
