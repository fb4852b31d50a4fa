package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/glasscore/glasscore/pkg/core/eventbus"
)

// DefaultGracePeriod is how long a soft-removed user's state is kept in
// memory pending reconnect before it is torn down for good.
const DefaultGracePeriod = 60 * time.Second

// Factory builds a new User for userID. Supplied by the caller (the
// lifecycle controller's wiring code) so the registry does not need to know
// about agent/geocoder/durable-store construction.
type Factory func(userID string) *User

// Registry is the process-wide userId -> User map, plus the pending
// soft-removal timers that implement the grace period.
type Registry struct {
	factory Factory
	bus     *eventbus.Bus
	grace   time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	users   map[string]*User
	pending map[string]*time.Timer
}

// NewRegistry builds an empty Registry. factory is called at most once per
// userId between a GetOrCreate and the matching Remove.
func NewRegistry(factory Factory, bus *eventbus.Bus, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factory: factory,
		bus:     bus,
		grace:   DefaultGracePeriod,
		logger:  logger,
		users:   make(map[string]*User),
		pending: make(map[string]*time.Timer),
	}
}

// SetGracePeriod overrides the default grace period. Must be called before
// any SoftRemove to take effect consistently.
func (r *Registry) SetGracePeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grace = d
}

// GetOrCreate returns the existing User for userID, or builds and stores a
// new one.
func (r *Registry) GetOrCreate(userID string) *User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		return u
	}
	u := r.factory(userID)
	r.users[userID] = u
	return u
}

// Get returns the User for userID, if any.
func (r *Registry) Get(userID string) (*User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	return u, ok
}

// Remove cancels any pending removal timer, tears the User down, and
// deletes it from the registry. A no-op for an unknown userID.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	if t, ok := r.pending[userID]; ok {
		t.Stop()
		delete(r.pending, userID)
	}
	u, ok := r.users[userID]
	delete(r.users, userID)
	r.mu.Unlock()

	if ok {
		u.Teardown()
	}
}

// SoftRemove detaches the hardware session and schedules hard removal after
// the grace period. Any previously scheduled timer for userID is cancelled
// first, so repeated SoftRemove calls coalesce onto the latest one. A no-op
// for an unknown userID.
func (r *Registry) SoftRemove(userID string) {
	r.mu.Lock()
	u, ok := r.users[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if t, exists := r.pending[userID]; exists {
		t.Stop()
	}
	r.mu.Unlock()

	u.ClearAppSession()

	timer := time.AfterFunc(r.grace, func() { r.fireGraceExpiry(userID) })
	r.mu.Lock()
	r.pending[userID] = timer
	r.mu.Unlock()
}

func (r *Registry) fireGraceExpiry(userID string) {
	r.mu.Lock()
	delete(r.pending, userID)
	r.mu.Unlock()

	if err := r.bus.Broadcast(userID, eventbus.TopicChat, sessionEndedEvent()); err != nil {
		r.logger.Warn("session_ended broadcast failed", "user_id", userID, "error", err)
	}
	r.bus.ClearPending(userID, "")
	r.Remove(userID)
}

// CancelRemoval clears any pending removal timer for userID and reports
// whether one was pending — the lifecycle controller uses this to detect a
// reconnect within the grace period.
func (r *Registry) CancelRemoval(userID string) (wasPending bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.pending[userID]
	if !ok {
		return false
	}
	t.Stop()
	delete(r.pending, userID)
	return true
}

type sessionEndedPayload struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}

func sessionEndedEvent() sessionEndedPayload {
	return sessionEndedPayload{Type: "session_ended", Timestamp: time.Now(), Reason: "grace_period_expired"}
}
