// Package lifecycle reacts to hardware connect/disconnect notifications
// from the wearable host, translating them into registry and event-bus
// operations while correctly distinguishing a first connect from a
// reconnect inside the grace period.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/glasscore/glasscore/pkg/core/eventbus"
	"github.com/glasscore/glasscore/pkg/core/hardware"
	"github.com/glasscore/glasscore/pkg/core/session"
)

// Controller reacts to hardware connect/disconnect. welcomeSoundURL, when
// set, is played once on a genuinely new (non-reconnect) session.
type Controller struct {
	registry        *session.Registry
	bus             *eventbus.Bus
	logger          *slog.Logger
	welcomeSoundURL string
}

// New builds a Controller around registry and bus. welcomeSoundURL may be
// empty, in which case onSession never attempts playback.
func New(registry *session.Registry, bus *eventbus.Bus, welcomeSoundURL string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{registry: registry, bus: bus, welcomeSoundURL: welcomeSoundURL, logger: logger}
}

type sessionStartedEvent struct {
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	GlassesType string    `json:"glassesType"`
}

type sessionReconnectedEvent struct {
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	GlassesType string    `json:"glassesType"`
}

type sessionReconnectingEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}

func glassesType(caps hardware.Capabilities) string {
	if caps.HasCamera {
		return "camera"
	}
	return "display"
}

// OnSession handles a hardware connect for userID. It must check for a
// pending removal before creating or looking up the User — only that
// ordering makes a reconnect within the grace period observable.
func (c *Controller) OnSession(hw hardware.Session, userID string) {
	wasReconnect := c.registry.CancelRemoval(userID)
	u := c.registry.GetOrCreate(userID)

	u.SetAppSession(hw)
	caps := hw.Capabilities()

	if wasReconnect {
		_ = c.bus.Broadcast(userID, eventbus.TopicChat, sessionReconnectedEvent{
			Type:        "session_reconnected",
			Timestamp:   time.Now(),
			GlassesType: glassesType(caps),
		})
		return
	}

	_ = c.bus.Broadcast(userID, eventbus.TopicChat, sessionStartedEvent{
		Type:        "session_started",
		Timestamp:   time.Now(),
		GlassesType: glassesType(caps),
	})

	if c.welcomeSoundURL != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := hw.PlayAudio(ctx, c.welcomeSoundURL); err != nil {
				c.logger.Debug("welcome sound playback failed", "user_id", userID, "error", err)
			}
		}()
	}
}

// OnStop handles a hardware disconnect for userID. It announces
// session_reconnecting (never session_ended — that is the registry's own
// grace-expiry event) and starts the grace-period timer without clearing
// any pending events, so a reconnecting subscriber still sees them.
func (c *Controller) OnStop(userID, reason string) {
	_ = c.bus.Broadcast(userID, eventbus.TopicChat, sessionReconnectingEvent{
		Type:      "session_reconnecting",
		Timestamp: time.Now(),
		Reason:    reason,
	})
	c.registry.SoftRemove(userID)
}
