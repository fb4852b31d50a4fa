// Package query orchestrates one end-to-end voice query: it runs the
// ordered side effects (processing sound, photo capture, location refresh,
// agent call, spoken/displayed output, chat-history write, event-bus
// broadcasts) that turn an accumulated transcript into a response.
package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/glasscore/glasscore/pkg/core/agent"
	"github.com/glasscore/glasscore/pkg/core/chat"
	"github.com/glasscore/glasscore/pkg/core/eventbus"
	"github.com/glasscore/glasscore/pkg/core/hardware"
	"github.com/glasscore/glasscore/pkg/core/location"
	"github.com/glasscore/glasscore/pkg/core/notification"
	"github.com/glasscore/glasscore/pkg/core/photo"
	"github.com/glasscore/glasscore/pkg/core/tts"
)

// DefaultDisplayDuration is how long a text-wall stays up on devices with a
// display, when rendering a response.
const DefaultDisplayDuration = 10 * time.Second

// AgentID is the synthetic sender id used on message events the agent
// (rather than the user) authored.
const AgentID = "agent"

// NoSessionApology is returned, with no side effects, when the pipeline is
// invoked for a user with no live hardware session.
const NoSessionApology = "I can't hear you right now — the glasses aren't connected."

// SessionAccessor returns the current hardware session, or nil. Mirrors the
// cyclic-ownership accessor pattern used by the other per-user managers.
type SessionAccessor func() hardware.Session

// Generator is the slice of agent.Adapter the pipeline depends on, narrowed
// to an interface so tests can substitute a fake without a model client.
type Generator interface {
	Generate(ctx context.Context, query string, photos [][]byte, mimeType string, c agent.Context) string
}

// Dependencies bundles every per-user collaborator the pipeline drives. All
// fields are required except Logger, which New replaces with the default
// logger when nil.
type Dependencies struct {
	UserID   string
	Session  SessionAccessor
	Bus      *eventbus.Bus
	Agent    Generator
	Location *location.Manager
	Photos   *photo.Store
	Notifs   *notification.Store
	History  *chat.History
	Logger   *slog.Logger
}

// Pipeline runs one query to completion for one user. A Pipeline is stateless
// across calls other than through its Dependencies; concurrent calls for the
// same user must be serialised by the caller (the owning User aggregate).
type Pipeline struct {
	deps Dependencies
}

// New builds a Pipeline from deps. A nil Logger is replaced with the
// default logger.
func New(deps Dependencies) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{deps: deps}
}

type chatEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type messageEvent struct {
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId,omitempty"`
	Content     string    `json:"content"`
	Image       string    `json:"image,omitempty"`
}

// Run executes the twelve-step pipeline for query, spoken by speakerID (may
// be empty). It never returns an error: every failure is absorbed and
// reflected either in a logged warning or in the apology response.
func (p *Pipeline) Run(ctx context.Context, query, speakerID string) string {
	sess := p.deps.Session()
	if sess == nil {
		return NoSessionApology
	}
	caps := sess.Capabilities()

	p.emit(chatEvent{Type: "processing", Timestamp: time.Now()})

	go func() {
		actx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sess.PlayProcessingSound(actx); err != nil {
			p.deps.Logger.Debug("play processing sound failed", "user_id", p.deps.UserID, "error", err)
		}
	}()

	var photoBytes [][]byte
	var mimeType string
	var photoRef string
	hadPhoto := false
	if caps.HasCamera {
		if stored, err := p.deps.Photos.Capture(ctx); err != nil {
			p.deps.Logger.Debug("photo capture failed", "user_id", p.deps.UserID, "error", err)
		} else {
			photoBytes = p.deps.Photos.ContextBytes()
			mimeType = stored.MimeType
			photoRef = stored.RequestID
			hadPhoto = true
		}
	}

	loc := p.deps.Location.Refresh(ctx, query)

	localTime := time.Now().In(mustLoadLocation(p.deps.Location.Timezone())).Format("3:04 PM")

	history := p.deps.History.RecentTurns(0, 0)
	agentHistory := make([]agent.Turn, 0, len(history))
	for _, t := range history {
		agentHistory = append(agentHistory, agent.Turn{Query: t.Query, Response: t.Response})
	}

	agentCtx := agent.Context{
		HasDisplay:          caps.HasDisplay,
		HasSpeakers:         caps.HasSpeaker,
		HasCamera:           caps.HasCamera,
		Location:            loc.Place,
		LocalTime:           localTime,
		Timezone:            p.deps.Location.Timezone(),
		Notifications:       notification.FormatForPrompt(p.deps.Notifs.Recent(0)),
		ConversationHistory: agentHistory,
	}

	p.emit(messageEvent{
		Type:      "message",
		Timestamp: time.Now(),
		SenderID:  p.deps.UserID,
		Content:   query,
		Image:     photoRef,
	})

	response := p.deps.Agent.Generate(ctx, query, photoBytes, mimeType, agentCtx)

	output := response
	if caps.HasSpeaker && !caps.HasDisplay {
		output = tts.Format(response)
	}

	if caps.HasDisplay {
		if err := sess.ShowTextWall(ctx, output, DefaultDisplayDuration); err != nil {
			p.deps.Logger.Debug("show text wall failed", "user_id", p.deps.UserID, "error", err)
		}
	}
	if caps.HasSpeaker {
		if err := sess.Speak(ctx, output); err != nil {
			p.deps.Logger.Debug("speak failed", "user_id", p.deps.UserID, "error", err)
		}
	}

	p.emit(messageEvent{
		Type:      "message",
		Timestamp: time.Now(),
		SenderID:  AgentID,
		Content:   response,
	})

	p.deps.History.AddTurn(query, response, hadPhoto, photoRef)

	p.emit(chatEvent{Type: "idle", Timestamp: time.Now()})

	return response
}

func (p *Pipeline) emit(event any) {
	if err := p.deps.Bus.Broadcast(p.deps.UserID, eventbus.TopicChat, event); err != nil {
		p.deps.Logger.Warn("chat event broadcast failed", "user_id", p.deps.UserID, "error", err)
	}
}

// mustLoadLocation resolves an IANA timezone name, falling back to UTC for
// an empty or unrecognised name rather than failing the pipeline.
func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
