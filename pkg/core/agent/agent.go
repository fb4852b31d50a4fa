// Package agent wraps the generative model call that turns an accumulated
// user query plus hardware/session context into a spoken response.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultDeadline bounds how long a single Generate call may run. A
// response that has not returned by then is abandoned in favor of
// ApologyResponse.
const DefaultDeadline = 30 * time.Second

// ApologyResponse is spoken back whenever the model call fails or times
// out, so the pipeline always has something to say.
const ApologyResponse = "Sorry, I'm having trouble answering that right now."

const defaultModel = "gemini-2.0-flash"

// Turn is one prior exchange, used to seed conversational context.
type Turn struct {
	Query    string
	Response string
}

// Context carries everything about the user's hardware and situation that
// the model needs besides the query text itself.
type Context struct {
	HasDisplay          bool
	HasSpeakers         bool
	HasCamera           bool
	Location            string // human-readable place, empty if unknown
	LocalTime           string
	Timezone            string
	Notifications       string // pre-formatted bullet list, empty if none
	ConversationHistory []Turn
}

// modelClient is the slice of *genai.Client's Models service this package
// exercises. Narrowing to an interface lets tests substitute a fake
// without a live API key.
type modelClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Adapter calls a generative model to answer one query.
type Adapter struct {
	client   modelClient
	model    string
	deadline time.Duration
	logger   *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithModel overrides the default model name.
func WithModel(model string) Option {
	return func(a *Adapter) { a.model = model }
}

// WithDeadline overrides DefaultDeadline.
func WithDeadline(d time.Duration) Option {
	return func(a *Adapter) { a.deadline = d }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// New builds an Adapter around an already-constructed genai client. The
// caller owns the client's lifetime (API key, project, and location are
// resolved by genai.NewClient's own config/environment lookup).
func New(client *genai.Client, opts ...Option) *Adapter {
	return newWithModelClient(client.Models, opts...)
}

func newWithModelClient(client modelClient, opts ...Option) *Adapter {
	a := &Adapter{
		client:   client,
		model:    defaultModel,
		deadline: DefaultDeadline,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generate answers query given zero or more photos (the newest capture
// first, followed by recent-photo context, nil/empty when no camera
// capture accompanies this turn) and the caller's Context. It never
// returns an error to the pipeline: any failure or deadline overrun is
// substituted with ApologyResponse so a spoken reply is always produced.
func (a *Adapter) Generate(ctx context.Context, query string, photos [][]byte, mimeType string, c Context) string {
	ctx, cancel := context.WithTimeout(ctx, a.deadline)
	defer cancel()

	parts := []*genai.Part{genai.NewPartFromText(buildPrompt(query, c))}
	for _, photo := range photos {
		if len(photo) > 0 {
			parts = append(parts, genai.NewPartFromBytes(photo, mimeType))
		}
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := a.client.GenerateContent(ctx, a.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction(c), genai.RoleUser),
	})
	if err != nil {
		a.logger.Warn("agent generate failed", "error", err, "model", a.model)
		return ApologyResponse
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		a.logger.Warn("agent generate returned empty text", "model", a.model)
		return ApologyResponse
	}
	return text
}

func systemInstruction(c Context) string {
	var b strings.Builder
	b.WriteString("You are a helpful voice assistant running on smart glasses. ")
	b.WriteString("Keep replies short and speakable; the user is hearing them, not reading them.\n")

	if c.HasDisplay {
		b.WriteString("A small heads-up display is available for brief text.\n")
	}
	if !c.HasSpeakers {
		b.WriteString("Audio output is unavailable; replies will be shown as text only.\n")
	}
	if c.HasCamera {
		b.WriteString("A photo from the user's camera may be attached to this turn.\n")
	}
	if c.Location != "" {
		fmt.Fprintf(&b, "Current location: %s.\n", c.Location)
	}
	if c.LocalTime != "" {
		fmt.Fprintf(&b, "Current local time: %s (%s).\n", c.LocalTime, c.Timezone)
	}
	if c.Notifications != "" {
		fmt.Fprintf(&b, "Recent notifications:\n%s\n", c.Notifications)
	}
	return b.String()
}

func buildPrompt(query string, c Context) string {
	var b strings.Builder
	for _, t := range c.ConversationHistory {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", t.Query, t.Response)
	}
	b.WriteString("User: ")
	b.WriteString(query)
	return b.String()
}
