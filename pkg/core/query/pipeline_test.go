package query

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/glasscore/glasscore/pkg/core/agent"
	"github.com/glasscore/glasscore/pkg/core/chat"
	"github.com/glasscore/glasscore/pkg/core/eventbus"
	"github.com/glasscore/glasscore/pkg/core/hardware"
	"github.com/glasscore/glasscore/pkg/core/location"
	"github.com/glasscore/glasscore/pkg/core/notification"
	"github.com/glasscore/glasscore/pkg/core/photo"
)

type fakeSession struct {
	hardware.Session
	caps        hardware.Capabilities
	spoke       []string
	displayed   []string
	photoBytes  []byte
	photoErr    error
	speakErr    error
	capturedCtx bool
}

func (f *fakeSession) Capabilities() hardware.Capabilities { return f.caps }

func (f *fakeSession) CapturePhoto(ctx context.Context) (hardware.PhotoCapture, error) {
	if f.photoErr != nil {
		return hardware.PhotoCapture{}, f.photoErr
	}
	return hardware.PhotoCapture{Bytes: f.photoBytes, MimeType: "image/jpeg"}, nil
}

func (f *fakeSession) Speak(ctx context.Context, text string) error {
	f.spoke = append(f.spoke, text)
	return f.speakErr
}

func (f *fakeSession) ShowTextWall(ctx context.Context, text string, d time.Duration) error {
	f.displayed = append(f.displayed, text)
	return nil
}

func (f *fakeSession) PlayProcessingSound(ctx context.Context) error { return nil }

func (f *fakeSession) GetLatestLocation(ctx context.Context) (hardware.Coordinate, error) {
	return hardware.Coordinate{}, nil
}

type fakeGenerator struct {
	response string
}

func (g *fakeGenerator) Generate(ctx context.Context, query string, photos [][]byte, mimeType string, c agent.Context) string {
	return g.response
}

type recordingWriter struct {
	mu    sync.Mutex
	lines []string
}

func (w *recordingWriter) Write(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, line)
	return nil
}

func (w *recordingWriter) snapshot() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.lines))
	copy(out, w.lines)
	return out
}

func newTestPipeline(t *testing.T, sess *fakeSession, gen *fakeGenerator) (*Pipeline, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New()
	accessor := func() hardware.Session {
		if sess == nil {
			return nil
		}
		return sess
	}
	deps := Dependencies{
		UserID:   "u1",
		Session:  accessor,
		Bus:      bus,
		Agent:    gen,
		Location: location.New(accessor, nil),
		Photos:   photo.New("u1", accessor, nil),
		Notifs:   notification.New(),
		History:  chat.New("u1", nil, nil, nil),
	}
	return New(deps), bus
}

func eventTypes(lines []string) []string {
	var types []string
	for _, l := range lines {
		var e struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(l), &e); err == nil {
			types = append(types, e.Type)
		}
	}
	return types
}

func TestPipeline_NoSessionReturnsApologyWithNoEvents(t *testing.T) {
	p, bus := newTestPipeline(t, nil, &fakeGenerator{response: "hi"})
	w := &recordingWriter{}
	bus.Subscribe("u1", eventbus.TopicChat, "s", w)

	got := p.Run(context.Background(), "what time is it", "")
	if got != NoSessionApology {
		t.Fatalf("got %q", got)
	}
	if len(w.snapshot()) != 0 {
		t.Fatal("expected no events when there is no session")
	}
}

func TestPipeline_EmitsEventsInOrder(t *testing.T) {
	sess := &fakeSession{caps: hardware.Capabilities{HasSpeaker: true}}
	p, bus := newTestPipeline(t, sess, &fakeGenerator{response: "it's three"})
	w := &recordingWriter{}
	bus.Subscribe("u1", eventbus.TopicChat, "s", w)

	got := p.Run(context.Background(), "what time is it", "")
	if got != "it's three" {
		t.Fatalf("got %q", got)
	}

	types := eventTypes(w.snapshot())
	want := []string{"processing", "message", "message", "idle"}
	if len(types) != len(want) {
		t.Fatalf("types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("types = %v, want %v", types, want)
		}
	}

	if len(sess.spoke) != 1 || sess.spoke[0] == "" {
		t.Fatalf("expected one spoken response, got %v", sess.spoke)
	}
}

func TestPipeline_CapturesPhotoWhenHasCamera(t *testing.T) {
	sess := &fakeSession{caps: hardware.Capabilities{HasCamera: true, HasSpeaker: true}, photoBytes: []byte("jpeg-bytes")}
	var seenPhotos [][]byte
	gen := &fakeGenerator{response: "a cat"}
	p, _ := newTestPipeline(t, sess, gen)

	deps := p.deps
	deps.Agent = generatorFunc(func(ctx context.Context, query string, photos [][]byte, mimeType string, c agent.Context) string {
		seenPhotos = photos
		return gen.response
	})
	p2 := New(deps)

	p2.Run(context.Background(), "what do you see", "")
	if len(seenPhotos) != 1 || string(seenPhotos[0]) != "jpeg-bytes" {
		t.Fatalf("expected photo bytes to reach the agent, got %q", seenPhotos)
	}
}

func TestPipeline_IncludesPreviousPhotoContext(t *testing.T) {
	sess := &fakeSession{caps: hardware.Capabilities{HasCamera: true, HasSpeaker: true}, photoBytes: []byte("second-capture")}
	var seenPhotos [][]byte
	gen := &fakeGenerator{response: "two cats"}
	p, _ := newTestPipeline(t, sess, gen)

	deps := p.deps
	deps.Agent = generatorFunc(func(ctx context.Context, query string, photos [][]byte, mimeType string, c agent.Context) string {
		seenPhotos = photos
		return gen.response
	})
	p2 := New(deps)

	// First turn captures one photo; the second turn's context should carry
	// both the new capture and the one from the first turn.
	p2.Run(context.Background(), "what do you see", "")
	sess.photoBytes = []byte("third-capture")
	p2.Run(context.Background(), "what do you see now", "")

	if len(seenPhotos) != 2 || string(seenPhotos[0]) != "third-capture" || string(seenPhotos[1]) != "second-capture" {
		t.Fatalf("expected newest-first photo context, got %q", seenPhotos)
	}
}

type generatorFunc func(ctx context.Context, query string, photos [][]byte, mimeType string, c agent.Context) string

func (f generatorFunc) Generate(ctx context.Context, query string, photos [][]byte, mimeType string, c agent.Context) string {
	return f(ctx, query, photos, mimeType, c)
}

func TestPipeline_PhotoFailureProceedsWithoutPhoto(t *testing.T) {
	sess := &fakeSession{caps: hardware.Capabilities{HasCamera: true, HasSpeaker: true}, photoErr: context.DeadlineExceeded}
	p, _ := newTestPipeline(t, sess, &fakeGenerator{response: "sure"})

	got := p.Run(context.Background(), "what do you see", "")
	if got != "sure" {
		t.Fatalf("got %q, expected pipeline to proceed despite photo failure", got)
	}
}

func TestPipeline_AddsTurnToHistory(t *testing.T) {
	sess := &fakeSession{caps: hardware.Capabilities{HasSpeaker: true}}
	p, _ := newTestPipeline(t, sess, &fakeGenerator{response: "the answer"})

	p.Run(context.Background(), "what is it", "")

	turns := p.deps.History.RecentTurns(0, 0)
	if len(turns) != 1 || turns[0].Response != "the answer" {
		t.Fatalf("turns = %+v", turns)
	}
}

func TestPipeline_DisplayOnlyDeviceSkipsSpeak(t *testing.T) {
	sess := &fakeSession{caps: hardware.Capabilities{HasDisplay: true}}
	p, _ := newTestPipeline(t, sess, &fakeGenerator{response: "**bold** text"})

	p.Run(context.Background(), "show me", "")

	if len(sess.spoke) != 0 {
		t.Fatal("display-only device should not receive a spoken response")
	}
	if len(sess.displayed) != 1 || sess.displayed[0] != "**bold** text" {
		t.Fatalf("display-only device should receive the raw response, got %v", sess.displayed)
	}
}

func TestPipeline_SpeakerOnlyDeviceAppliesTTSFormatting(t *testing.T) {
	sess := &fakeSession{caps: hardware.Capabilities{HasSpeaker: true}}
	p, _ := newTestPipeline(t, sess, &fakeGenerator{response: "**bold** text"})

	p.Run(context.Background(), "say it", "")

	if len(sess.spoke) != 1 || sess.spoke[0] != "bold text" {
		t.Fatalf("expected markdown stripped before speaking, got %v", sess.spoke)
	}
}
