// Package wearable adapts one gorilla/websocket connection from a connected
// wearable device into a hardware.Session, so the gateway's websocket
// handler is the only place in this module that knows the wire shape of
// glasses-to-backend traffic.
package wearable

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/glasscore/glasscore/pkg/core/hardware"
	"github.com/glasscore/glasscore/pkg/core/idgen"
)

// DefaultCallTimeout bounds how long an imperative call waits for the
// device to reply before the caller gets a timeout error instead of
// blocking forever on a frame that never arrives.
const DefaultCallTimeout = 8 * time.Second

// frame is the single wire shape used in both directions. Only the fields
// relevant to a given Type are populated; the rest round-trip as zero
// values and are dropped by omitempty.
type frame struct {
	Type        string  `json:"type"`
	RequestID   string  `json:"requestId,omitempty"`
	UserID      string  `json:"userId,omitempty"`
	Text        string  `json:"text,omitempty"`
	URL         string  `json:"url,omitempty"`
	DurationMs  int64   `json:"durationMs,omitempty"`
	MimeType    string  `json:"mimeType,omitempty"`
	Filename    string  `json:"filename,omitempty"`
	Data        string  `json:"data,omitempty"`
	Lat         float64 `json:"lat,omitempty"`
	Lng         float64 `json:"lng,omitempty"`
	Accuracy    float64 `json:"accuracy,omitempty"`
	IsFinal     bool    `json:"isFinal,omitempty"`
	UtteranceID string  `json:"utteranceId,omitempty"`
	SpeakerID   string  `json:"speakerId,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
	Payload     any     `json:"payload,omitempty"`
	Error       string  `json:"error,omitempty"`

	Capabilities *capabilitiesFrame `json:"capabilities,omitempty"`
}

type capabilitiesFrame struct {
	HasCamera  bool   `json:"hasCamera"`
	HasDisplay bool   `json:"hasDisplay"`
	HasSpeaker bool   `json:"hasSpeaker"`
	ModelName  string `json:"modelName"`
}

// Hello is the decoded handshake frame a device must send as its first
// message, before anything else is read from the connection.
type Hello struct {
	UserID       string
	Capabilities hardware.Capabilities
}

// ReadHello reads and validates the handshake frame. The caller is
// responsible for bounding this read with a deadline on ws.
func ReadHello(ws *websocket.Conn) (Hello, error) {
	messageType, payload, err := ws.ReadMessage()
	if err != nil {
		return Hello{}, fmt.Errorf("read hello: %w", err)
	}
	if messageType != websocket.TextMessage {
		return Hello{}, errors.New("first frame must be a text hello")
	}
	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return Hello{}, fmt.Errorf("decode hello: %w", err)
	}
	if f.Type != "hello" {
		return Hello{}, errors.New("first frame must be type hello")
	}
	if f.UserID == "" {
		return Hello{}, errors.New("hello missing userId")
	}
	caps := hardware.Capabilities{}
	if f.Capabilities != nil {
		caps = hardware.Capabilities{
			HasCamera:  f.Capabilities.HasCamera,
			HasDisplay: f.Capabilities.HasDisplay,
			HasSpeaker: f.Capabilities.HasSpeaker,
			ModelName:  f.Capabilities.ModelName,
		}
	}
	return Hello{UserID: f.UserID, Capabilities: caps}, nil
}

// Conn is a hardware.Session backed by a websocket connection to one
// device. It owns write serialisation (gorilla/websocket forbids
// concurrent writers on one connection) and the pending-reply bookkeeping
// that CapturePhoto and GetLatestLocation need to turn an async frame
// exchange into a synchronous call.
type Conn struct {
	ws          *websocket.Conn
	caps        hardware.Capabilities
	callTimeout time.Duration

	writeMu sync.Mutex

	mu         sync.Mutex
	closed     bool
	onTranscr  func(hardware.TranscriptionEvent)
	onLocation func(hardware.Coordinate)
	onNotif    func(hardware.Notification)
	onSettings func(hardware.SettingsChange)
	pending    map[string]chan frame
}

// New wraps ws, already past its hello handshake, as a hardware.Session.
func New(ws *websocket.Conn, caps hardware.Capabilities) *Conn {
	return &Conn{
		ws:          ws,
		caps:        caps,
		callTimeout: DefaultCallTimeout,
		pending:     make(map[string]chan frame),
	}
}

// Ack writes the hello_ack frame that completes the handshake.
func (c *Conn) Ack() error {
	return c.send(frame{Type: "hello_ack"})
}

func (c *Conn) Capabilities() hardware.Capabilities { return c.caps }

func (c *Conn) OnTranscription(f func(hardware.TranscriptionEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTranscr = f
}

func (c *Conn) OnLocation(f func(hardware.Coordinate)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLocation = f
}

func (c *Conn) OnNotification(f func(hardware.Notification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onNotif = f
}

func (c *Conn) OnSettingsChange(f func(hardware.SettingsChange)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSettings = f
}

// Run reads frames from the device until the connection fails or is
// closed, dispatching each to the registered callback or a pending call.
// It blocks the caller's goroutine for the connection's lifetime and
// returns a short reason string suitable for a session_reconnecting event.
func (c *Conn) Run() string {
	for {
		messageType, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "closed"
			}
			return "connection_lost"
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var f frame
		if err := json.Unmarshal(payload, &f); err != nil {
			continue
		}
		c.dispatch(f)
	}
}

func (c *Conn) dispatch(f frame) {
	switch f.Type {
	case "transcription":
		c.mu.Lock()
		cb := c.onTranscr
		c.mu.Unlock()
		if cb != nil {
			cb(hardware.TranscriptionEvent{Text: f.Text, IsFinal: f.IsFinal, UtteranceID: f.UtteranceID, SpeakerID: f.SpeakerID})
		}
	case "location":
		c.mu.Lock()
		cb := c.onLocation
		c.mu.Unlock()
		if cb != nil {
			cb(hardware.Coordinate{Lat: f.Lat, Lng: f.Lng, Accuracy: f.Accuracy})
		}
	case "notification":
		c.mu.Lock()
		cb := c.onNotif
		c.mu.Unlock()
		if cb != nil {
			cb(hardware.Notification{Payload: f.Payload, ReceivedAt: time.Now()})
		}
	case "settings_change":
		c.mu.Lock()
		cb := c.onSettings
		c.mu.Unlock()
		if cb != nil {
			cb(hardware.SettingsChange{Timezone: f.Timezone})
		}
	case "photo_result", "location_result":
		c.mu.Lock()
		ch, ok := c.pending[f.RequestID]
		if ok {
			delete(c.pending, f.RequestID)
		}
		c.mu.Unlock()
		if ok {
			ch <- f
		}
	}
}

func (c *Conn) send(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(f)
}

// call sends f and waits for the matching reply, correlated by RequestID,
// up to ctx's deadline or c.callTimeout, whichever is sooner.
func (c *Conn) call(ctx context.Context, f frame) (frame, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return frame{}, errors.New("wearable connection closed")
	}
	ch := make(chan frame, 1)
	c.pending[f.RequestID] = ch
	c.mu.Unlock()

	if err := c.send(f); err != nil {
		c.mu.Lock()
		delete(c.pending, f.RequestID)
		c.mu.Unlock()
		return frame{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	select {
	case reply := <-ch:
		if reply.Error != "" {
			return frame{}, errors.New(reply.Error)
		}
		return reply, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, f.RequestID)
		c.mu.Unlock()
		return frame{}, ctx.Err()
	}
}

func (c *Conn) CapturePhoto(ctx context.Context) (hardware.PhotoCapture, error) {
	reply, err := c.call(ctx, frame{Type: "capture_photo", RequestID: idgen.NewPrefixed("req_")})
	if err != nil {
		return hardware.PhotoCapture{}, fmt.Errorf("capture photo: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(reply.Data)
	if err != nil {
		return hardware.PhotoCapture{}, fmt.Errorf("decode photo payload: %w", err)
	}
	return hardware.PhotoCapture{Bytes: data, MimeType: reply.MimeType, Filename: reply.Filename}, nil
}

func (c *Conn) GetLatestLocation(ctx context.Context) (hardware.Coordinate, error) {
	reply, err := c.call(ctx, frame{Type: "get_latest_location", RequestID: idgen.NewPrefixed("req_")})
	if err != nil {
		return hardware.Coordinate{}, fmt.Errorf("get latest location: %w", err)
	}
	return hardware.Coordinate{Lat: reply.Lat, Lng: reply.Lng, Accuracy: reply.Accuracy}, nil
}

func (c *Conn) Speak(ctx context.Context, text string) error {
	return c.send(frame{Type: "speak", RequestID: idgen.NewPrefixed("req_"), Text: text})
}

func (c *Conn) ShowTextWall(ctx context.Context, text string, d time.Duration) error {
	return c.send(frame{Type: "show_text_wall", RequestID: idgen.NewPrefixed("req_"), Text: text, DurationMs: d.Milliseconds()})
}

func (c *Conn) PlayAudio(ctx context.Context, url string) error {
	return c.send(frame{Type: "play_audio", RequestID: idgen.NewPrefixed("req_"), URL: url})
}

func (c *Conn) StopAudio(ctx context.Context) error {
	return c.send(frame{Type: "stop_audio", RequestID: idgen.NewPrefixed("req_")})
}

func (c *Conn) PlayProcessingSound(ctx context.Context) error {
	return c.send(frame{Type: "play_processing_sound", RequestID: idgen.NewPrefixed("req_")})
}

// Close detaches every registered callback, fails any in-flight call, and
// closes the underlying websocket connection. Safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.onTranscr = nil
	c.onLocation = nil
	c.onNotif = nil
	c.onSettings = nil
	for id, ch := range c.pending {
		select {
		case ch <- frame{Error: "connection closed"}:
		default:
		}
		delete(c.pending, id)
	}
	c.mu.Unlock()
	return c.ws.Close()
}
