// Package hardware declares the capability contract a wearable host must
// satisfy. The concrete implementation (the wearable SDK, the speech-to-text
// provider, the generative agent) lives outside this module; the core only
// depends on these interfaces.
package hardware

import (
	"context"
	"time"
)

// Capabilities describes what a connected device can do.
type Capabilities struct {
	HasCamera  bool
	HasDisplay bool
	HasSpeaker bool
	ModelName  string
}

// TranscriptionEvent is one speech-to-text update from the wearable host.
// Within one UtteranceID text is cumulative; across UtteranceIDs it
// restarts. UtteranceID and SpeakerID are optional: a provider that does
// not supply them leaves them empty, and callers must not require them.
type TranscriptionEvent struct {
	Text        string
	IsFinal     bool
	UtteranceID string
	SpeakerID   string
}

// Coordinate is a raw GPS fix from the wearable host.
type Coordinate struct {
	Lat      float64
	Lng      float64
	Accuracy float64
}

// Notification is an opaque payload delivered by the host; the core never
// interprets its contents beyond stringifying it for an agent prompt.
type Notification struct {
	Payload    any
	ReceivedAt time.Time
}

// SettingsChange reports a change to a device-side setting the core cares
// about, currently only the display timezone.
type SettingsChange struct {
	Timezone string
}

// Session is one connected wearable device. All methods other than the
// imperative calls are callback registrations; the lifecycle controller
// (pkg/core/lifecycle) is the only caller allowed to register callbacks or
// swap the handle out from under a user. Every other component treats a
// Session as a read-only capability object borrowed for the duration of one
// call.
type Session interface {
	Capabilities() Capabilities

	OnTranscription(func(TranscriptionEvent))
	OnLocation(func(Coordinate))
	OnNotification(func(Notification))
	OnSettingsChange(func(SettingsChange))

	CapturePhoto(ctx context.Context) (PhotoCapture, error)
	Speak(ctx context.Context, text string) error
	ShowTextWall(ctx context.Context, text string, duration time.Duration) error
	PlayAudio(ctx context.Context, url string) error
	StopAudio(ctx context.Context) error
	PlayProcessingSound(ctx context.Context) error
	GetLatestLocation(ctx context.Context) (Coordinate, error)

	// Close detaches all callbacks previously registered on this handle.
	// Called exactly once, by the component that registered them.
	Close() error
}

// PhotoCapture is the raw result of a CapturePhoto call.
type PhotoCapture struct {
	Bytes    []byte
	MimeType string
	Filename string
}

// Geocoder resolves a coordinate to a place name and timezone. It is an
// external collaborator (out of scope per spec §1); the core only depends
// on this narrow interface.
type Geocoder interface {
	Reverse(ctx context.Context, c Coordinate) (place string, timezone string, err error)
}
