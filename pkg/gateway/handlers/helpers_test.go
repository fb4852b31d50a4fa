package handlers

import (
	"context"
	"time"

	"github.com/glasscore/glasscore/pkg/core/eventbus"
	"github.com/glasscore/glasscore/pkg/core/hardware"
	"github.com/glasscore/glasscore/pkg/core/session"
	"github.com/glasscore/glasscore/pkg/core/settings"
)

func newTestSettingsStore() *settings.Store {
	return settings.New(nil, nil)
}

type fakeHW struct {
	caps     hardware.Capabilities
	photo    hardware.PhotoCapture
	photoErr error
	spoken   []string
	speakErr error
	stopped  int
	stopErr  error
	closed   int
}

func (f *fakeHW) Capabilities() hardware.Capabilities              { return f.caps }
func (f *fakeHW) OnTranscription(func(hardware.TranscriptionEvent)) {}
func (f *fakeHW) OnLocation(func(hardware.Coordinate))              {}
func (f *fakeHW) OnNotification(func(hardware.Notification))       {}
func (f *fakeHW) OnSettingsChange(func(hardware.SettingsChange))    {}

func (f *fakeHW) CapturePhoto(ctx context.Context) (hardware.PhotoCapture, error) {
	if f.photoErr != nil {
		return hardware.PhotoCapture{}, f.photoErr
	}
	return f.photo, nil
}

func (f *fakeHW) Speak(ctx context.Context, text string) error {
	f.spoken = append(f.spoken, text)
	return f.speakErr
}

func (f *fakeHW) ShowTextWall(ctx context.Context, text string, d time.Duration) error { return nil }
func (f *fakeHW) PlayAudio(ctx context.Context, url string) error                      { return nil }

func (f *fakeHW) StopAudio(ctx context.Context) error {
	f.stopped++
	return f.stopErr
}

func (f *fakeHW) PlayProcessingSound(ctx context.Context) error { return nil }

func (f *fakeHW) GetLatestLocation(ctx context.Context) (hardware.Coordinate, error) {
	return hardware.Coordinate{}, nil
}

func (f *fakeHW) Close() error {
	f.closed++
	return nil
}

func newTestRegistry(bus *eventbus.Bus) *session.Registry {
	factory := func(userID string) *session.User {
		return session.New(userID, session.Deps{Bus: bus})
	}
	return session.NewRegistry(factory, bus, nil)
}
