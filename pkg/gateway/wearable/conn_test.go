package wearable

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/glasscore/glasscore/pkg/core/hardware"
)

// newTestPair starts an httptest server that upgrades one connection and
// hands the resulting *Conn to onConn, then dials it as the device side.
// The caller owns the device-side *websocket.Conn's lifetime.
func newTestPair(t *testing.T, onConn func(*Conn)) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		c := New(ws, hardware.Capabilities{HasCamera: true, HasSpeaker: true})
		onConn(c)
		go c.Run()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	device, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { device.Close() })
	return device
}

func TestConn_TranscriptionCallbackFires(t *testing.T) {
	received := make(chan hardware.TranscriptionEvent, 1)
	device := newTestPair(t, func(c *Conn) {
		c.OnTranscription(func(ev hardware.TranscriptionEvent) { received <- ev })
	})

	if err := device.WriteJSON(frame{Type: "transcription", Text: "hey mentra", IsFinal: true, UtteranceID: "1"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case ev := <-received:
		if ev.Text != "hey mentra" || !ev.IsFinal || ev.UtteranceID != "1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("transcription callback never fired")
	}
}

func TestConn_CapturePhotoRoundTrip(t *testing.T) {
	var serverConn *Conn
	device := newTestPair(t, func(c *Conn) { serverConn = c })

	// Drive the device side manually: read the capture_photo request and
	// answer it with a photo_result frame carrying base64-encoded bytes.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, payload, err := device.ReadMessage()
		if err != nil {
			return
		}
		var req frame
		if err := json.Unmarshal(payload, &req); err != nil || req.Type != "capture_photo" {
			return
		}
		reply := frame{
			Type:      "photo_result",
			RequestID: req.RequestID,
			MimeType:  "image/jpeg",
			Filename:  "capture.jpg",
			Data:      base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")),
		}
		_ = device.WriteJSON(reply)
	}()

	for serverConn == nil {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := serverConn.CapturePhoto(ctx)
	if err != nil {
		t.Fatalf("CapturePhoto: %v", err)
	}
	if string(got.Bytes) != "jpeg-bytes" || got.MimeType != "image/jpeg" {
		t.Fatalf("got %+v", got)
	}
	<-done
}

func TestConn_CloseFailsPendingCall(t *testing.T) {
	var serverConn *Conn
	newTestPair(t, func(c *Conn) { serverConn = c })
	for serverConn == nil {
		time.Sleep(time.Millisecond)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := serverConn.GetLatestLocation(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := serverConn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected an error once the connection closed mid-call")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending call never unblocked on close")
	}
}
