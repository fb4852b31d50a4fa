// Package sse implements the server-sent-events wire format used by the
// three fan-out streams (chat, transcription, photo): "data: <json>\n\n"
// lines over a long-lived HTTP response, with headers that disable
// intermediate buffering and a write deadline so a stalled client is
// detected and disconnected rather than blocking the fan-out forever.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// WriteDeadline bounds how long a single write to a subscriber may take
// before it is treated as disconnected.
const WriteDeadline = 5 * time.Second

// SetHeaders disables buffering on w so events are flushed to the client as
// soon as they are written, including by any intermediate proxy that
// honors X-Accel-Buffering.
func SetHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// Writer serialises raw pre-encoded JSON lines to the client as SSE
// "data:" frames. It implements pkg/core/eventbus.Writer so it can be
// registered directly with the bus.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu sync.Mutex
}

// New wraps w for SSE writing. Returns an error if w does not support
// flushing, which would silently defeat streaming.
func New(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("sse: response writer does not support flushing")
	}
	return &Writer{w: w, flusher: f}, nil
}

// Write sends line (a pre-serialised JSON object, already produced by the
// event bus) as one SSE data frame. Satisfies pkg/core/eventbus.Writer: any
// returned error causes the bus to deregister this subscriber.
func (sw *Writer) Write(line string) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if rc := http.NewResponseController(sw.w); rc != nil {
		_ = rc.SetWriteDeadline(time.Now().Add(WriteDeadline))
	}

	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", line); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}
