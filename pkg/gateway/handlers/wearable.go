package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/glasscore/glasscore/pkg/core/lifecycle"
	"github.com/glasscore/glasscore/pkg/gateway/drain"
	"github.com/glasscore/glasscore/pkg/gateway/wearable"
)

// DefaultHandshakeTimeout bounds how long a newly upgraded connection has
// to send its hello frame before the handler gives up on it.
const DefaultHandshakeTimeout = 5 * time.Second

// WearableHandler serves GET /api/wearable/connect: it upgrades the
// request to a websocket, performs the hello/hello_ack handshake, and
// hands the resulting connection to Lifecycle for the duration of the
// device's session. This is the one place a hardware.Session is actually
// constructed and attached to a User in the running server.
type WearableHandler struct {
	Lifecycle        *lifecycle.Controller
	Drain            *drain.Flag
	HandshakeTimeout time.Duration
	Logger           *slog.Logger
}

func (h WearableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Drain.IsDraining() {
		http.Error(w, "server is draining", 529)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("wearable websocket upgrade failed", "error", err)
		}
		return
	}

	timeout := h.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	_ = ws.SetReadDeadline(time.Now().Add(timeout))

	hello, err := wearable.ReadHello(ws)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("wearable handshake failed", "error", err)
		}
		_ = ws.Close()
		return
	}
	_ = ws.SetReadDeadline(time.Time{})

	conn := wearable.New(ws, hello.Capabilities)
	if err := conn.Ack(); err != nil {
		_ = ws.Close()
		return
	}

	h.Lifecycle.OnSession(conn, hello.UserID)
	reason := conn.Run()
	h.Lifecycle.OnStop(hello.UserID, reason)
}
