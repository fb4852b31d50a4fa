package handlers

import (
	"net/http"

	coreerrors "github.com/glasscore/glasscore/pkg/core/errors"
	"github.com/glasscore/glasscore/pkg/core/session"
)

// KillSessionHandler serves POST /api/debug/kill-session?userId&mode=soft|hard.
// It is wired only when the server is started with debug routes enabled; it
// exists to let integration tests and local development force the grace
// period path (soft) or immediate teardown (hard) without waiting on real
// hardware disconnects.
type KillSessionHandler struct {
	Registry *session.Registry
}

func (h KillSessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, coreerrors.NewInvalidRequestParam("userId is required", "userId"))
		return
	}

	switch r.URL.Query().Get("mode") {
	case "hard":
		h.Registry.Remove(userID)
	case "soft", "":
		h.Registry.SoftRemove(userID)
	default:
		writeError(w, http.StatusBadRequest, coreerrors.NewInvalidRequestParam("mode must be soft or hard", "mode"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
