package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	coreerrors "github.com/glasscore/glasscore/pkg/core/errors"
	"github.com/glasscore/glasscore/pkg/core/session"
	"github.com/glasscore/glasscore/pkg/core/settings"
)

// ActionDeps bundles the collaborators the imperative hardware-passthrough
// and preference endpoints need.
type ActionDeps struct {
	Registry *session.Registry
	Settings *settings.Store
	Logger   *slog.Logger
}

type speakRequest struct {
	UserID string `json:"userId"`
	Text   string `json:"text"`
}

// SpeakHandler serves POST /api/speak.
type SpeakHandler struct{ ActionDeps }

func (h SpeakHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, coreerrors.NewInvalidRequest("malformed request body"))
		return
	}
	if req.UserID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, coreerrors.NewInvalidRequestParam("userId and text are required", "text"))
		return
	}

	user, ok := h.Registry.Get(req.UserID)
	if !ok || !user.HasSession() {
		writeError(w, http.StatusServiceUnavailable, coreerrors.NewUnavailable("no connected glasses for this user"))
		return
	}

	sess := user.Session()
	if sess == nil {
		writeError(w, http.StatusServiceUnavailable, coreerrors.NewUnavailable("no connected glasses for this user"))
		return
	}
	if err := sess.Speak(r.Context(), req.Text); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("speak passthrough failed", "user_id", req.UserID, "error", err)
		}
		writeError(w, http.StatusBadGateway, coreerrors.NewUnavailable("glasses did not accept the speak request"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type stopAudioRequest struct {
	UserID string `json:"userId"`
}

// StopAudioHandler serves POST /api/stop-audio.
type StopAudioHandler struct{ ActionDeps }

func (h StopAudioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req stopAudioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, coreerrors.NewInvalidRequest("malformed request body"))
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, coreerrors.NewInvalidRequestParam("userId is required", "userId"))
		return
	}

	user, ok := h.Registry.Get(req.UserID)
	if !ok || !user.HasSession() {
		writeError(w, http.StatusServiceUnavailable, coreerrors.NewUnavailable("no connected glasses for this user"))
		return
	}
	sess := user.Session()
	if sess == nil {
		writeError(w, http.StatusServiceUnavailable, coreerrors.NewUnavailable("no connected glasses for this user"))
		return
	}
	if err := sess.StopAudio(r.Context()); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("stop-audio passthrough failed", "user_id", req.UserID, "error", err)
		}
		writeError(w, http.StatusBadGateway, coreerrors.NewUnavailable("glasses did not accept the stop-audio request"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type themePreferenceResponse struct {
	Theme string `json:"theme"`
}

// ThemePreferenceHandler serves GET and POST /api/theme-preference?userId=.
type ThemePreferenceHandler struct{ ActionDeps }

func (h ThemePreferenceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			writeError(w, http.StatusBadRequest, coreerrors.NewInvalidRequestParam("userId is required", "userId"))
			return
		}
		s := h.Settings.Get(r.Context(), userID)
		writeJSON(w, http.StatusOK, themePreferenceResponse{Theme: s.Theme})

	case http.MethodPost:
		var req struct {
			UserID string `json:"userId"`
			Theme  string `json:"theme"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, coreerrors.NewInvalidRequest("malformed request body"))
			return
		}
		if req.UserID == "" || req.Theme == "" {
			writeError(w, http.StatusBadRequest, coreerrors.NewInvalidRequestParam("userId and theme are required", "theme"))
			return
		}
		s := h.Settings.Patch(r.Context(), req.UserID, &req.Theme, nil)
		writeJSON(w, http.StatusOK, themePreferenceResponse{Theme: s.Theme})

	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, coreerrors.NewInvalidRequest("method not allowed"))
	}
}
