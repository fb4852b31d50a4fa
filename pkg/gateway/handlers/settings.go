package handlers

import (
	"encoding/json"
	"net/http"

	coreerrors "github.com/glasscore/glasscore/pkg/core/errors"
	"github.com/glasscore/glasscore/pkg/core/settings"
)

type settingsResponse struct {
	Theme              string `json:"theme"`
	ChatHistoryEnabled bool   `json:"chatHistoryEnabled"`
}

// SettingsHandler serves GET and PATCH /api/settings?userId=.
type SettingsHandler struct {
	Settings *settings.Store
}

func (h SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, coreerrors.NewInvalidRequestParam("userId is required", "userId"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		s := h.Settings.Get(r.Context(), userID)
		writeJSON(w, http.StatusOK, settingsResponse{Theme: s.Theme, ChatHistoryEnabled: s.ChatHistoryEnabled})

	case http.MethodPatch:
		var req struct {
			Theme              *string `json:"theme"`
			ChatHistoryEnabled *bool   `json:"chatHistoryEnabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, coreerrors.NewInvalidRequest("malformed request body"))
			return
		}
		s := h.Settings.Patch(r.Context(), userID, req.Theme, req.ChatHistoryEnabled)
		writeJSON(w, http.StatusOK, settingsResponse{Theme: s.Theme, ChatHistoryEnabled: s.ChatHistoryEnabled})

	default:
		w.Header().Set("Allow", "GET, PATCH")
		writeError(w, http.StatusMethodNotAllowed, coreerrors.NewInvalidRequest("method not allowed"))
	}
}
