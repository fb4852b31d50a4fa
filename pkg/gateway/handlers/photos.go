package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gorilla/mux"

	coreerrors "github.com/glasscore/glasscore/pkg/core/errors"
	"github.com/glasscore/glasscore/pkg/core/session"
)

// LatestPhotoHandler serves GET /api/latest-photo?userId=.
type LatestPhotoHandler struct {
	Registry *session.Registry
}

func (h LatestPhotoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, coreerrors.NewInvalidRequestParam("userId is required", "userId"))
		return
	}
	user, ok := h.Registry.Get(userID)
	if !ok {
		writeError(w, http.StatusNotFound, coreerrors.NewNotFound("no such user"))
		return
	}
	stored, ok := user.Photos().Latest()
	if !ok {
		writeError(w, http.StatusNotFound, coreerrors.NewNotFound("no photo captured yet"))
		return
	}
	writeImage(w, stored.MimeType, stored.Bytes)
}

// PhotoByIDHandler serves GET /api/photo/{requestId}?userId=.
type PhotoByIDHandler struct {
	Registry *session.Registry
}

func (h PhotoByIDHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	requestID := mux.Vars(r)["requestId"]
	if userID == "" || requestID == "" {
		writeError(w, http.StatusBadRequest, coreerrors.NewInvalidRequestParam("userId and requestId are required", "requestId"))
		return
	}
	user, ok := h.Registry.Get(userID)
	if !ok {
		writeError(w, http.StatusNotFound, coreerrors.NewNotFound("no such user"))
		return
	}
	stored, ok := user.Photos().Lookup(requestID)
	if !ok {
		writeError(w, http.StatusNotFound, coreerrors.NewNotFound("no photo with that request id"))
		return
	}
	writeImage(w, stored.MimeType, stored.Bytes)
}

// PhotoBase64Handler serves GET /api/photo-base64/{requestId}?userId=.
type PhotoBase64Handler struct {
	Registry *session.Registry
}

func (h PhotoBase64Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	requestID := mux.Vars(r)["requestId"]
	if userID == "" || requestID == "" {
		writeError(w, http.StatusBadRequest, coreerrors.NewInvalidRequestParam("userId and requestId are required", "requestId"))
		return
	}
	user, ok := h.Registry.Get(userID)
	if !ok {
		writeError(w, http.StatusNotFound, coreerrors.NewNotFound("no such user"))
		return
	}
	stored, ok := user.Photos().Lookup(requestID)
	if !ok {
		writeError(w, http.StatusNotFound, coreerrors.NewNotFound("no photo with that request id"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"mimeType": stored.MimeType,
		"data":     base64.StdEncoding.EncodeToString(stored.Bytes),
	})
}

func writeImage(w http.ResponseWriter, mimeType string, bytes []byte) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bytes)
}
