package handlers

import (
	"encoding/json"
	"net/http"

	coreerrors "github.com/glasscore/glasscore/pkg/core/errors"
)

type errorEnvelope struct {
	Error *coreerrors.Error `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err *coreerrors.Error) {
	writeJSON(w, status, errorEnvelope{Error: err})
}
