package shared

import (
	"encoding/json"
	"net/http"

	"github.com/chepyr/session-tasks/internal/logger"
)

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// SendError writes a JSON error body with a human readable message.
func SendError(w http.ResponseWriter, message string, status int) {
	SendJSON(w, status, errorResponse{Message: message})
}

// SendStorageError is SendError plus the underlying error text.
func SendStorageError(w http.ResponseWriter, message string, err error) {
	SendJSON(w, http.StatusInternalServerError, errorResponse{Message: message, Error: err.Error()})
}

func SendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "status", status, "error", err)
	}
}
