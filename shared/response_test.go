package shared

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chepyr/session-tasks/internal/logger"
)

func TestSendError(t *testing.T) {
	rec := httptest.NewRecorder()
	SendError(rec, "Task text cannot be empty.", http.StatusBadRequest)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"message":"Task text cannot be empty."}` {
		t.Errorf("body = %s", got)
	}
}

func TestSendStorageError(t *testing.T) {
	rec := httptest.NewRecorder()
	SendStorageError(rec, "Failed to fetch tasks", errors.New("connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"message":"Failed to fetch tasks","error":"connection refused"}` {
		t.Errorf("body = %s", got)
	}
}

func TestSendJSON_LogsEncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	logger.InitWithWriter(&logs, "error", false)
	t.Cleanup(func() { logger.InitWithWriter(&bytes.Buffer{}, "error", false) })

	rec := httptest.NewRecorder()
	SendJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	if !strings.Contains(logs.String(), "failed to encode response") {
		t.Fatalf("expected encode failure to be logged, got %q", logs.String())
	}
}
