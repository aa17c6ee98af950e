package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/chepyr/session-tasks/shared"
	"github.com/chepyr/session-tasks/shared/models"
	"github.com/chepyr/session-tasks/tasks-service/db"
	"github.com/gorilla/schema"
)

const notFoundMessage = "Task not found or does not belong to this user."

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

/*
handles routes:
- GET /api/tasks?userId={id} - list tasks of a user
- POST /api/tasks - create a new task
*/
func (h *Handler) HandleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTasks(w, r)
	case http.MethodPost:
		h.createTask(w, r)
	default:
		shared.SendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

/*
routes:
- PUT /api/tasks/{id}
- DELETE /api/tasks/{id}

A task owned by someone else answers 404 exactly like a missing one, so
callers cannot probe for other users' ids.
*/
func (h *Handler) HandleTaskByID(w http.ResponseWriter, r *http.Request) {
	taskID, ok := parseTaskID(r.URL.Path)
	if !ok {
		shared.SendError(w, "Invalid task id.", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.updateTaskCompletion(w, r, taskID)
	case http.MethodDelete:
		h.deleteTask(w, r, taskID)
	default:
		shared.SendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	var query struct {
		UserID string `schema:"userId"`
	}
	if err := queryDecoder.Decode(&query, r.URL.Query()); err != nil {
		shared.SendError(w, "Invalid query parameters.", http.StatusBadRequest)
		return
	}

	userID := h.resolveUserID(r, query.UserID, true)
	if userID == "" {
		shared.SendError(w, "User ID is required to fetch tasks.", http.StatusBadRequest)
		return
	}

	ctx, cancel := h.storeContext(r)
	defer cancel()

	tasks, err := h.TaskRepo.ListByUserID(ctx, userID)
	if err != nil {
		shared.SendStorageError(w, "Failed to fetch tasks", err)
		return
	}
	shared.SendJSON(w, http.StatusOK, tasks)
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Text   string `json:"text"`
		UserID string `json:"userId"`
	}
	if !decodeJSONBody(w, r, &input) {
		return
	}

	if strings.TrimSpace(input.Text) == "" {
		shared.SendError(w, "Task text cannot be empty.", http.StatusBadRequest)
		return
	}
	userID := h.resolveUserID(r, input.UserID, true)
	if userID == "" {
		shared.SendError(w, "User ID is required to add tasks.", http.StatusBadRequest)
		return
	}

	ctx, cancel := h.storeContext(r)
	defer cancel()

	task := &models.Task{
		Text:      input.Text,
		Completed: false,
		UserID:    userID,
		CreatedAt: models.NowMillis(),
	}
	if err := h.TaskRepo.Create(ctx, task); err != nil {
		shared.SendStorageError(w, "Failed to add task", err)
		return
	}
	w.Header().Set("Location", "/api/tasks/"+strconv.FormatInt(task.ID, 10))
	shared.SendJSON(w, http.StatusCreated, task)
}

func (h *Handler) updateTaskCompletion(w http.ResponseWriter, r *http.Request, taskID int64) {
	var input struct {
		Completed json.RawMessage `json:"completed"`
		UserID    string          `json:"userId"`
	}
	if !decodeJSONBody(w, r, &input) {
		return
	}

	completed, ok := parseStrictBool(input.Completed)
	if !ok {
		shared.SendError(w, `Invalid "completed" status.`, http.StatusBadRequest)
		return
	}
	userID, err := bodyUserID(r, input.UserID)
	if err != nil {
		shared.SendError(w, "Session does not match userId.", http.StatusForbidden)
		return
	}
	if userID == "" {
		shared.SendError(w, "User ID is required for updating tasks.", http.StatusBadRequest)
		return
	}

	ctx, cancel := h.storeContext(r)
	defer cancel()

	err = h.TaskRepo.UpdateCompletion(ctx, taskID, userID, completed)
	if errors.Is(err, db.ErrTaskNotFound) {
		shared.SendError(w, notFoundMessage, http.StatusNotFound)
		return
	}
	if err != nil {
		shared.SendStorageError(w, "Failed to update task", err)
		return
	}
	shared.SendJSON(w, http.StatusOK, map[string]any{
		"message":   "Task updated successfully",
		"id":        taskID,
		"completed": completed,
	})
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request, taskID int64) {
	var input struct {
		UserID string `json:"userId"`
	}
	if !decodeJSONBody(w, r, &input) {
		return
	}

	userID, err := bodyUserID(r, input.UserID)
	if err != nil {
		shared.SendError(w, "Session does not match userId.", http.StatusForbidden)
		return
	}
	if userID == "" {
		shared.SendError(w, "User ID is required for deleting tasks.", http.StatusBadRequest)
		return
	}

	ctx, cancel := h.storeContext(r)
	defer cancel()

	err = h.TaskRepo.Delete(ctx, taskID, userID)
	if errors.Is(err, db.ErrTaskNotFound) {
		shared.SendError(w, notFoundMessage, http.StatusNotFound)
		return
	}
	if err != nil {
		shared.SendStorageError(w, "Failed to delete task", err)
		return
	}
	shared.SendJSON(w, http.StatusOK, map[string]any{
		"message": "Task deleted successfully",
		"id":      taskID,
	})
}

// decodeJSONBody reads an optional JSON object body. An empty body leaves v
// untouched; anything else that is not valid JSON is a 400.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	if !isJSONContentType(r) {
		shared.SendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		shared.SendError(w, "Invalid JSON body.", http.StatusBadRequest)
		return false
	}
	return true
}

// a missing Content-Type is accepted
func isJSONContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	return err == nil && mediaType == "application/json"
}

// only the JSON literals true and false are accepted
func parseStrictBool(raw json.RawMessage) (bool, bool) {
	switch string(bytes.TrimSpace(raw)) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

func parseTaskID(path string) (int64, bool) {
	idStr := strings.TrimPrefix(path, "/api/tasks/")
	if idStr == "" || strings.Contains(idStr, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
