package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chepyr/session-tasks/shared/models"
	"github.com/google/uuid"
)

// Config holds everything a client session needs. UserID is the partition
// key sent with every request; Token, when set, is sent as a bearer token
// and takes precedence on the server.
type Config struct {
	BaseURL    string
	UserID     string
	Token      string
	HTTPClient *http.Client
}

// NewUserID returns a fresh random session identity.
func NewUserID() string {
	return uuid.NewString()
}

// APIError is a non-2xx response from the tasks API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Message)
}

// Session is the body of POST /api/session.
type Session struct {
	UserID    string `json:"userId"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// API is a thin client for the /api endpoints.
type API struct {
	baseURL    string
	userID     string
	token      string
	httpClient *http.Client
}

func NewAPI(cfg Config) *API {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &API{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userID:     cfg.UserID,
		token:      cfg.Token,
		httpClient: httpClient,
	}
}

func (a *API) UserID() string {
	return a.userID
}

// List returns the caller's tasks, oldest first.
func (a *API) List(ctx context.Context) ([]models.Task, error) {
	query := url.Values{}
	query.Set("userId", a.userID)

	tasks := []models.Task{}
	if err := a.do(ctx, http.MethodGet, "/api/tasks?"+query.Encode(), nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (a *API) Create(ctx context.Context, text string) (*models.Task, error) {
	body := map[string]any{"text": text, "userId": a.userID}

	var task models.Task
	if err := a.do(ctx, http.MethodPost, "/api/tasks", body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (a *API) SetCompleted(ctx context.Context, id int64, completed bool) error {
	body := map[string]any{"completed": completed, "userId": a.userID}
	return a.do(ctx, http.MethodPut, taskPath(id), body, nil)
}

func (a *API) Delete(ctx context.Context, id int64) error {
	body := map[string]any{"userId": a.userID}
	return a.do(ctx, http.MethodDelete, taskPath(id), body, nil)
}

// NewSession asks the server for a signed session and switches this client
// to the returned identity.
func (a *API) NewSession(ctx context.Context) (*Session, error) {
	var session Session
	if err := a.do(ctx, http.MethodPost, "/api/session", nil, &session); err != nil {
		return nil, err
	}
	a.userID = session.UserID
	a.token = session.Token
	return &session, nil
}

func taskPath(id int64) string {
	return "/api/tasks/" + strconv.FormatInt(id, 10)
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &payload); err != nil || payload.Message == "" {
		payload.Message = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: payload.Message}
}
