package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/chepyr/session-tasks/internal/metrics"
	"github.com/chepyr/session-tasks/shared"
	"github.com/chepyr/session-tasks/tasks-service/db"
	"github.com/chepyr/session-tasks/tasks-service/web"
)

type Handler struct {
	TaskRepo    db.TaskRepositoryInterface
	RateLimiter *RateLimiter
	// Sessions is nil when server-issued session tokens are disabled.
	Sessions *SessionManager
	// EphemeralIdentity lets list and create run under a fresh random user id
	// when the request carries none.
	EphemeralIdentity bool
	RequestTimeout    time.Duration
	AllowedOrigins    []string
	Ping              func(ctx context.Context) error
}

// Router wires every route behind CORS and access logging.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tasks", h.instrument("tasks", h.IdentityMiddleware(h.rateLimit(h.HandleTasks))))
	mux.HandleFunc("/api/tasks/", h.instrument("task_by_id", h.IdentityMiddleware(h.rateLimit(h.HandleTaskByID))))
	mux.HandleFunc("/api/session", h.instrument("session", h.rateLimit(h.HandleSession)))
	mux.HandleFunc("/healthz", h.instrument("healthz", h.HandleHealth))
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", web.Handler())
	return h.cors(mux)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			shared.SendJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	shared.SendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// storeContext applies RequestTimeout when one is configured.
func (h *Handler) storeContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), h.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

// RateLimiter counts attempts per key in fixed windows.
type RateLimiter struct {
	attempts map[string]int
	limit    int
	mutex    sync.Mutex
	window   time.Duration
	stop     chan struct{}
	once     sync.Once
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		attempts: make(map[string]int),
		limit:    limit,
		window:   window,
		stop:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	count, exists := rl.attempts[key]
	if !exists {
		rl.attempts[key] = 1
		return true
	}
	if count >= rl.limit {
		return false
	}
	rl.attempts[key]++
	return true
}

// Stop ends the reset loop.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// reset the attempts map every window duration
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mutex.Lock()
			rl.attempts = make(map[string]int)
			rl.mutex.Unlock()
		case <-rl.stop:
			return
		}
	}
}
