package handlers

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestClientIP_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.RemoteAddr = "10.0.0.1:1234"

	if got := clientIP(req); got != "1.2.3.4" {
		t.Fatalf("clientIP = %q, want %q", got, "1.2.3.4")
	}
}

func TestClientIP_RemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	if got := clientIP(req); got != "127.0.0.1" {
		t.Fatalf("clientIP = %q, want %q", got, "127.0.0.1")
	}
}

func TestCheckOrigin_EmptyAllowsAll(t *testing.T) {
	h := &Handler{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://any.example")
	if !h.checkOrigin(req) {
		t.Fatalf("checkOrigin should allow when AllowedOrigins is empty")
	}
}

func TestCheckOrigin_ListAllowAndDeny(t *testing.T) {
	h := &Handler{AllowedOrigins: []string{"https://a.example", " https://b.example"}}
	allowReq := httptest.NewRequest(http.MethodGet, "/", nil)
	allowReq.Header.Set("Origin", "https://b.example")
	denyReq := httptest.NewRequest(http.MethodGet, "/", nil)
	denyReq.Header.Set("Origin", "https://c.example")

	if !h.checkOrigin(allowReq) {
		t.Fatalf("expected allow for https://b.example")
	}
	if h.checkOrigin(denyReq) {
		t.Fatalf("expected deny for https://c.example")
	}
}

func TestCORS_Preflight(t *testing.T) {
	h, srv, _ := setupHTTP(t)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/tasks/1", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("http://localhost:3000")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Allow-Origin = %q, want *", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	h.AllowedOrigins = []string{"https://app.example"}
	srv = h.Router()
	if rec := preflight("https://app.example"); rec.Code != http.StatusNoContent ||
		rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Errorf("allowed origin: code=%d header=%q", rec.Code, rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec := preflight("https://evil.example"); rec.Code != http.StatusForbidden {
		t.Errorf("disallowed origin: want 403, got %d", rec.Code)
	}
}

func TestRateLimit_OnlyMutations(t *testing.T) {
	h, srv, _ := setupHTTP(t)
	h.RateLimiter = NewRateLimiter(2, time.Minute)
	defer h.RateLimiter.Stop()

	for i := 0; i < 2; i++ {
		if rec := doRequest(t, srv, http.MethodPost, "/api/tasks", `{"text":"x","userId":"u1"}`, nil); rec.Code != http.StatusCreated {
			t.Fatalf("create %d: want 201, got %d", i+1, rec.Code)
		}
	}
	rec := doRequest(t, srv, http.MethodPost, "/api/tasks", `{"text":"x","userId":"u1"}`, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third create: want 429, got %d", rec.Code)
	}

	// reads stay available
	for i := 0; i < 5; i++ {
		if rec := doRequest(t, srv, http.MethodGet, "/api/tasks?userId=u1", "", nil); rec.Code != http.StatusOK {
			t.Fatalf("list %d: want 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimiter_AllowBlocksAndResets(t *testing.T) {
	rl := NewRateLimiter(2, 50*time.Millisecond)
	defer rl.Stop()

	ip := "1.2.3.4"
	if !rl.Allow(ip) || !rl.Allow(ip) {
		t.Fatalf("first two attempts should be allowed")
	}
	if rl.Allow(ip) {
		t.Fatalf("third attempt should be blocked")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatalf("other keys are counted separately")
	}

	time.Sleep(120 * time.Millisecond) // wait for cleanup to run
	if !rl.Allow(ip) {
		t.Fatalf("after window cleanup attempt should be allowed again")
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl := NewRateLimiter(3, time.Second)
	defer rl.Stop()

	var wg sync.WaitGroup
	results := make([]bool, 10)
	for i := range results {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = rl.Allow("192.168.1.1")
		}(i)
	}
	wg.Wait()

	allowed := 0
	for _, ok := range results {
		if ok {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("expected exactly 3 allowed attempts, got %d", allowed)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Millisecond)
	rl.Stop()
	rl.Stop()
}
