package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	clock := time.Date(2025, 3, 20, 20, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	return rl, &clock
}

func TestLimiter_Allow(t *testing.T) {
	rl, clock := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("fourth request allowed")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other client rejected")
	}

	*clock = clock.Add(time.Minute)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("request in new window rejected")
	}

	m := rl.GetMetrics()
	if m.Rejected != 1 || m.ClientCount != 2 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	rl, clock := newTestLimiter(t, 3)
	rl.Allow("10.0.0.1")

	*clock = clock.Add(11 * time.Minute)
	rl.Allow("10.0.0.2")
	rl.cleanupStaleEntries()

	if got := rl.GetMetrics().ClientCount; got != 1 {
		t.Fatalf("ClientCount = %d, want 1", got)
	}
}

func TestLimiter_MiddlewareLimitsWritesOnly(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "10.0.0.1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	do := func(method string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/shows", nil))
		return rec
	}

	if rec := do(http.MethodPost); rec.Code != http.StatusNoContent {
		t.Fatalf("first POST = %d", rec.Code)
	}
	rec := do(http.MethodPost)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("headers = %v", rec.Header())
	}
	for i := 0; i < 5; i++ {
		if rec := do(http.MethodGet); rec.Code != http.StatusNoContent {
			t.Fatalf("GET %d = %d", i, rec.Code)
		}
	}
}
