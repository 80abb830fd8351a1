package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	l := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(l.Stop)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiterAllow(t *testing.T) {
	l, now := newTestLimiter(t, 2)

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow("a"); !ok {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	ok, reset := l.Allow("a")
	if ok {
		t.Fatal("third request should be limited")
	}
	if reset != time.Minute {
		t.Errorf("reset = %v", reset)
	}
	if ok, _ := l.Allow("b"); !ok {
		t.Error("other clients are independent")
	}

	*now = now.Add(time.Minute)
	if ok, _ := l.Allow("a"); !ok {
		t.Error("window should reset after a minute")
	}
	if got := l.Metrics(); got.Rejected != 1 || got.ClientCount != 2 {
		t.Errorf("metrics = %+v", got)
	}
}

func TestLimiterCleanup(t *testing.T) {
	l, now := newTestLimiter(t, 5)
	l.Allow("old")
	*now = now.Add(11 * time.Minute)
	l.Allow("fresh")
	if removed := l.cleanup(); removed != 1 {
		t.Errorf("removed = %d", removed)
	}
	if l.Metrics().ClientCount != 1 {
		t.Errorf("clients = %d", l.Metrics().ClientCount)
	}
}

func TestMiddleware(t *testing.T) {
	l, _ := newTestLimiter(t, 1)
	h := l.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("second = %d retry=%q", rec.Code, rec.Header().Get("Retry-After"))
	}
}
