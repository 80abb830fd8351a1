// Package ratelimit is a fixed-window, per-client request limiter.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const window = time.Minute

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// StaleAfter drops clients idle for longer than this on cleanup.
	StaleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60, CleanupInterval: 5 * time.Minute, StaleAfter: 10 * time.Minute}
}

type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	cfg     Config
	now     func() time.Time

	rejected atomic.Int64
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type clientWindow struct {
	start    time.Time
	requests int
	last     time.Time
}

// Metrics for monitoring the limiter.
type Metrics struct {
	Rejected    int64
	ClientCount int
}

// NewLimiter starts a limiter and its cleanup goroutine; call Stop when done.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	l := &Limiter{
		clients: make(map[string]*clientWindow),
		cfg:     cfg,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow records a request from client and reports whether it is within the
// limit, plus how long until the client's window resets.
func (l *Limiter) Allow(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[client]
	if !ok || now.Sub(c.start) >= window {
		l.clients[client] = &clientWindow{start: now, requests: 1, last: now}
		return true, window
	}
	c.requests++
	c.last = now
	reset := window - now.Sub(c.start)
	if c.requests > l.cfg.RequestsPerMinute {
		l.rejected.Add(1)
		return false, reset
	}
	return true, reset
}

func (l *Limiter) cleanupLoop() {
	defer close(l.done)
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.cfg.StaleAfter)
	removed := 0
	for k, c := range l.clients {
		if c.last.Before(cutoff) {
			delete(l.clients, k)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
		<-l.done
	})
}

func (l *Limiter) Metrics() Metrics {
	l.mu.Lock()
	n := len(l.clients)
	l.mu.Unlock()
	return Metrics{Rejected: l.rejected.Load(), ClientCount: n}
}

// Middleware rejects requests over the limit with onLimit, or a plain 429
// when onLimit is nil.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, reset := l.Allow(extractIP(r))
			if !ok {
				secs := int(reset.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
