package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// SessionPurger deletes expired sessions and reports how many went away.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

type SessionJanitorConfig struct {
	// Interval between purges (default: 15m)
	Interval time.Duration
}

func DefaultSessionJanitorConfig() SessionJanitorConfig {
	return SessionJanitorConfig{Interval: 15 * time.Minute}
}

// SessionJanitor periodically removes expired sessions from the store.
type SessionJanitor struct {
	purger SessionPurger
	config SessionJanitorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSessionJanitor(purger SessionPurger, config SessionJanitorConfig) *SessionJanitor {
	if config.Interval <= 0 {
		config.Interval = DefaultSessionJanitorConfig().Interval
	}
	return &SessionJanitor{purger: purger, config: config}
}

// Start begins the purge loop. Returns an error if already running.
func (j *SessionJanitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return errors.New("session janitor is already running")
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})

	go j.runLoop(ctx, j.stopCh, j.doneCh)
	slog.InfoContext(ctx, "Session janitor started", "interval", j.config.Interval)
	return nil
}

// Stop ends the loop and waits for it, or for ctx to expire.
func (j *SessionJanitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	stopCh, doneCh := j.stopCh, j.doneCh
	j.running = false
	j.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Session janitor stopped")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Session janitor stop timed out")
		return ctx.Err()
	}
}

func (j *SessionJanitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *SessionJanitor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	j.purge(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.purge(ctx)
		}
	}
}

func (j *SessionJanitor) purge(ctx context.Context) {
	if _, err := j.purger.PurgeExpiredSessions(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to purge expired sessions", "error", err)
	}
}
