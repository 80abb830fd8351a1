package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) PurgeExpiredSessions(context.Context) (int64, error) {
	p.calls.Add(1)
	return 0, p.err
}

func TestDefaultSessionJanitorConfig(t *testing.T) {
	if got := DefaultSessionJanitorConfig().Interval; got != 15*time.Minute {
		t.Errorf("Interval = %v", got)
	}
	j := NewSessionJanitor(&countingPurger{}, SessionJanitorConfig{})
	if j.config.Interval != 15*time.Minute {
		t.Errorf("zero interval should fall back to default, got %v", j.config.Interval)
	}
}

func TestSessionJanitor_Lifecycle(t *testing.T) {
	ctx := context.Background()
	p := &countingPurger{err: errors.New("locked")}
	j := NewSessionJanitor(p, SessionJanitorConfig{Interval: 5 * time.Millisecond})

	if err := j.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := j.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}
	if !j.IsRunning() {
		t.Error("janitor should be running")
	}

	deadline := time.Now().Add(time.Second)
	for p.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if p.calls.Load() < 2 {
		t.Fatalf("purge ran %d times", p.calls.Load())
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := j.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if j.IsRunning() {
		t.Error("janitor should be stopped")
	}
	if err := j.Stop(stopCtx); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}
