// Package cache holds the in-process caches used by the server, currently
// the session lookup cache, and a manager that sweeps expired entries.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cache is the read/write surface shared by cache implementations.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Size() int
}

var _ Cache[int] = (*LRUCache[int])(nil)

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps registered caches.
type Manager struct {
	mu     sync.Mutex
	caches map[string]Cleaner
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func NewManager() *Manager {
	return &Manager{
		caches: make(map[string]Cleaner),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Register adds a cache under a name used in log output.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// Sweep cleans every registered cache once and returns the total removed.
func (m *Manager) Sweep(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for name, c := range m.caches {
		n := c.CleanExpired()
		if n > 0 {
			slog.DebugContext(ctx, "Cache sweep", "cache", name, "removed", n)
		}
		total += n
	}
	return total
}

// StartCleanup sweeps every interval until ctx is cancelled or Stop is called.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sweep(ctx)
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends the cleanup goroutine started by StartCleanup and waits for it.
func (m *Manager) Stop() {
	m.once.Do(func() {
		close(m.stop)
		<-m.done
	})
}
