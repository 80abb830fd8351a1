package cache

import (
	"context"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestLRUCache_GetSetDelete(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after delete")
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive")
	}
	if c.Size() != 2 {
		t.Errorf("size = %d", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute).WithClock(clk.now)
	c.Set("a", 1)
	c.Set("b", 2)

	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", 3)

	clk.t = clk.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should be expired")
	}
	if v, ok := c.Get("b"); !ok || v != 3 {
		t.Errorf("Get(b) = %d, %v", v, ok)
	}

	clk.t = clk.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("size = %d", c.Size())
	}
}

func TestManager_Sweep(t *testing.T) {
	clk := &clock{t: time.Now()}
	c := NewLRUCache[int](10, time.Second).WithClock(clk.now)
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager()
	m.Register("sessions", c)
	clk.t = clk.t.Add(2 * time.Second)
	if n := m.Sweep(context.Background()); n != 2 {
		t.Errorf("Sweep = %d, want 2", n)
	}

	m.StartCleanup(context.Background(), time.Hour)
	m.Stop()
	m.Stop()
}
