package auth

import (
	"testing"
	"time"

	"github.com/artisan-atelier/commission-backend/internal/domain"
)

// fakeClock is a manually advanced clock for deterministic TTL tests.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCacheHitWithinTTL(t *testing.T) {
	clk := newFakeClock()
	c := NewCache(5*time.Minute, clk.Now)

	c.Put("u1", domain.User{ID: "u1", Email: "a@example.com", Role: "customer"})

	clk.Advance(4 * time.Minute)
	got, ok := c.Get("u1")
	if !ok {
		t.Fatal("expected a hit inside the TTL window")
	}
	if got.Email != "a@example.com" {
		t.Fatalf("wrong cached row: %+v", got)
	}
}

func TestCacheMissAfterTTL(t *testing.T) {
	clk := newFakeClock()
	c := NewCache(5*time.Minute, clk.Now)

	c.Put("u1", domain.User{ID: "u1"})
	clk.Advance(5 * time.Minute)

	if _, ok := c.Get("u1"); ok {
		t.Fatal("entry at exactly the TTL boundary should be stale")
	}
	if c.Len() != 0 {
		t.Fatalf("stale entry should be lazily evicted, Len=%d", c.Len())
	}
}

func TestCachePutResetsTTL(t *testing.T) {
	clk := newFakeClock()
	c := NewCache(5*time.Minute, clk.Now)

	c.Put("u1", domain.User{ID: "u1", Name: "old"})
	clk.Advance(4 * time.Minute)
	c.Put("u1", domain.User{ID: "u1", Name: "new"})
	clk.Advance(4 * time.Minute)

	got, ok := c.Get("u1")
	if !ok {
		t.Fatal("refreshed entry should still be fresh")
	}
	if got.Name != "new" {
		t.Fatalf("Put should overwrite the row, got %q", got.Name)
	}
}

func TestCacheSweep(t *testing.T) {
	clk := newFakeClock()
	c := NewCache(time.Minute, clk.Now)

	c.Put("old", domain.User{ID: "old"})
	clk.Advance(30 * time.Second)
	c.Put("fresh", domain.User{ID: "fresh"})
	clk.Advance(40 * time.Second)

	// "old" is now 70s old, "fresh" 40s.
	if n := c.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Fatal("sweep must not evict fresh entries")
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d after sweep, want 1", c.Len())
	}
}

func TestCacheDefaults(t *testing.T) {
	c := NewCache(0, nil)
	if c.ttl != time.Minute {
		t.Fatalf("zero TTL should coerce to a minute, got %v", c.ttl)
	}
	c.Put("u1", domain.User{ID: "u1"})
	if _, ok := c.Get("u1"); !ok {
		t.Fatal("cache with default clock should serve a fresh entry")
	}
}
