// Package auth implements the identity & session guard. This file provides
// the process-wide identity cache: a bounded key→profile map with TTL-based
// staleness, lazy eviction on reads, and a periodic sweep.
//
// The cache is never a source of truth. The backing user store is
// authoritative and entries are invalidated implicitly by TTL expiry, not by
// write-through on profile change; a profile edit elsewhere becomes visible
// to already-cached callers only after their entry expires. Reads and writes
// to the same entry may race; last-writer-wins is acceptable because every
// entry is an idempotent re-derivation of the same backing record.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/artisan-atelier/commission-backend/internal/domain"
)

// cacheEntry holds one resolved profile plus the instant it was stored.
type cacheEntry struct {
	user     domain.User
	cachedAt time.Time
}

// Cache is a TTL-bounded map from user ID to resolved profile. The zero
// value is not usable; construct with NewCache. Safe for concurrent use.
//
// The clock is injected so tests can drive expiry deterministically.
type Cache struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache constructs a Cache with the given TTL. A nil clock defaults to
// time.Now. TTL values <= 0 are coerced to a minute so a misconfigured cache
// degrades to short-lived entries rather than never-expiring ones.
func NewCache(ttl time.Duration, clock func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if clock == nil {
		clock = time.Now
	}
	return &Cache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached profile for id when present and fresh. A stale
// entry is evicted on the spot and reported as a miss.
func (c *Cache) Get(id string) (domain.User, bool) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return domain.User{}, false
	}
	if c.clock().Sub(e.cachedAt) >= c.ttl {
		// Lazy eviction; the sweep would get it eventually.
		c.mu.Lock()
		if cur, still := c.entries[id]; still && cur.cachedAt.Equal(e.cachedAt) {
			delete(c.entries, id)
		}
		c.mu.Unlock()
		return domain.User{}, false
	}
	return e.user, true
}

// Put stores (or refreshes) the profile for id, resetting its TTL window.
func (c *Cache) Put(id string, u domain.User) {
	now := c.clock()
	c.mu.Lock()
	c.entries[id] = cacheEntry{user: u, cachedAt: now}
	c.mu.Unlock()
}

// Len returns the number of entries currently held, stale ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes every entry older than the TTL and returns how many were
// evicted.
func (c *Cache) Sweep() int {
	now := c.clock()
	evicted := 0
	c.mu.Lock()
	for id, e := range c.entries {
		if now.Sub(e.cachedAt) >= c.ttl {
			delete(c.entries, id)
			evicted++
		}
	}
	c.mu.Unlock()
	return evicted
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled. It
// bounds memory when many distinct identities authenticate once and never
// return, which lazy eviction alone would not reclaim.
func (c *Cache) StartSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Sweep()
			}
		}
	}()
}
