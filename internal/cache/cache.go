// Package cache provides a small TTL-bounded key/value cache shared by the
// embedding adapter, the retrieval engines, and the session preference layer.
// The cache is best-effort: a miss only costs a recompute.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	expiresAt time.Time
	value     any
}

// TTL is a capacity-bounded map with per-entry expiry. When full it evicts
// the single entry closest to expiry, not a global LRU.
type TTL struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	data     map[string]entry
	now      func() time.Time
}

// New creates a TTL cache. Capacity must be positive.
func New(ttl time.Duration, capacity int) *TTL {
	return &TTL{
		ttl:      ttl,
		capacity: capacity,
		data:     make(map[string]entry),
		now:      time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (c *TTL) WithClock(now func() time.Time) *TTL {
	c.now = now
	return c
}

// Get returns the cached value, or nil and false for a miss. Expired entries
// are removed on access and never returned.
func (c *TTL) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return nil, false
	}
	if e.expiresAt.Before(c.now()) {
		delete(c.data, key)
		return nil, false
	}
	return e.value, true
}

// Set stores a value under key. At capacity the oldest-expiring entry is
// evicted first.
func (c *TTL) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && len(c.data) >= c.capacity {
		var oldestKey string
		var oldestExp time.Time
		first := true
		for k, e := range c.data {
			if first || e.expiresAt.Before(oldestExp) {
				oldestKey = k
				oldestExp = e.expiresAt
				first = false
			}
		}
		if !first {
			delete(c.data, oldestKey)
		}
	}
	c.data[key] = entry{expiresAt: c.now().Add(c.ttl), value: value}
}

// Len reports the number of stored entries, expired or not.
func (c *TTL) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
