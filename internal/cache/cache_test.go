package cache

import (
	"fmt"
	"testing"
	"time"
)

// fakeClock is an adjustable time source for expiry tests.
type fakeClock struct {
	current time.Time
}

func (f *fakeClock) now() time.Time { return f.current }

func (f *fakeClock) advance(d time.Duration) { f.current = f.current.Add(d) }

func TestTTL_GetSet(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(time.Minute, 10).WithClock(clock.now)

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache should miss")
	}

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Errorf("Get(k) = %v, %v; want v, true", got, ok)
	}
}

func TestTTL_Expiry(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(time.Minute, 10).WithClock(clock.now)

	c.Set("k", 42)

	clock.advance(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Error("entry expired before its TTL")
	}

	clock.advance(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("entry survived past its TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not removed on access, len = %d", c.Len())
	}
}

func TestTTL_EvictsOldestExpiringAtCapacity(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(time.Minute, 3).WithClock(clock.now)

	// a expires first, then b, then c.
	c.Set("a", 1)
	clock.advance(time.Second)
	c.Set("b", 2)
	clock.advance(time.Second)
	c.Set("c", 3)
	clock.advance(time.Second)

	c.Set("d", 4)

	if _, ok := c.Get("a"); ok {
		t.Error("oldest-expiring entry should have been evicted")
	}
	for _, key := range []string{"b", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("entry %q evicted unexpectedly", key)
		}
	}
	if c.Len() != 3 {
		t.Errorf("len = %d, want 3", c.Len())
	}
}

func TestTTL_OverwriteDoesNotEvict(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(time.Minute, 2).WithClock(clock.now)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3) // overwrite at capacity

	if c.Len() != 2 {
		t.Errorf("len = %d, want 2", c.Len())
	}
	got, _ := c.Get("a")
	if got != 3 {
		t.Errorf("Get(a) = %v, want 3", got)
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("overwrite must not evict another entry")
	}
}

func TestTTL_ConcurrentAccess(t *testing.T) {
	c := New(time.Minute, 100)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%50)
				c.Set(key, n)
				c.Get(key)
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
