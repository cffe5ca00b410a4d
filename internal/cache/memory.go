package cache

import (
	"context"
	"sync"
	"time"
)

// sweepInterval is how often the background sweeper evicts expired entries.
const sweepInterval = 5 * time.Minute

type memEntry struct {
	value    []byte
	deadline int64 // unix nanoseconds
}

// MemoryCache is an in-process TTL cache. It backs single-instance
// deployments and tests; replicas that must share entries use RedisCache.
//
// Safe for concurrent use. Expired entries are dropped lazily on read and
// swept in the background so the map does not grow without bound.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	done    chan struct{}
	once    sync.Once
}

// NewMemoryCache starts the sweeper; it stops when ctx is cancelled or Close
// is called.
func NewMemoryCache(ctx context.Context) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memEntry),
		done:    make(chan struct{}),
	}
	go c.sweep(ctx)
	return c
}

// Get returns the value for key, or (nil, false) on a miss or an expired
// entry. Expired entries encountered here are removed immediately.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	switch {
	case !ok:
		return nil, false
	case time.Now().UnixNano() > e.deadline:
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if cur, still := c.entries[key]; still && cur.deadline == e.deadline {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. A non-positive ttl falls back to DefaultTTL.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	e := memEntry{value: value, deadline: time.Now().Add(ttl).UnixNano()}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, counting expired ones the
// sweeper has not reached yet.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the sweeper. Safe to call more than once.
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *MemoryCache) sweep(ctx context.Context) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			now := time.Now().UnixNano()
			c.mu.Lock()
			for k, e := range c.entries {
				if now > e.deadline {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		case <-ctx.Done():
			return
		case <-c.done:
			return
		}
	}
}
