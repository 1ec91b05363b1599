package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL applies to entries stored with Set.
const DefaultTTL = 60 * time.Second

// entry stores a cached value with its expiry.
type entry struct {
	expiresAt time.Time
	value     any
}

// Cache is a TTL keyed store shared by concurrent requests.
// Expiry is checked on read; Sweep only reclaims memory.
type Cache struct {
	ttl      time.Duration
	maxItems int
	now      func() time.Time

	mu    sync.RWMutex
	items map[string]entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxItems caps the number of stored entries. 0 means unbounded.
func WithMaxItems(n int) Option {
	return func(c *Cache) { c.maxItems = n }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		ttl:   DefaultTTL,
		now:   time.Now,
		items: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds a namespaced cache key so different data kinds never collide.
func Key(symbol, kind, granularity string) string {
	return strings.Join([]string{kind, strings.ToLower(symbol), granularity}, ":")
}

// TTL returns the default time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the value for key while it is fresh. An expired entry is
// removed on the way out.
func (c *Cache) Get(key string) (any, bool) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if now.Before(e.expiresAt) {
		return e.value, true
	}

	c.mu.Lock()
	// a concurrent Set may have refreshed it in between
	if cur, ok := c.items[key]; ok && !now.Before(cur.expiresAt) {
		delete(c.items, key)
	}
	c.mu.Unlock()
	return nil, false
}

// Set stores value with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value with an explicit TTL. A non-positive ttl uses the default.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{expiresAt: now.Add(ttl), value: value}

	// best-effort cap: expired first, then arbitrary
	if c.maxItems > 0 && len(c.items) > c.maxItems {
		for k, v := range c.items {
			if len(c.items) <= c.maxItems {
				break
			}
			if k != key && !now.Before(v.expiresAt) {
				delete(c.items, k)
			}
		}
		for k := range c.items {
			if len(c.items) <= c.maxItems {
				break
			}
			if k != key {
				delete(c.items, k)
			}
		}
	}
}

// ExpiresAt reports when key expires, regardless of freshness.
func (c *Cache) ExpiresAt(key string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	return e.expiresAt, ok
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Sweep drops every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// Lookup is a typed Get. A value of another type counts as a miss.
func Lookup[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
