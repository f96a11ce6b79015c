package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	v   []byte
	exp time.Time
}

// TTLCache is the in-process tier.
type TTLCache struct {
	mu         sync.RWMutex
	m          map[string]entry
	now        Clock
	maxEntries int
}

// TTLOption configures TTLCache.
type TTLOption func(*TTLCache)

// WithClock replaces time.Now.
func WithClock(now Clock) TTLOption {
	return func(c *TTLCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMaxEntries bounds the map; expired entries are swept first, then an
// arbitrary entry is evicted.
func WithMaxEntries(n int) TTLOption {
	return func(c *TTLCache) {
		c.maxEntries = n
	}
}

func NewTTLCache(opts ...TTLOption) *TTLCache {
	c := &TTLCache{m: make(map[string]entry), now: time.Now, maxEntries: 10000}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TTLCache) GetBytes(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrCacheMiss
	}
	if c.expired(e) {
		c.mu.Lock()
		if cur, ok := c.m[key]; ok && c.expired(cur) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return e.v, nil
}

// SetBytes stores value. A non-positive ttl never expires.
func (c *TTLCache) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; !exists && c.maxEntries > 0 && len(c.m) >= c.maxEntries {
		c.evictLocked()
	}
	c.m[key] = entry{v: value, exp: exp}
	return nil
}

func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *TTLCache) expired(e entry) bool {
	return !e.exp.IsZero() && c.now().After(e.exp)
}

func (c *TTLCache) evictLocked() {
	for k, e := range c.m {
		if c.expired(e) {
			delete(c.m, k)
		}
	}
	if len(c.m) < c.maxEntries {
		return
	}
	for k := range c.m {
		delete(c.m, k)
		return
	}
}
