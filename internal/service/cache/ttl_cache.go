package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	v      V
	stored time.Time
}

// TTLCache is a keyed map with timestamps. Expired entries are evicted when
// read; when the map is full the oldest entry makes room. Concurrent writers
// to one key resolve last-writer-wins.
type TTLCache[V any] struct {
	mu         sync.Mutex
	m          map[string]entry[V]
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func NewTTLCache[V any](ttl time.Duration, maxEntries int, now func() time.Time) *TTLCache[V] {
	if now == nil {
		now = time.Now
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &TTLCache[V]{m: make(map[string]entry[V]), ttl: ttl, maxEntries: maxEntries, now: now}
}

func (c *TTLCache[V]) Get(_ context.Context, key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(e) {
		delete(c.m, key)
		var zero V
		return zero, false
	}
	return e.v, true
}

func (c *TTLCache[V]) Set(_ context.Context, key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; !exists && len(c.m) >= c.maxEntries {
		c.evictOldest()
	}
	c.m[key] = entry[V]{v: v, stored: c.now()}
}

func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

func (c *TTLCache[V]) expired(e entry[V]) bool {
	return c.ttl > 0 && c.now().Sub(e.stored) >= c.ttl
}

// evictOldest drops expired entries, or the single oldest one if none are.
func (c *TTLCache[V]) evictOldest() {
	var oldestKey string
	var oldest time.Time
	dropped := false
	for k, e := range c.m {
		if c.expired(e) {
			delete(c.m, k)
			dropped = true
			continue
		}
		if oldestKey == "" || e.stored.Before(oldest) {
			oldestKey, oldest = k, e.stored
		}
	}
	if !dropped && oldestKey != "" {
		delete(c.m, oldestKey)
	}
}
