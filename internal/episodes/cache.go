package episodes

import (
	"sync"
	"time"
)

type cacheEntry[T any] struct {
	val T
	exp time.Time
}

// Cache is a TTL map. Expired entries are dropped on read.
type Cache[T any] struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	m   map[string]cacheEntry[T]
}

func NewCache[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{ttl: ttl, now: time.Now, m: make(map[string]cacheEntry[T])}
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	ent, ok := c.m[key]
	if !ok {
		return zero, false
	}
	if c.now().After(ent.exp) {
		delete(c.m, key)
		return zero, false
	}
	return ent.val, true
}

func (c *Cache[T]) Set(key string, val T) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = cacheEntry[T]{val: val, exp: c.now().Add(c.ttl)}
}

func (c *Cache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.m)
}
