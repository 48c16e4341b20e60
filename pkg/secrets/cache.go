package secrets

import (
	"sync"
	"time"
)

type cacheItem[T any] struct {
	value      T
	expiration time.Time
}

// Cache is a thread-safe TTL cache keyed by secret name.
type Cache[T any] struct {
	mu   sync.RWMutex
	data map[string]cacheItem[T]
	ttl  time.Duration
	now  func() time.Time
}

// NewCache creates a new TTL-based in-memory cache.
func NewCache[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		data: make(map[string]cacheItem[T]),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get returns a cached value if present and not expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	item, ok := c.data[key]
	c.mu.RUnlock()
	if ok && c.now().Before(item.expiration) {
		return item.value, true
	}
	if ok {
		c.Bust(key)
	}
	var zero T
	return zero, false
}

// Put inserts or overwrites a cache entry with TTL.
func (c *Cache[T]) Put(key string, value T) {
	c.mu.Lock()
	c.data[key] = cacheItem[T]{value: value, expiration: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Bust deletes a single entry, e.g. on secret rotation.
func (c *Cache[T]) Bust(key string) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
