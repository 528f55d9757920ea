package cache

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is an in-memory, expiring cache of values of one type.
type Cache[T any] struct {
	items *gocache.Cache
}

// New creates a cache whose entries expire after ttl.
func New[T any](ttl, cleanupInterval time.Duration) *Cache[T] {
	return &Cache[T]{items: gocache.New(ttl, cleanupInterval)}
}

// Get retrieves a value from the cache.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	val, found := c.items.Get(key)
	if !found {
		return zero, false
	}
	v, ok := val.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Set stores a value with the default TTL.
func (c *Cache[T]) Set(key string, value T) {
	c.items.SetDefault(key, value)
}

// Flush removes every entry.
func (c *Cache[T]) Flush() {
	c.items.Flush()
}

// Len returns the number of entries, expired ones included until cleanup.
func (c *Cache[T]) Len() int {
	return c.items.ItemCount()
}

// GenerationKey names the entry computed for one store generation.
func GenerationKey(generation uint64) string {
	return fmt.Sprintf("datalens:v1:gen:%d", generation)
}
