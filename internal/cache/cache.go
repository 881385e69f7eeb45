// Package cache provides a typed in-memory store with optional expiry,
// backed by patrickmn/go-cache.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// NoExpiration keeps entries until they are overwritten.
const NoExpiration time.Duration = 0

// Cache is a string-keyed store of V values.
type Cache[V any] struct {
	store *gocache.Cache
}

// New creates a cache. A defaultTTL of NoExpiration keeps entries forever;
// cleanupInterval controls how often expired entries are purged (0 disables purging).
func New[V any](defaultTTL, cleanupInterval time.Duration) *Cache[V] {
	if defaultTTL <= 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &Cache[V]{store: gocache.New(defaultTTL, cleanupInterval)}
}

// Get retrieves a value. Expired entries are reported as missing.
func (c *Cache[V]) Get(key string) (V, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	typed, ok := v.(V)
	return typed, ok
}

// Set stores a value with the default TTL, replacing any prior entry.
func (c *Cache[V]) Set(key string, value V) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}
