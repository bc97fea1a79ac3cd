// Package cache provides caching utilities for the MCP server.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a thread-safe, size-bounded cache. The least recently used item
// is evicted when a new key would exceed the capacity.
type LRU[K comparable, V any] struct {
	cache *lru.Cache[K, V]
}

// NewLRU creates a cache holding at most maxItems. onEvict, when non-nil,
// is called for every evicted or removed item.
func NewLRU[K comparable, V any](maxItems int, onEvict func(K, V)) (*LRU[K, V], error) {
	c, err := lru.NewWithEvict[K, V](maxItems, onEvict)
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{cache: c}, nil
}

// Get retrieves an item and marks it as recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	return c.cache.Get(key)
}

// Peek retrieves an item without updating its recency.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	return c.cache.Peek(key)
}

// Put adds or updates an item. It reports whether an eviction occurred.
func (c *LRU[K, V]) Put(key K, value V) bool {
	return c.cache.Add(key, value)
}

// Remove deletes key, reporting whether it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	return c.cache.Remove(key)
}

// Keys returns the keys from oldest to newest.
func (c *LRU[K, V]) Keys() []K {
	return c.cache.Keys()
}

// Len returns the current number of items in the cache.
func (c *LRU[K, V]) Len() int {
	return c.cache.Len()
}
