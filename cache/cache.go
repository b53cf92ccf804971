// Package cache provides a small in-process expiring key/value store used to
// memoize session and user lookups per request. It is never the source of
// truth: every cached value must be reproducible by re-fetching from durable
// storage.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCapacity bounds a cache constructed with capacity <= 0.
const DefaultCapacity = 4096

type entry[V any] struct {
	key      string
	value    V
	expireAt time.Time
	elem     *list.Element
}

// Cache is a bounded TTL cache with least-recently-used eviction. Expiry is
// lazy: an expired entry is dropped on the next read, not by a background
// sweeper.
type Cache[V any] struct {
	mu       sync.Mutex
	entries  map[string]*entry[V]
	order    *list.List // front = most recently used
	capacity int
}

func New[V any](capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[V]{
		entries:  make(map[string]*entry[V]),
		order:    list.New(),
		capacity: capacity,
	}
}

// Get returns the live value for key. The second result is false when the
// key is absent or its entry has expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if e.expireAt.Before(time.Now()) {
		c.remove(e)
		return zero, false
	}
	c.order.MoveToFront(e.elem)
	return e.value, true
}

// Set stores value under key with a fresh ttl, evicting the least recently
// used entry when the cache is full.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value, ttl)
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.remove(e)
	}
}

// Wrap returns the live cached value for key, or invokes compute, stores the
// result with a fresh ttl and returns it. Wrap is not exclusive: two
// concurrent misses may both run compute and both store, which is fine as
// long as compute is a pure re-fetch with no side effects.
func (c *Cache[V]) Wrap(key string, compute func() (V, error), ttl time.Duration) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// Reset drops every entry.
func (c *Cache[V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
	c.order.Init()
}

// Len reports the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) set(key string, value V, ttl time.Duration) {
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expireAt = time.Now().Add(ttl)
		c.order.MoveToFront(e.elem)
		return
	}
	for len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*entry[V]))
	}
	e := &entry[V]{key: key, value: value, expireAt: time.Now().Add(ttl)}
	e.elem = c.order.PushFront(e)
	c.entries[key] = e
}

func (c *Cache[V]) remove(e *entry[V]) {
	c.order.Remove(e.elem)
	delete(c.entries, e.key)
}
