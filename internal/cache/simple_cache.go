package cache

import (
	"sync"
	"time"
)

// entry stores a cached value and its absolute eviction time.
type entry[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiration
}

func (e entry[V]) expired(at time.Time) bool {
	return !e.expiresAt.IsZero() && at.After(e.expiresAt)
}

// SimpleCache is a map-backed cache with optional locking.
// Expired entries are hidden from reads and removed lazily or by PurgeExpired.
type SimpleCache[K comparable, V any] struct {
	// nil when the owner already serializes access
	mu *sync.RWMutex

	items map[K]entry[V]
}

// Options controls construction of a SimpleCache.
type Options struct {
	// ConcurrencySafe guards every operation with a RWMutex. Leave it off when
	// the cache is only touched under a lock held by its owner.
	ConcurrencySafe bool
}

// NewSimpleCache constructs a SimpleCache.
func NewSimpleCache[K comparable, V any](opts Options) *SimpleCache[K, V] {
	var mu *sync.RWMutex
	if opts.ConcurrencySafe {
		mu = &sync.RWMutex{}
	}
	return &SimpleCache[K, V]{
		mu:    mu,
		items: make(map[K]entry[V]),
	}
}

func (c *SimpleCache[K, V]) lockR() func() {
	if c.mu == nil {
		return func() {}
	}
	c.mu.RLock()
	return c.mu.RUnlock
}

func (c *SimpleCache[K, V]) lockW() func() {
	if c.mu == nil {
		return func() {}
	}
	c.mu.Lock()
	return c.mu.Unlock
}

// now is swapped by tests to freeze the clock.
var now = time.Now

func (c *SimpleCache[K, V]) Get(key K) (V, bool) {
	unlock := c.lockR()
	defer unlock()

	var zero V
	e, ok := c.items[key]
	if !ok || e.expired(now()) {
		return zero, false
	}
	return e.value, true
}

func (c *SimpleCache[K, V]) Set(key K, value V, ttl time.Duration) {
	unlock := c.lockW()
	defer unlock()

	var exp time.Time
	if ttl > 0 {
		exp = now().Add(ttl)
	}
	c.items[key] = entry[V]{value: value, expiresAt: exp}
}

func (c *SimpleCache[K, V]) Delete(key K) {
	unlock := c.lockW()
	defer unlock()
	delete(c.items, key)
}

func (c *SimpleCache[K, V]) Keys() []K {
	unlock := c.lockR()
	defer unlock()

	at := now()
	keys := make([]K, 0, len(c.items))
	for k, e := range c.items {
		if !e.expired(at) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Len counts only retained entries.
func (c *SimpleCache[K, V]) Len() int {
	unlock := c.lockR()
	defer unlock()

	at := now()
	count := 0
	for _, e := range c.items {
		if !e.expired(at) {
			count++
		}
	}
	return count
}

func (c *SimpleCache[K, V]) Clear() {
	unlock := c.lockW()
	defer unlock()
	c.items = make(map[K]entry[V])
}

func (c *SimpleCache[K, V]) PurgeExpired() int {
	unlock := c.lockW()
	defer unlock()

	at := now()
	purged := 0
	for k, e := range c.items {
		if e.expired(at) {
			delete(c.items, k)
			purged++
		}
	}
	return purged
}

var _ Cache[any, any] = (*SimpleCache[any, any])(nil)
