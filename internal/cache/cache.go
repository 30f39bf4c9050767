package cache

import "time"

// Cache is a key-value store with an optional retention TTL per entry.
// Implementations may or may not be goroutine-safe depending on configuration.
type Cache[K comparable, V any] interface {
	// Get returns the value and whether it was present and still retained.
	Get(key K) (V, bool)

	// Set stores the value; ttl <= 0 keeps it until deleted.
	Set(key K, value V, ttl time.Duration)

	Delete(key K)

	// Keys lists retained keys in no particular order.
	Keys() []K

	Len() int

	Clear()

	// PurgeExpired drops entries past their TTL and reports how many were dropped.
	PurgeExpired() int
}
