// Package events fans cache invalidations out to other replicas of the API so
// that a mutation handled by one instance does not leave the others serving
// stale sections or blog lists.
package events

import "context"

// Bus publishes and receives raw event payloads on a topic.
type Bus interface {
	Publish(ctx context.Context, topic string, event any) error
	// Subscribe returns a channel of payloads and a cancel function that
	// unsubscribes and closes the channel.
	Subscribe(ctx context.Context, topic string) (<-chan []byte, func(), error)
	Close() error
}

// Cache names carried in invalidation messages.
const (
	CacheSettings = "settings"
	CacheBlog     = "blog"
)

// Invalidation describes cache entries to drop on every replica.
type Invalidation struct {
	Origin   string   `json:"origin"`
	Cache    string   `json:"cache"`
	Keys     []string `json:"keys,omitempty"`
	Prefixes []string `json:"prefixes,omitempty"`
	Removed  []string `json:"removed,omitempty"`
}
