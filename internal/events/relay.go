package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portfolio-site-api/internal/logger"
)

// Invalidator is the part of a query cache the relay drives.
type Invalidator interface {
	Invalidate(key string)
	InvalidatePrefix(prefix string)
	Remove(key string)
}

// Relay announces local invalidations on the bus and applies invalidations
// announced by other instances to the local caches.
type Relay struct {
	bus      Bus
	topic    string
	instance string
	targets  map[string]Invalidator
	log      *zap.Logger
}

// NewRelay creates a relay with a fresh instance id. targets maps a cache name
// (CacheSettings, CacheBlog) to the cache receiving remote invalidations.
func NewRelay(bus Bus, topic string, targets map[string]Invalidator) *Relay {
	if bus == nil {
		bus = NoopBus{}
	}
	if targets == nil {
		targets = make(map[string]Invalidator)
	}
	return &Relay{
		bus:      bus,
		topic:    topic,
		instance: uuid.NewString(),
		targets:  targets,
		log:      logger.WithModule("events"),
	}
}

// Attach registers the local target of a cache name. Call before Run.
func (r *Relay) Attach(cache string, target Invalidator) {
	r.targets[cache] = target
}

func (r *Relay) Instance() string {
	return r.instance
}

// Announce publishes inv tagged with this instance id.
func (r *Relay) Announce(ctx context.Context, inv Invalidation) error {
	inv.Origin = r.instance
	if err := r.bus.Publish(ctx, r.topic, inv); err != nil {
		return fmt.Errorf("publishing invalidation: %w", err)
	}
	return nil
}

// Run applies remote invalidations until ctx is done or the subscription
// closes.
func (r *Relay) Run(ctx context.Context) error {
	msgs, cancel, err := r.bus.Subscribe(ctx, r.topic)
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-msgs:
			if !ok {
				return nil
			}
			var inv Invalidation
			if err := json.Unmarshal(data, &inv); err != nil {
				r.log.Warn("dropping malformed invalidation", zap.Error(err))
				continue
			}
			r.apply(inv)
		}
	}
}

// apply reports whether inv was applied to a local cache.
func (r *Relay) apply(inv Invalidation) bool {
	if inv.Origin == r.instance {
		return false
	}
	target, ok := r.targets[inv.Cache]
	if !ok {
		r.log.Debug("invalidation for unknown cache", zap.String("cache", inv.Cache))
		return false
	}
	for _, key := range inv.Keys {
		target.Invalidate(key)
	}
	for _, prefix := range inv.Prefixes {
		target.InvalidatePrefix(prefix)
	}
	for _, key := range inv.Removed {
		target.Remove(key)
	}
	r.log.Debug("applied remote invalidation",
		zap.String("cache", inv.Cache),
		zap.String("origin", inv.Origin),
	)
	return true
}
