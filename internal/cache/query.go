package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"portfolio-site-api/internal/apperrors"
	"portfolio-site-api/internal/metrics"
)

// Policy holds the two windows of a query cache.
// Fresh: how long an entry is served without a remote call.
// Retain: how long after the last successful fetch an entry stays in memory.
type Policy struct {
	Fresh  time.Duration
	Retain time.Duration
}

// EventKind describes a change to a cache entry.
type EventKind string

const (
	EventInvalidated EventKind = "invalidated"
	EventUpdated     EventKind = "updated"
	EventRemoved     EventKind = "removed"
)

// Event is published to subscribers whenever an entry changes.
type Event struct {
	Cache string    `json:"cache"`
	Kind  EventKind `json:"kind"`
	Key   string    `json:"key"`
}

// Snapshot is a read-only view of an entry at the time of the call.
type Snapshot[V any] struct {
	Value     V
	Found     bool
	Loading   bool
	Err       error
	FetchedAt time.Time
}

// FetchFunc loads the current value of a key from the store.
type FetchFunc[V any] func(ctx context.Context) (V, error)

type queryEntry[V any] struct {
	value       V
	hasValue    bool
	fetchedAt   time.Time
	err         error
	invalidated bool
	// changes on every invalidation so that fetches started earlier
	// cannot store their result as fresh
	generation uint64
}

func (e *queryEntry[V]) snapshot(loading bool) Snapshot[V] {
	return Snapshot[V]{
		Value:     e.value,
		Found:     e.hasValue,
		Loading:   loading,
		Err:       e.err,
		FetchedAt: e.fetchedAt,
	}
}

// QueryCache is a read-through cache keyed by string with stale-while-revalidate
// reads, request coalescing and invalidation. Safe for concurrent use.
type QueryCache[V any] struct {
	name   string
	policy Policy

	mu      sync.Mutex
	entries *SimpleCache[string, *queryEntry[V]]
	seq     uint64
	flights singleflight.Group

	// counts invalidations and removals; see Mark
	invalidations uint64

	subsMu  sync.RWMutex
	subs    map[int]chan Event
	nextSub int
}

// NewQueryCache creates an empty cache. The name labels metrics and events.
func NewQueryCache[V any](name string, policy Policy) *QueryCache[V] {
	return &QueryCache[V]{
		name:    name,
		policy:  policy,
		entries: NewSimpleCache[string, *queryEntry[V]](Options{ConcurrencySafe: false}),
		subs:    make(map[int]chan Event),
	}
}

// Name returns the cache name.
func (q *QueryCache[V]) Name() string { return q.name }

// Policy returns the windows the cache was built with.
func (q *QueryCache[V]) Policy() Policy { return q.policy }

func (q *QueryCache[V]) nextGeneration() uint64 {
	q.seq++
	return q.seq
}

func (q *QueryCache[V]) fresh(e *queryEntry[V]) bool {
	return e.hasValue && !e.invalidated && now().Sub(e.fetchedAt) < q.policy.Fresh
}

// Get returns the entry for key, fetching it when needed.
//
// A fresh entry is returned without calling fetch. A stale entry is returned
// immediately with Loading set while a refresh runs in the background. A
// missing or invalidated entry makes the caller wait for the fetch. All
// concurrent callers for the same key share one fetch. When ctx ends first the
// caller gets ctx.Err and the fetch keeps running; its result still lands in
// the cache.
func (q *QueryCache[V]) Get(ctx context.Context, key string, fetch FetchFunc[V]) Snapshot[V] {
	q.mu.Lock()
	e, ok := q.entries.Get(key)
	if ok && q.fresh(e) {
		snap := e.snapshot(false)
		q.mu.Unlock()
		metrics.CacheReads.WithLabelValues(q.name, "hit").Inc()
		return snap
	}
	if !ok {
		e = &queryEntry[V]{generation: q.nextGeneration()}
		q.entries.Set(key, e, q.policy.Retain)
	}
	gen := e.generation
	fetchCtx := context.WithoutCancel(ctx)
	ch := q.flights.DoChan(flightKey(key, gen), func() (any, error) {
		return q.runFetch(fetchCtx, key, e, gen, fetch), nil
	})

	if e.hasValue && !e.invalidated {
		snap := e.snapshot(true)
		q.mu.Unlock()
		metrics.CacheReads.WithLabelValues(q.name, "stale").Inc()
		return snap
	}
	prior := e.snapshot(true)
	q.mu.Unlock()
	metrics.CacheReads.WithLabelValues(q.name, "miss").Inc()

	select {
	case res := <-ch:
		return res.Val.(Snapshot[V])
	case <-ctx.Done():
		prior.Err = ctx.Err()
		return prior
	}
}

func (q *QueryCache[V]) runFetch(ctx context.Context, key string, e *queryEntry[V], gen uint64, fetch FetchFunc[V]) Snapshot[V] {
	value, err := fetch(ctx)

	q.mu.Lock()
	defer q.mu.Unlock()

	current, ok := q.entries.Get(key)
	stillCurrent := ok && current == e && e.generation == gen

	if err != nil {
		metrics.CacheFetches.WithLabelValues(q.name, "error").Inc()
		readErr := apperrors.RemoteRead(err)
		if !stillCurrent {
			return Snapshot[V]{Err: readErr}
		}
		// keep the prior value and its timestamp; the next access retries
		e.err = readErr
		return e.snapshot(false)
	}

	metrics.CacheFetches.WithLabelValues(q.name, "ok").Inc()
	fetchedAt := now()
	if !stillCurrent {
		return Snapshot[V]{Value: value, Found: true, FetchedAt: fetchedAt}
	}
	e.value = value
	e.hasValue = true
	e.fetchedAt = fetchedAt
	e.err = nil
	e.invalidated = false
	q.entries.Set(key, e, q.policy.Retain)
	q.publish(Event{Cache: q.name, Kind: EventUpdated, Key: key})
	return e.snapshot(false)
}

// Peek returns the current entry without fetching.
func (q *QueryCache[V]) Peek(key string) Snapshot[V] {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries.Get(key)
	if !ok {
		return Snapshot[V]{}
	}
	return e.snapshot(false)
}

// Fresh reports whether key holds a value inside its freshness window.
func (q *QueryCache[V]) Fresh(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries.Get(key)
	return ok && q.fresh(e)
}

// Set seeds key with a value fetched elsewhere, stamped as fresh now.
func (q *QueryCache[V]) Set(key string, value V) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.setLocked(key, value)
}

func (q *QueryCache[V]) setLocked(key string, value V) {
	e := &queryEntry[V]{
		value:      value,
		hasValue:   true,
		fetchedAt:  now(),
		generation: q.nextGeneration(),
	}
	q.entries.Set(key, e, q.policy.Retain)
	q.publish(Event{Cache: q.name, Kind: EventUpdated, Key: key})
}

// Mark returns a token that SetIfUnchanged compares against. Take it before
// reading the values to seed.
func (q *QueryCache[V]) Mark() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.invalidations
}

// SetIfUnchanged behaves like Set unless any key was invalidated or removed
// since mark was taken, in which case it stores nothing and returns false.
func (q *QueryCache[V]) SetIfUnchanged(key string, value V, mark uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.invalidations != mark {
		return false
	}
	q.setLocked(key, value)
	return true
}

// Invalidate marks key as needing a refetch. The next Get waits for fresh
// data instead of serving the old value.
func (q *QueryCache[V]) Invalidate(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.invalidateLocked(key)
}

// InvalidatePrefix invalidates every retained key starting with prefix.
func (q *QueryCache[V]) InvalidatePrefix(prefix string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, key := range q.entries.Keys() {
		if strings.HasPrefix(key, prefix) {
			q.invalidateLocked(key)
		}
	}
}

func (q *QueryCache[V]) invalidateLocked(key string) {
	q.invalidations++
	if e, ok := q.entries.Get(key); ok {
		e.invalidated = true
		e.generation = q.nextGeneration()
	}
	q.publish(Event{Cache: q.name, Kind: EventInvalidated, Key: key})
}

// Remove drops key entirely.
func (q *QueryCache[V]) Remove(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.invalidations++
	q.entries.Delete(key)
	q.publish(Event{Cache: q.name, Kind: EventRemoved, Key: key})
}

// PurgeExpired drops entries past the retention window.
func (q *QueryCache[V]) PurgeExpired() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := q.entries.PurgeExpired()
	if n > 0 {
		metrics.CacheEvictions.WithLabelValues(q.name).Add(float64(n))
	}
	return n
}

// Len returns the number of retained entries.
func (q *QueryCache[V]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.entries.Len()
}

// Subscribe returns a channel of entry changes. Slow subscribers miss events
// rather than block the cache. Call cancel to unsubscribe.
func (q *QueryCache[V]) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	q.subsMu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = ch
	q.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			q.subsMu.Lock()
			delete(q.subs, id)
			q.subsMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (q *QueryCache[V]) publish(evt Event) {
	q.subsMu.RLock()
	defer q.subsMu.RUnlock()
	for _, ch := range q.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func flightKey(key string, gen uint64) string {
	return fmt.Sprintf("%s#%d", key, gen)
}
