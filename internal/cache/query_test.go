package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portfolio-site-api/internal/apperrors"
)

var testPolicy = Policy{Fresh: 10 * time.Minute, Retain: time.Hour}

// countingFetch returns value and counts how often it was called.
func countingFetch(calls *atomic.Int32, value string) FetchFunc[string] {
	return func(context.Context) (string, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestQueryCache_FreshReadSkipsFetch(t *testing.T) {
	freezeClock(t)
	q := NewQueryCache[string]("test", testPolicy)
	var calls atomic.Int32

	first := q.Get(context.Background(), "hero", countingFetch(&calls, "v1"))
	second := q.Get(context.Background(), "hero", countingFetch(&calls, "v2"))

	require.Equal(t, int32(1), calls.Load())
	require.True(t, first.Found)
	require.False(t, first.Loading)
	require.Equal(t, "v1", second.Value)
	require.False(t, second.Loading)
}

func TestQueryCache_ConcurrentReadsShareOneFetch(t *testing.T) {
	q := NewQueryCache[string]("test", testPolicy)
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "v", nil
	}

	const readers = 20
	results := make([]Snapshot[string], readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = q.Get(context.Background(), "about", fetch)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, res := range results {
		require.NoError(t, res.Err)
		require.Equal(t, "v", res.Value)
	}
}

func TestQueryCache_StaleEntryServedWhileRefreshing(t *testing.T) {
	advance := freezeClock(t)
	q := NewQueryCache[string]("test", testPolicy)
	var calls atomic.Int32

	q.Get(context.Background(), "contact", countingFetch(&calls, "old"))
	advance(11 * time.Minute)

	snap := q.Get(context.Background(), "contact", countingFetch(&calls, "new"))
	require.Equal(t, "old", snap.Value)
	require.True(t, snap.Loading)

	require.Eventually(t, func() bool {
		return q.Peek("contact").Value == "new"
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, int32(2), calls.Load())
	require.True(t, q.Fresh("contact"))
}

func TestQueryCache_FailedFetchKeepsPriorValue(t *testing.T) {
	advance := freezeClock(t)
	q := NewQueryCache[string]("test", testPolicy)
	var calls atomic.Int32

	ok := q.Get(context.Background(), "theme", countingFetch(&calls, "v1"))
	fetchedAt := ok.FetchedAt
	advance(time.Minute)
	q.Invalidate("theme")

	failing := func(context.Context) (string, error) {
		calls.Add(1)
		return "", errors.New("connection refused")
	}
	snap := q.Get(context.Background(), "theme", failing)
	require.Equal(t, "v1", snap.Value)
	require.True(t, snap.Found)
	require.True(t, apperrors.Is(snap.Err, apperrors.KindRemoteRead))
	require.Equal(t, fetchedAt, snap.FetchedAt)

	// the next access retries rather than serving the failed state as fresh
	retry := q.Get(context.Background(), "theme", countingFetch(&calls, "v2"))
	require.Equal(t, "v2", retry.Value)
	require.NoError(t, retry.Err)
	require.Equal(t, int32(3), calls.Load())
}

func TestQueryCache_InvalidateThenReadReflectsWrite(t *testing.T) {
	freezeClock(t)
	q := NewQueryCache[string]("test", testPolicy)
	stored := "before"
	fetch := func(context.Context) (string, error) { return stored, nil }

	require.Equal(t, "before", q.Get(context.Background(), "hero", fetch).Value)

	stored = "after"
	require.Equal(t, "before", q.Get(context.Background(), "hero", fetch).Value)

	q.Invalidate("hero")
	snap := q.Get(context.Background(), "hero", fetch)
	require.Equal(t, "after", snap.Value)
	require.False(t, snap.Loading)
}

func TestQueryCache_InvalidationDuringFetchDropsOlderResult(t *testing.T) {
	q := NewQueryCache[string]("test", testPolicy)
	release := make(chan struct{})
	slow := func(context.Context) (string, error) {
		<-release
		return "pre-write", nil
	}

	done := make(chan Snapshot[string], 1)
	go func() { done <- q.Get(context.Background(), "posts", slow) }()
	time.Sleep(20 * time.Millisecond)

	q.Invalidate("posts")
	close(release)
	res := <-done
	require.Equal(t, "pre-write", res.Value)
	require.False(t, q.Peek("posts").Found)

	snap := q.Get(context.Background(), "posts", func(context.Context) (string, error) {
		return "post-write", nil
	})
	require.Equal(t, "post-write", snap.Value)
}

func TestQueryCache_RetentionEviction(t *testing.T) {
	advance := freezeClock(t)
	q := NewQueryCache[string]("test", testPolicy)
	var calls atomic.Int32

	q.Get(context.Background(), "social", countingFetch(&calls, "v"))
	advance(61 * time.Minute)

	require.False(t, q.Peek("social").Found)
	require.Equal(t, 1, q.PurgeExpired())
	require.Equal(t, 0, q.Len())

	snap := q.Get(context.Background(), "social", countingFetch(&calls, "v"))
	require.False(t, snap.Loading)
	require.Equal(t, int32(2), calls.Load())
}

func TestQueryCache_CancelledCallerDoesNotAbortFetch(t *testing.T) {
	q := NewQueryCache[string]("test", testPolicy)
	release := make(chan struct{})
	var fetchCtxErr atomic.Value
	fetch := func(ctx context.Context) (string, error) {
		<-release
		fetchCtxErr.Store(ctx.Err() == nil)
		return "late", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Snapshot[string], 1)
	go func() { done <- q.Get(ctx, "hero", fetch) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	snap := <-done
	require.ErrorIs(t, snap.Err, context.Canceled)
	require.True(t, snap.Loading)

	close(release)
	require.Eventually(t, func() bool {
		return q.Peek("hero").Value == "late"
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, true, fetchCtxErr.Load())
}

func TestQueryCache_InvalidatePrefix(t *testing.T) {
	freezeClock(t)
	q := NewQueryCache[string]("test", testPolicy)
	fetch := func(context.Context) (string, error) { return "v", nil }
	q.Get(context.Background(), "blog-posts:true", fetch)
	q.Get(context.Background(), "blog-posts:false", fetch)
	q.Get(context.Background(), "blog-post:1", fetch)

	q.InvalidatePrefix("blog-posts:")

	require.False(t, q.Fresh("blog-posts:true"))
	require.False(t, q.Fresh("blog-posts:false"))
	require.True(t, q.Fresh("blog-post:1"))
}

func TestQueryCache_SubscribeReceivesEvents(t *testing.T) {
	q := NewQueryCache[string]("settings", testPolicy)
	events, cancel := q.Subscribe()
	defer cancel()

	q.Set("hero", "v")
	q.Invalidate("hero")
	q.Remove("hero")

	var got []Event
	for i := 0; i < 3; i++ {
		select {
		case evt := <-events:
			got = append(got, evt)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
	require.Equal(t, []Event{
		{Cache: "settings", Kind: EventUpdated, Key: "hero"},
		{Cache: "settings", Kind: EventInvalidated, Key: "hero"},
		{Cache: "settings", Kind: EventRemoved, Key: "hero"},
	}, got)

	cancel()
	_, open := <-events
	require.False(t, open)
}

func TestQueryCache_SetIfUnchangedSkipsAfterInvalidation(t *testing.T) {
	freezeClock(t)
	q := NewQueryCache[string]("test", testPolicy)

	mark := q.Mark()
	require.True(t, q.SetIfUnchanged("hero", "v1", mark))
	require.True(t, q.Fresh("hero"))

	mark = q.Mark()
	q.Invalidate("about")
	require.False(t, q.SetIfUnchanged("hero", "stale", mark))
	require.Equal(t, "v1", q.Peek("hero").Value)

	mark = q.Mark()
	q.Remove("hero")
	require.False(t, q.SetIfUnchanged("hero", "stale", mark))
	require.False(t, q.Peek("hero").Found)
}
