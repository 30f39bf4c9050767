package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/require"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

type recordingCache struct {
	mu          sync.Mutex
	invalidated []string
	prefixes    []string
	removed     []string
}

func (c *recordingCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, key)
}

func (c *recordingCache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefixes = append(c.prefixes, prefix)
}

func (c *recordingCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed = append(c.removed, key)
}

func (c *recordingCache) snapshot() ([]string, []string, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.invalidated...),
		append([]string(nil), c.prefixes...),
		append([]string(nil), c.removed...)
}

func TestNATSBus_PublishSubscribe(t *testing.T) {
	url := startTestNATS(t)
	bus, err := NewNATSBus(url)
	require.NoError(t, err)
	defer bus.Close()

	ch, cancel, err := bus.Subscribe(context.Background(), "portfolio.cache")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, bus.Publish(context.Background(), "portfolio.cache", Invalidation{Cache: CacheSettings, Keys: []string{"hero"}}))

	select {
	case data := <-ch:
		var inv Invalidation
		require.NoError(t, json.Unmarshal(data, &inv))
		require.Equal(t, []string{"hero"}, inv.Keys)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestNATSBus_CancelClosesChannel(t *testing.T) {
	url := startTestNATS(t)
	bus, err := NewNATSBus(url)
	require.NoError(t, err)
	defer bus.Close()

	ch, cancel, err := bus.Subscribe(context.Background(), "portfolio.cache")
	require.NoError(t, err)
	cancel()
	cancel()

	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestRelay_AppliesRemoteInvalidations(t *testing.T) {
	url := startTestNATS(t)

	busA, err := NewNATSBus(url)
	require.NoError(t, err)
	defer busA.Close()
	busB, err := NewNATSBus(url)
	require.NoError(t, err)
	defer busB.Close()

	cacheA := &recordingCache{}
	cacheB := &recordingCache{}
	relayA := NewRelay(busA, "portfolio.cache", map[string]Invalidator{CacheBlog: cacheA})
	relayB := NewRelay(busB, "portfolio.cache", map[string]Invalidator{CacheBlog: cacheB})
	require.NotEqual(t, relayA.Instance(), relayB.Instance())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relayA.Run(ctx)
	go relayB.Run(ctx)
	// let both subscriptions register
	time.Sleep(50 * time.Millisecond)

	err = relayA.Announce(ctx, Invalidation{
		Cache:    CacheBlog,
		Prefixes: []string{"blog-posts:"},
		Removed:  []string{"blog-post:42"},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, prefixes, removed := cacheB.snapshot()
		return len(prefixes) == 1 && len(removed) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, prefixes, removed := cacheB.snapshot()
	require.Equal(t, []string{"blog-posts:"}, prefixes)
	require.Equal(t, []string{"blog-post:42"}, removed)

	// the announcing instance ignores its own message
	invalidated, prefixes, removed := cacheA.snapshot()
	require.Empty(t, invalidated)
	require.Empty(t, prefixes)
	require.Empty(t, removed)
}

func TestRelay_ApplySkipsOwnAndUnknown(t *testing.T) {
	c := &recordingCache{}
	r := NewRelay(NoopBus{}, "t", map[string]Invalidator{CacheSettings: c})

	require.False(t, r.apply(Invalidation{Origin: r.Instance(), Cache: CacheSettings, Keys: []string{"hero"}}))
	require.False(t, r.apply(Invalidation{Origin: "other", Cache: "unknown", Keys: []string{"hero"}}))
	require.True(t, r.apply(Invalidation{Origin: "other", Cache: CacheSettings, Keys: []string{"hero", "all"}}))

	invalidated, _, _ := c.snapshot()
	require.Equal(t, []string{"hero", "all"}, invalidated)
}

func TestRelay_RunReturnsWhenNoopSubscriptionCloses(t *testing.T) {
	r := NewRelay(nil, "t", nil)
	require.NoError(t, r.Run(context.Background()))
	require.NoError(t, r.Announce(context.Background(), Invalidation{Cache: CacheBlog}))
}

func TestRelay_AttachRegistersTarget(t *testing.T) {
	r := NewRelay(NoopBus{}, "t", nil)
	require.False(t, r.apply(Invalidation{Origin: "other", Cache: CacheBlog, Removed: []string{"blog-post:1"}}))

	c := &recordingCache{}
	r.Attach(CacheBlog, c)
	require.True(t, r.apply(Invalidation{Origin: "other", Cache: CacheBlog, Removed: []string{"blog-post:1"}}))

	_, _, removed := c.snapshot()
	require.Equal(t, []string{"blog-post:1"}, removed)
}
