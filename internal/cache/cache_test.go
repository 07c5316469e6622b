package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache[string], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC)}
	c := newCache[string](ttl, time.Hour, clock.Now)
	t.Cleanup(c.Close)
	return c, clock
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	c.Set("claude", "snapshot")
	got, ok := c.Get("claude")
	require.True(t, ok)
	assert.Equal(t, "snapshot", got)

	_, ok = c.Get("gemini")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)
	c.Set("claude", "snapshot")

	clock.Advance(59 * time.Second)
	_, ok := c.Get("claude")
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = c.Get("claude")
	assert.False(t, ok)
	assert.Empty(t, c.Items())

	c.evictExpired()
	assert.Equal(t, 0, c.Len())
}

func TestCache_ItemsDeleteClear(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, c.Items())

	c.Delete("a")
	assert.Equal(t, map[string]string{"b": "2"}, c.Items())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCache_CleanupLoopEvicts(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := newCache[int](time.Millisecond, 5*time.Millisecond, clock.Now)
	defer c.Close()

	c.Set("k", 1)
	clock.Advance(time.Second)

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCache_CloseIdempotent(t *testing.T) {
	c := New[int](time.Minute)
	c.Close()
	assert.NotPanics(t, c.Close)
}
