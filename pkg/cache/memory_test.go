package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type payload struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestMemoryCache_GetDecodesStructs(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "obs:BTC", payload{Symbol: "BTC", Price: 65000}, time.Minute))

	var got payload
	require.NoError(t, mc.Get(ctx, "obs:BTC", &got))
	assert.Equal(t, payload{Symbol: "BTC", Price: 65000}, got)

	var s string
	require.NoError(t, mc.Set(ctx, "plain", "value", time.Minute))
	require.NoError(t, mc.Get(ctx, "plain", &s))
	assert.Equal(t, "value", s)
}

func TestMemoryCache_ExpiresOnRead(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryClock(clock.now))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", 1, 30*time.Second))
	clock.advance(29 * time.Second)
	var v int
	require.NoError(t, mc.Get(ctx, "k", &v))

	clock.advance(time.Second)
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryMaxSize(2), WithMemoryClock(clock.now))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Hour))
	clock.advance(time.Second)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Hour))
	clock.advance(time.Second)
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v)) // a is now most recent
	clock.advance(time.Second)
	require.NoError(t, mc.Set(ctx, "c", 3, time.Hour))

	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &v))
	assert.NoError(t, mc.Get(ctx, "c", &v))
}

func TestMemoryCache_TryLock(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryClock(clock.now))
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "lock:scan", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = mc.TryLock(ctx, "lock:scan", time.Minute)
	assert.False(t, ok)

	clock.advance(2 * time.Minute)
	ok, _ = mc.TryLock(ctx, "lock:scan", time.Minute)
	assert.True(t, ok)

	require.NoError(t, mc.Unlock(ctx, "lock:scan"))
	ok, _ = mc.TryLock(ctx, "lock:scan", time.Minute)
	assert.True(t, ok)
}

func TestMemoryCache_DeleteByPattern(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "perf:7", 1, time.Minute)
	_ = mc.Set(ctx, "perf:30", 1, time.Minute)
	_ = mc.Set(ctx, "obs:BTC", 1, time.Minute)

	require.NoError(t, mc.DeleteByPattern(ctx, "perf:*"))
	ok, _ := mc.Exists(ctx, "perf:7", "perf:30")
	assert.False(t, ok)
	ok, _ = mc.Exists(ctx, "obs:BTC")
	assert.True(t, ok)
}
