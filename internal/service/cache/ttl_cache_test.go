package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	pkgcache "OracleEngine/pkg/cache"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestTTLCacheEvictsOnRead(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := NewTTLCache[int](30*time.Second, 10, clk.Now)

	c.Set(ctx, "BTC", 1)
	v, ok := c.Get(ctx, "BTC")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clk.Advance(30 * time.Second)
	_, ok = c.Get(ctx, "BTC")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheBoundedSize(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := NewTTLCache[string](time.Minute, 2, clk.Now)

	c.Set(ctx, "a", "1")
	clk.Advance(time.Second)
	c.Set(ctx, "b", "2")
	clk.Advance(time.Second)
	c.Set(ctx, "c", "3")

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok, "oldest entry evicted")
	_, ok = c.Get(ctx, "c")
	assert.True(t, ok)
}

func TestTTLCacheConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache[int](time.Minute, 64, nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Set(ctx, "k", i)
				c.Get(ctx, "k")
			}
		}(i)
	}
	wg.Wait()
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)
}

func TestTieredFillsLocalFromRemote(t *testing.T) {
	ctx := context.Background()
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()

	remote := NewRemoteStore[map[string]float64](mem, "obs", time.Minute, nil)
	remote.Set(ctx, "ETH", map[string]float64{"price": 10})

	local := NewTTLCache[map[string]float64](time.Minute, 8, nil)
	tiered := NewTiered[map[string]float64](local, remote)

	v, ok := tiered.Get(ctx, "ETH")
	assert.True(t, ok)
	assert.Equal(t, 10.0, v["price"])
	assert.Equal(t, 1, local.Len())

	_, ok = tiered.Get(ctx, "SOL")
	assert.False(t, ok)
}
