package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_HitSkipsCompute(t *testing.T) {
	c := newTestLocalCache(10)
	defer c.Close()
	l := NewLoader(c, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "t:1:overview", "cached-value", time.Minute))

	computed := false
	v, cached, err := l.GetOrCompute(ctx, "t:1:overview", time.Minute, func(context.Context) (interface{}, error) {
		computed = true
		return "fresh-value", nil
	})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "cached-value", v)
	assert.False(t, computed)
}

func TestLoader_MissComputesAndPopulates(t *testing.T) {
	c := newTestLocalCache(10)
	defer c.Close()
	l := NewLoader(c, time.Second)
	ctx := context.Background()

	v, cached, err := l.GetOrCompute(ctx, "t:1:overview", time.Minute, func(context.Context) (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 42, v)

	// Second call served from cache
	v, cached, err = l.GetOrCompute(ctx, "t:1:overview", time.Minute, func(context.Context) (interface{}, error) {
		t.Fatal("compute should not run on a warm key")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 42, v)
}

func TestLoader_ConcurrentMissesCollapse(t *testing.T) {
	c := newTestLocalCache(10)
	defer c.Close()
	l := NewLoader(c, 5*time.Second)
	ctx := context.Background()

	var computeCount int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v, _, err := l.GetOrCompute(ctx, "t:1:agent_stats:7", time.Minute, func(context.Context) (interface{}, error) {
				atomic.AddInt32(&computeCount, 1)
				time.Sleep(30 * time.Millisecond) // make the window wide enough to overlap
				return "result", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "result", v)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&computeCount),
		"concurrent misses for one key must collapse into a single recomputation")
}

func TestLoader_ComputeError(t *testing.T) {
	c := newTestLocalCache(10)
	defer c.Close()
	l := NewLoader(c, time.Second)

	_, _, err := l.GetOrCompute(context.Background(), "t:1:overview", time.Minute, func(context.Context) (interface{}, error) {
		return nil, assert.AnError
	})
	require.Error(t, err)

	// Errors are not cached
	assert.False(t, c.Exists(context.Background(), "t:1:overview"))
}

func TestLoader_Invalidate(t *testing.T) {
	c := newTestLocalCache(10)
	defer c.Close()
	l := NewLoader(c, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, TenantKey(1, MetricOverview), "v", time.Minute))
	require.NoError(t, l.Invalidate(ctx, TenantKey(1, MetricOverview)))
	assert.False(t, c.Exists(ctx, TenantKey(1, MetricOverview)))
}
