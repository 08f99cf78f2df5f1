//go:build integration

package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-content/pkg/cache"
	"github.com/ekaya-inc/ekaya-content/pkg/testhelpers"
)

func TestRedisStore_SlidingWindow(t *testing.T) {
	tr := testhelpers.GetTestRedis(t)
	ctx := context.Background()
	s := cache.NewRedisStore(tr.Client)
	key := fmt.Sprintf("rate_limit:test:%d", time.Now().UnixNano())
	base := time.Now()
	window := time.Minute

	for i := 0; i < 3; i++ {
		now := base.Add(time.Duration(i) * time.Millisecond)
		count, err := s.SlidingWindow(ctx, key, now.Add(-window), now, fmt.Sprintf("m-%d", i), window)
		require.NoError(t, err)
		assert.Equal(t, int64(i), count)
	}

	ttl, err := tr.Client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisStore_SlidingWindowConcurrent(t *testing.T) {
	tr := testhelpers.GetTestRedis(t)
	ctx := context.Background()
	s := cache.NewRedisStore(tr.Client)
	key := fmt.Sprintf("rate_limit:concurrent:%d", time.Now().UnixNano())

	const callers = 50
	counts := make([]int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			now := time.Now()
			c, err := s.SlidingWindow(ctx, key, now.Add(-time.Minute), now, fmt.Sprintf("m-%d", i), time.Minute)
			assert.NoError(t, err)
			counts[i] = c
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, c := range counts {
		assert.False(t, seen[c], "count %d observed twice", c)
		seen[c] = true
	}
}

func TestRedisStore_GetSetKeysDelete(t *testing.T) {
	tr := testhelpers.GetTestRedis(t)
	ctx := context.Background()
	s := cache.NewRedisStore(tr.Client)
	prefix := fmt.Sprintf("kv-%d", time.Now().UnixNano())

	_, err := s.Get(ctx, prefix+":missing")
	assert.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, s.Set(ctx, prefix+":a", "1", time.Minute))
	require.NoError(t, s.Set(ctx, prefix+":b", "2", time.Minute))

	keys, err := s.Keys(ctx, prefix+":*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{prefix + ":a", prefix + ":b"}, keys)

	require.NoError(t, s.Delete(ctx, keys...))
	keys, err = s.Keys(ctx, prefix+":*")
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, s.Ping(ctx))
}
