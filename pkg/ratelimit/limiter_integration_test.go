//go:build integration

package ratelimit_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/cache"
	"github.com/ekaya-inc/ekaya-content/pkg/ratelimit"
	"github.com/ekaya-inc/ekaya-content/pkg/testhelpers"
)

func TestLimiter_Redis(t *testing.T) {
	tr := testhelpers.GetTestRedis(t)
	ctx := context.Background()
	l := ratelimit.New(cache.NewRedisStore(tr.Client), zap.NewNop())
	identifier := fmt.Sprintf("ip:test-%d", time.Now().UnixNano())

	for i := 0; i < 5; i++ {
		res, err := l.Check(ctx, identifier, ratelimit.ScopeLogin)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.False(t, res.Degraded)
	}

	res, err := l.Check(ctx, identifier, ratelimit.ScopeLogin)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	ttl, err := tr.Client.TTL(ctx, ratelimit.Key(ratelimit.ScopeLogin, identifier)).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, 15*time.Minute)
	assert.Greater(t, ttl, time.Duration(0))

	n, err := l.ResetIdentifier(ctx, identifier)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLimiter_RedisUnavailableFailsOpen(t *testing.T) {
	tr := testhelpers.GetTestRedis(t)
	ctx := context.Background()

	store := cache.NewRedisStore(tr.Client)
	l := ratelimit.New(store, zap.NewNop())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	res, err := l.Check(cancelled, "ip:1.2.3.4", ratelimit.ScopeLogin)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.True(t, res.Degraded)
}

func TestLimiter_RedisWindowBoundary(t *testing.T) {
	tr := testhelpers.GetTestRedis(t)
	ctx := context.Background()
	const window = time.Minute
	start := time.Unix(1_700_000_000, 0)

	for _, tt := range []struct {
		elapsed     time.Duration
		wantAllowed bool
	}{
		{window - time.Microsecond, false},
		{window + time.Microsecond, true},
	} {
		now := start
		l := ratelimit.New(cache.NewRedisStore(tr.Client), zap.NewNop(),
			ratelimit.WithClock(func() time.Time { return now }),
			ratelimit.WithPolicies(map[ratelimit.Scope]ratelimit.Policy{
				ratelimit.ScopeLogin: {Limit: 1, Window: window},
			}))
		identifier := fmt.Sprintf("user:edge-%d", time.Now().UnixNano())

		res, err := l.Check(ctx, identifier, ratelimit.ScopeLogin)
		require.NoError(t, err)
		require.True(t, res.Allowed)

		now = start.Add(tt.elapsed)
		res, err = l.Check(ctx, identifier, ratelimit.ScopeLogin)
		require.NoError(t, err)
		assert.Equal(t, tt.wantAllowed, res.Allowed, "elapsed %s", tt.elapsed)
	}
}
