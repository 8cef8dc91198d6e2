package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-api/internal/cache"
)

func newTestLimiter(t *testing.T, window time.Duration, globalLimit, authLimit int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return New(c, window, globalLimit, authLimit), mr
}

func TestCheck_AllowsUpToLimit(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(t, 15*time.Minute, 3, 2)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := l.Check(ctx, ScopeGlobal, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should be allowed", i)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 3-i, res.Remaining)
	}

	res, err := l.Check(ctx, ScopeGlobal, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), res.ResetAt, time.Minute)
}

func TestCheck_ScopesAreIndependent(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(t, 15*time.Minute, 100, 1)
	ctx := context.Background()

	res, err := l.Check(ctx, ScopeAuth, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Check(ctx, ScopeAuth, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed, "auth budget exhausted")

	// The same client still has its full global budget.
	res, err = l.Check(ctx, ScopeGlobal, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 99, res.Remaining)
}

func TestCheck_ClientsAreIndependent(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(t, 15*time.Minute, 100, 1)
	ctx := context.Background()

	res, err := l.Check(ctx, ScopeAuth, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Check(ctx, ScopeAuth, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestCheck_WindowResetsOnlyAfterTTL(t *testing.T) {
	t.Parallel()

	l, mr := newTestLimiter(t, time.Minute, 2, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Check(ctx, ScopeGlobal, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	// Short of the TTL the counter must survive.
	mr.FastForward(30 * time.Second)
	res, err := l.Check(ctx, ScopeGlobal, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// Past the TTL the counter is gone and a fresh window begins.
	mr.FastForward(time.Minute)
	for i := 0; i < 2; i++ {
		res, err := l.Check(ctx, ScopeGlobal, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "fresh window request %d", i+1)
	}
}

func TestCheck_RestampsMissingExpiry(t *testing.T) {
	t.Parallel()

	l, mr := newTestLimiter(t, time.Minute, 5, 5)
	ctx := context.Background()

	_, err := l.Check(ctx, ScopeGlobal, "1.2.3.4")
	require.NoError(t, err)

	// Simulate a cache anomaly that dropped the stamp but kept the counter.
	mr.HDel("ratelimit:global:1.2.3.4", "expiresAt")

	res, err := l.Check(ctx, ScopeGlobal, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.WithinDuration(t, time.Now().Add(time.Minute), res.ResetAt, 5*time.Second)
	assert.Greater(t, mr.TTL("ratelimit:global:1.2.3.4"), time.Duration(0))
}

func TestCheck_CacheDown(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	l := New(c, time.Minute, 5, 5)
	mr.Close()

	_, err := l.Check(context.Background(), ScopeGlobal, "1.2.3.4")
	require.Error(t, err)
}
