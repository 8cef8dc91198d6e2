package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-api/internal/cache"
)

func newTestRegistry(t *testing.T, ttl time.Duration) (*Registry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return NewRegistry(c, ttl), mr
}

func TestRevoke_ThenIsRevoked(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, time.Hour)
	ctx := context.Background()

	revoked, err := reg.IsRevoked(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, reg.Revoke(ctx, "session-1"))

	// Every subsequent check must see the tombstone.
	for i := 0; i < 3; i++ {
		revoked, err = reg.IsRevoked(ctx, "session-1")
		require.NoError(t, err)
		assert.True(t, revoked)
	}

	// Other sessions are untouched.
	revoked, err = reg.IsRevoked(ctx, "session-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevoke_TombstoneTTL(t *testing.T) {
	t.Parallel()

	reg, mr := newTestRegistry(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, reg.Revoke(ctx, "session-1"))
	assert.Equal(t, time.Hour, mr.TTL("invalidated:session:session-1"))

	// The tombstone may expire once the credential itself is expired anyway.
	mr.FastForward(2 * time.Hour)
	revoked, err := reg.IsRevoked(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevoke_Monotonic(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, reg.Revoke(ctx, "session-1"))
	require.NoError(t, reg.Revoke(ctx, "session-1"))

	revoked, err := reg.IsRevoked(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}
