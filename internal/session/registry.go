// Package session keeps the revocation list for short credentials. A revoked
// session id is stored as a tombstone whose TTL matches the maximum short
// credential lifetime, so a tombstone never outlives the credential it
// invalidates and no explicit cleanup is needed.
package session

import (
	"context"
	"time"

	"school-api/internal/cache"
)

const keyPrefix = "invalidated:session:"

type Registry struct {
	Cache *cache.Cache
	TTL   time.Duration
}

func NewRegistry(c *cache.Cache, ttl time.Duration) *Registry {
	return &Registry{Cache: c, TTL: ttl}
}

// Revoke is monotonic: re-revoking an already revoked session only refreshes
// the tombstone, it can never make the session valid again.
func (r *Registry) Revoke(ctx context.Context, sessionID string) error {
	return r.Cache.Set(ctx, keyPrefix+sessionID, "1", r.TTL)
}

func (r *Registry) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	return r.Cache.Exists(ctx, keyPrefix+sessionID)
}
