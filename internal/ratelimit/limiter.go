// Package ratelimit implements a distributed fixed-window request counter on
// the shared Redis cache. Every instance of the service shares the same
// counters, so the budget holds across the whole deployment.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"school-api/internal/cache"
)

const (
	DefaultWindow      = 15 * time.Minute
	DefaultGlobalLimit = 100
	DefaultAuthLimit   = 5
)

// Scope selects the budget for an operation. Scope is a pure function of the
// route, never of caller identity.
type Scope uint8

const (
	ScopeGlobal Scope = iota
	// ScopeAuth is the stricter budget for credential-guessing-sensitive
	// endpoints (login, refresh, logout).
	ScopeAuth
)

func (s Scope) keyPrefix() string {
	if s == ScopeAuth {
		return "ratelimit:auth:"
	}
	return "ratelimit:global:"
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type Limiter struct {
	Cache       *cache.Cache
	Window      time.Duration
	GlobalLimit int
	AuthLimit   int
}

func New(c *cache.Cache, window time.Duration, globalLimit, authLimit int) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if globalLimit <= 0 {
		globalLimit = DefaultGlobalLimit
	}
	if authLimit <= 0 {
		authLimit = DefaultAuthLimit
	}
	return &Limiter{Cache: c, Window: window, GlobalLimit: globalLimit, AuthLimit: authLimit}
}

func (l *Limiter) limitFor(scope Scope) int {
	if scope == ScopeAuth {
		return l.AuthLimit
	}
	return l.GlobalLimit
}

// Check counts the request against (scope, clientID) and reports whether it
// fits the window budget.
//
// The count is a single atomic HINCRBY; a read-then-write scheme would let
// two concurrent requests both claim the last slot. When the increment
// returns 1 this request created the counter: the key TTL is set to the
// window and the window expiry is stamped on the hash. Two concurrent
// creations both observing 1 stamp the same TTL, which is harmless.
func (l *Limiter) Check(ctx context.Context, scope Scope, clientID string) (Result, error) {
	limit := l.limitFor(scope)
	key := scope.keyPrefix() + clientID
	now := time.Now()

	count, err := l.Cache.HIncrBy(ctx, key, "count", 1)
	if err != nil {
		return Result{}, err
	}

	if count == 1 {
		if err := l.Cache.Expire(ctx, key, l.Window); err != nil {
			return Result{}, err
		}
		resetAt := now.Add(l.Window)
		if err := l.Cache.HSet(ctx, key, "expiresAt", formatTime(resetAt)); err != nil {
			return Result{}, err
		}
	}

	resetStr, err := l.Cache.HGet(ctx, key, "expiresAt")
	if err != nil {
		return Result{}, err
	}
	resetAt, ok := parseTime(resetStr)
	if !ok {
		// Eviction anomaly: the counter exists but its expiry stamp is gone.
		// Re-stamp instead of failing the request.
		resetAt = now.Add(l.Window)
		if err := l.Cache.HSet(ctx, key, "expiresAt", formatTime(resetAt)); err != nil {
			return Result{}, err
		}
		if err := l.Cache.Expire(ctx, key, l.Window); err != nil {
			return Result{}, err
		}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	retryAfter := time.Until(resetAt)
	if retryAfter < 0 {
		retryAfter = 0
	}

	return Result{
		Allowed:    count <= int64(limit),
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: retryAfter,
	}, nil
}

func formatTime(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
