// Package loginguard tracks failed authentication attempts per account and
// enforces a time-boxed lockout once the configured threshold is reached.
package loginguard

import (
	"context"
	"time"

	"gorm.io/gorm"

	"school-api/internal/models"
)

const (
	DefaultMaxAttempts     = 5
	DefaultLockoutDuration = 15 * time.Minute
)

type Guard struct {
	DB              *gorm.DB
	MaxAttempts     int
	LockoutDuration time.Duration
}

func New(db *gorm.DB, maxAttempts int, lockoutDuration time.Duration) *Guard {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if lockoutDuration <= 0 {
		lockoutDuration = DefaultLockoutDuration
	}
	return &Guard{DB: db, MaxAttempts: maxAttempts, LockoutDuration: lockoutDuration}
}

// IsLocked reports whether the account is inside an active lockout window.
// An expired lockout timestamp is stale and ignored; the next attempt is
// treated as a fresh one.
func (g *Guard) IsLocked(u *models.User, now time.Time) bool {
	if u.LockoutUntil == nil {
		return false
	}
	return now.Before(*u.LockoutUntil)
}

// RemainingLockout returns how long the active lockout still has to run,
// for user-facing messaging only. Zero when not locked.
func (g *Guard) RemainingLockout(u *models.User, now time.Time) time.Duration {
	if !g.IsLocked(u, now) {
		return 0
	}
	return u.LockoutUntil.Sub(now)
}

// RecordFailure increments the account's failure counter and, when the
// counter reaches the threshold, stamps the lockout expiry. The update is
// persisted before returning; a persistence error means the attempt must be
// rejected (fail closed). Returns the attempt count so far.
//
// Concurrent failures for the same account race the read-modify-write and
// may under-count by one. The attacker gains at most a single extra guess;
// the lockout check itself is still enforced once tripped.
func (g *Guard) RecordFailure(ctx context.Context, u *models.User) (int, error) {
	attempts := u.FailedLoginAttempts + 1
	updates := map[string]any{"failed_login_attempts": attempts}
	if attempts >= g.MaxAttempts {
		until := time.Now().Add(g.LockoutDuration)
		updates["lockout_until"] = until
		u.LockoutUntil = &until
	}

	if err := g.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", u.ID).
		Updates(updates).Error; err != nil {
		return 0, err
	}

	u.FailedLoginAttempts = attempts
	return attempts, nil
}

// RecordSuccess clears the failure counter and any lockout expiry.
func (g *Guard) RecordSuccess(ctx context.Context, u *models.User) error {
	if err := g.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{"failed_login_attempts": 0, "lockout_until": nil}).Error; err != nil {
		return err
	}
	u.FailedLoginAttempts = 0
	u.LockoutUntil = nil
	return nil
}

// RemainingAttempts is derived for messaging, never for decisions.
func (g *Guard) RemainingAttempts(attempts int) int {
	remaining := g.MaxAttempts - attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
