package loginguard

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"school-api/internal/models"
)

func newTestGuard(t *testing.T, maxAttempts int, lockout time.Duration) (*Guard, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return New(db, maxAttempts, lockout), db
}

func seedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: "x",
		Role:         "school_admin",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func reload(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, id).Error)
	return &user
}

func TestRecordFailure_LocksAtThreshold(t *testing.T) {
	t.Parallel()

	guard, db := newTestGuard(t, 3, 15*time.Minute)
	user := seedUser(t, db)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		attempts, err := guard.RecordFailure(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, i, attempts)
		assert.False(t, guard.IsLocked(reload(t, db, user.ID), time.Now()))
	}

	// The threshold-th failure itself trips the lockout.
	attempts, err := guard.RecordFailure(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	stored := reload(t, db, user.ID)
	require.NotNil(t, stored.LockoutUntil)
	assert.True(t, guard.IsLocked(stored, time.Now()))
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), *stored.LockoutUntil, time.Minute)
}

func TestIsLocked_ExpiredLockoutIsStale(t *testing.T) {
	t.Parallel()

	guard, db := newTestGuard(t, 3, 15*time.Minute)
	user := seedUser(t, db)

	past := time.Now().Add(-time.Minute)
	user.FailedLoginAttempts = 3
	user.LockoutUntil = &past
	require.NoError(t, db.Save(user).Error)

	assert.False(t, guard.IsLocked(user, time.Now()))
	assert.Zero(t, guard.RemainingLockout(user, time.Now()))
}

func TestRemainingLockout(t *testing.T) {
	t.Parallel()

	guard, db := newTestGuard(t, 1, 15*time.Minute)
	user := seedUser(t, db)

	_, err := guard.RecordFailure(context.Background(), user)
	require.NoError(t, err)

	now := time.Now()
	remaining := guard.RemainingLockout(reload(t, db, user.ID), now)
	assert.Greater(t, remaining, 14*time.Minute)
	assert.LessOrEqual(t, remaining, 15*time.Minute)
}

func TestRecordSuccess_ResetsState(t *testing.T) {
	t.Parallel()

	guard, db := newTestGuard(t, 2, 15*time.Minute)
	user := seedUser(t, db)
	ctx := context.Background()

	_, err := guard.RecordFailure(ctx, user)
	require.NoError(t, err)
	_, err = guard.RecordFailure(ctx, user)
	require.NoError(t, err)
	require.True(t, guard.IsLocked(reload(t, db, user.ID), time.Now()))

	require.NoError(t, guard.RecordSuccess(ctx, user))

	stored := reload(t, db, user.ID)
	assert.Zero(t, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LockoutUntil)
	assert.False(t, guard.IsLocked(stored, time.Now()))
}

func TestRecordFailure_PersistenceErrorFailsClosed(t *testing.T) {
	t.Parallel()

	guard, db := newTestGuard(t, 3, 15*time.Minute)
	user := seedUser(t, db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = guard.RecordFailure(context.Background(), user)
	require.Error(t, err)
}

func TestRemainingAttempts(t *testing.T) {
	t.Parallel()

	guard := &Guard{MaxAttempts: 5}
	assert.Equal(t, 4, guard.RemainingAttempts(1))
	assert.Equal(t, 0, guard.RemainingAttempts(5))
	assert.Equal(t, 0, guard.RemainingAttempts(7))
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	guard := New(nil, 0, 0)
	assert.Equal(t, DefaultMaxAttempts, guard.MaxAttempts)
	assert.Equal(t, DefaultLockoutDuration, guard.LockoutDuration)
}
