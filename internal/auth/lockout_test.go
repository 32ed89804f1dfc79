package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pavelk2005/storegate/internal/kvstore"
)

const (
	testMaxAttempts   = 3
	testBlockDuration = 15 * time.Minute
)

func newLockout(t *testing.T) *LockoutPolicy {
	t.Helper()
	return NewLockoutPolicy(kvstore.NewInMemoryStore(), testMaxAttempts, testBlockDuration, nil)
}

func TestLockout_CleanUsernameNotBlocked(t *testing.T) {
	p := newLockout(t)

	status, err := p.Status(context.Background(), "admin")
	require.NoError(t, err)
	require.False(t, status.Blocked)
	require.Zero(t, status.Attempts)
}

func TestLockout_ThreeFailuresBlock(t *testing.T) {
	p := newLockout(t)
	ctx := context.Background()

	base := time.Now()
	p.now = func() time.Time { return base }

	for i := 1; i < testMaxAttempts; i++ {
		n, until, err := p.RecordFailure(ctx, "admin")
		require.NoError(t, err)
		require.Equal(t, i, n)
		require.True(t, until.IsZero())
	}

	n, until, err := p.RecordFailure(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, testMaxAttempts, n)
	require.Equal(t, base.Add(testBlockDuration).UnixMilli(), until.UnixMilli())

	status, err := p.Status(ctx, "admin")
	require.NoError(t, err)
	require.True(t, status.Blocked)
	require.Equal(t, until.UnixMilli(), status.BlockedUntil.UnixMilli())
	require.Equal(t, testMaxAttempts, status.Attempts)
}

func TestLockout_FailuresAreScopedPerUsername(t *testing.T) {
	p := newLockout(t)
	ctx := context.Background()

	for i := 0; i < testMaxAttempts; i++ {
		_, _, err := p.RecordFailure(ctx, "admin")
		require.NoError(t, err)
	}

	status, err := p.Status(ctx, "manager")
	require.NoError(t, err)
	require.False(t, status.Blocked)
	require.Zero(t, status.Attempts)
}

func TestLockout_ElapsedBlockClearedLazily(t *testing.T) {
	p := newLockout(t)
	ctx := context.Background()

	base := time.Now()
	p.now = func() time.Time { return base }

	for i := 0; i < testMaxAttempts; i++ {
		_, _, err := p.RecordFailure(ctx, "admin")
		require.NoError(t, err)
	}

	// one second past the block expiry
	p.now = func() time.Time { return base.Add(testBlockDuration + time.Second) }

	status, err := p.Status(ctx, "admin")
	require.NoError(t, err)
	require.False(t, status.Blocked)
	require.Zero(t, status.Attempts)

	// the record really is gone, not just reinterpreted
	status, err = p.Status(ctx, "admin")
	require.NoError(t, err)
	require.Zero(t, status.Attempts)
}

func TestLockout_ClearResetsEverything(t *testing.T) {
	p := newLockout(t)
	ctx := context.Background()

	for i := 0; i < testMaxAttempts; i++ {
		_, _, err := p.RecordFailure(ctx, "admin")
		require.NoError(t, err)
	}

	require.NoError(t, p.Clear(ctx, "admin"))

	status, err := p.Status(ctx, "admin")
	require.NoError(t, err)
	require.False(t, status.Blocked)
	require.Zero(t, status.Attempts)
}

func TestLockout_CorruptCounterResets(t *testing.T) {
	store := kvstore.NewInMemoryStore()
	p := NewLockoutPolicy(store, testMaxAttempts, testBlockDuration, nil)
	ctx := context.Background()

	attemptsKey, _ := p.keys("admin")
	require.NoError(t, store.Set(ctx, attemptsKey, []byte("garbage")))

	n, until, err := p.RecordFailure(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.True(t, until.IsZero())
}
