package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*miniredis.Miniredis, Locker) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, NewSlotLocker(client, 2*time.Second)
}

func TestWithSlotLockRunsCriticalSection(t *testing.T) {
	s, locker := newTestLocker(t)

	ran := false
	err := locker.WithSlotLock(context.Background(), "2026-09-07:09:00", func(ctx context.Context) error {
		ran = true
		// The key is held while we are inside.
		assert.True(t, s.Exists("lock:slot:2026-09-07:09:00"))
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, s.Exists("lock:slot:2026-09-07:09:00"), "lock must be released after the section")
}

func TestWithSlotLockMutualExclusion(t *testing.T) {
	_, locker := newTestLocker(t)

	release := make(chan struct{})
	held := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- locker.WithSlotLock(context.Background(), "2026-09-07:10:00", func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()

	<-held

	err := locker.WithSlotLock(context.Background(), "2026-09-07:10:00", func(ctx context.Context) error {
		t.Error("second holder must not enter the critical section")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	close(release)
	require.NoError(t, <-done)

	// Released now, a retry succeeds.
	err = locker.WithSlotLock(context.Background(), "2026-09-07:10:00", func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestWithSlotLockDifferentSlotsDoNotContend(t *testing.T) {
	_, locker := newTestLocker(t)

	err := locker.WithSlotLock(context.Background(), "2026-09-07:09:00", func(ctx context.Context) error {
		return locker.WithSlotLock(ctx, "2026-09-07:09:30", func(ctx context.Context) error {
			return nil
		})
	})
	assert.NoError(t, err)
}

func TestWithSlotLockPropagatesSectionError(t *testing.T) {
	s, locker := newTestLocker(t)

	boom := errors.New("insert failed")
	err := locker.WithSlotLock(context.Background(), "2026-09-07:11:00", func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, s.Exists("lock:slot:2026-09-07:11:00"), "lock released even on error")
}
