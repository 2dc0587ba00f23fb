package redislock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/rosca/lock"
	"github.com/xraph/rosca/lock/redislock"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestWithLockRunsAndReleases(t *testing.T) {
	mr, client := setupTestRedis(t)
	l, err := redislock.New(client, redislock.Options{}, nil)
	require.NoError(t, err)

	executed := false
	err = l.WithLock(context.Background(), "rosca:pool:a", func(context.Context) error {
		executed = true
		assert.True(t, mr.Exists("rosca:pool:a"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, executed)
	assert.False(t, mr.Exists("rosca:pool:a"))
}

func TestWithLockReturnsFnError(t *testing.T) {
	_, client := setupTestRedis(t)
	l, err := redislock.New(client, redislock.Options{}, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = l.WithLock(context.Background(), "k", func(context.Context) error { return boom })
	require.Equal(t, boom, err)
}

func TestWithLockMutualExclusion(t *testing.T) {
	_, client := setupTestRedis(t)
	l, err := redislock.New(client, redislock.Options{
		Expiry:     5 * time.Second,
		Tries:      200,
		RetryDelay: 5 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	var inside, overlaps atomic.Int32
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(context.Background(), "shared", func(context.Context) error {
				if inside.Add(1) > 1 {
					overlaps.Add(1)
				}
				time.Sleep(5 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Zero(t, overlaps.Load())
}

func TestWithLockContention(t *testing.T) {
	mr, client := setupTestRedis(t)
	require.NoError(t, mr.Set("busy", "someone-else"))

	l, err := redislock.New(client, redislock.Options{
		Expiry:     time.Second,
		Tries:      2,
		RetryDelay: 5 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	err = l.WithLock(context.Background(), "busy", func(context.Context) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	require.ErrorIs(t, err, lock.ErrNotAcquired)
}

func TestNewValidates(t *testing.T) {
	_, err := redislock.New(nil, redislock.Options{}, nil)
	require.Error(t, err)

	_, client := setupTestRedis(t)
	_, err = redislock.New(client, redislock.Options{Expiry: time.Second}, nil)
	require.Error(t, err)
}
