package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/rosca/lock"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := lock.NewLocal()
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(context.Background(), "pool:a", func(context.Context) error {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Equal(t, 0, l.Held())
}

func TestLocalIndependentKeys(t *testing.T) {
	l := lock.NewLocal()
	entered := make(chan struct{})

	go func() {
		_ = l.WithLock(context.Background(), "pool:a", func(context.Context) error {
			<-entered
			return nil
		})
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.WithLock(context.Background(), "pool:b", func(context.Context) error {
			close(entered)
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestLocalReturnsFnError(t *testing.T) {
	l := lock.NewLocal()
	boom := errors.New("boom")
	err := l.WithLock(context.Background(), "k", func(context.Context) error { return boom })
	require.Equal(t, boom, err)
}

func TestLocalContextCanceled(t *testing.T) {
	l := lock.NewLocal()
	release := make(chan struct{})
	held := make(chan struct{})

	go func() {
		_ = l.WithLock(context.Background(), "k", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := l.WithLock(ctx, "k", func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, lock.ErrNotAcquired)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
	close(release)
}
