// Package lock serializes operations on a pool.
//
// The Engine wraps every mutating pool operation in Locker.WithLock keyed by
// pool ID. Local is enough for a single process; redislock provides the same
// contract across processes sharing a Redis instance.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotAcquired is returned when a lock could not be obtained.
var ErrNotAcquired = errors.New("rosca: could not acquire pool lock")

// Locker runs fn while holding the lock named key. The error of fn is
// returned unchanged.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// Local is an in-process keyed mutex.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns an empty Local locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

// WithLock implements Locker. It gives up with ErrNotAcquired when ctx is
// done before the lock is free.
func (l *Local) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	e := l.acquire(key)
	defer l.release(key, e)

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		return errors.Join(ErrNotAcquired, ctx.Err())
	}
	defer func() { <-e.ch }()

	return fn(ctx)
}

// Held returns the number of keys with a holder or waiter.
func (l *Local) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *Local) acquire(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *Local) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}
