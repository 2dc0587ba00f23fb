// Package redislock implements lock.Locker with redsync on top of go-redis.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/xraph/rosca/lock"
)

// compile-time interface check
var _ lock.Locker = (*Locker)(nil)

// Options tune the underlying redsync mutex.
type Options struct {
	Expiry      time.Duration
	Tries       int
	RetryDelay  time.Duration
	DriftFactor float64
}

// DefaultOptions returns defaults sized for ledger operations that finish
// well within a second.
func DefaultOptions() Options {
	return Options{
		Expiry:      10 * time.Second,
		Tries:       32,
		RetryDelay:  50 * time.Millisecond,
		DriftFactor: 0.01,
	}
}

// Locker is a distributed lock.Locker.
type Locker struct {
	rs     *redsync.Redsync
	opts   Options
	logger *slog.Logger
}

// New returns a Locker using client. A zero Options uses DefaultOptions.
func New(client redis.UniversalClient, opts Options, logger *slog.Logger) (*Locker, error) {
	if client == nil {
		return nil, errors.New("redislock: nil redis client")
	}
	if opts == (Options{}) {
		opts = DefaultOptions()
	}
	if opts.Expiry <= 0 || opts.Tries <= 0 {
		return nil, fmt.Errorf("redislock: invalid options: expiry=%s tries=%d", opts.Expiry, opts.Tries)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locker{
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   opts,
		logger: logger,
	}, nil
}

// WithLock implements lock.Locker.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty key", lock.ErrNotAcquired)
	}

	mutex := l.rs.NewMutex(
		key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
		redsync.WithDriftFactor(l.opts.DriftFactor),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("%w %s: %w", lock.ErrNotAcquired, key, err)
	}

	// Release with a fresh context so a canceled caller still frees the key.
	defer func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.opts.Expiry)
		defer cancel()
		if ok, err := mutex.UnlockContext(ctx); !ok || err != nil {
			l.logger.Warn("redislock: failed to release lock",
				"key", key,
				"unlock_ok", ok,
				"error", err,
			)
		}
	}()

	return fn(ctx)
}
