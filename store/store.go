package store

import (
	"context"
	"time"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/journal"
	"github.com/xraph/rosca/pool"
)

// Store is the unified storage interface for pools and their journal.
// Backends return rosca.ErrPoolNotFound for unknown pools.
type Store interface {
	// Pool methods
	CreatePool(ctx context.Context, s *pool.State) error
	GetPool(ctx context.Context, poolID id.PoolID) (*pool.State, error)
	SavePool(ctx context.Context, s *pool.State) error
	ListPools(ctx context.Context, opts pool.ListOpts) ([]*pool.State, error)
	DeletePool(ctx context.Context, poolID id.PoolID) error

	// Journal methods
	AppendJournal(ctx context.Context, entries []*journal.Entry) error
	QueryJournal(ctx context.Context, poolID id.PoolID, opts journal.QueryOpts) ([]*journal.Entry, error)
	PurgeJournal(ctx context.Context, before time.Time) (int64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
