package rosca

import (
	"context"
	"fmt"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/types"
)

// Transferer moves value out of a pool. Any returned error is reported to
// callers as ErrTransferFailure.
//
// key identifies the payout. A Transferer must treat a key it has already
// completed as done and return nil without moving funds again: the Engine
// retries with the same key when the pool could not be saved after a
// successful transfer.
type Transferer interface {
	Transfer(ctx context.Context, key string, from id.PoolID, to types.Identity, amount types.Money) error
}

// TransferFunc adapts a plain function to a Transferer.
type TransferFunc func(ctx context.Context, key string, from id.PoolID, to types.Identity, amount types.Money) error

// Transfer implements Transferer.
func (f TransferFunc) Transfer(ctx context.Context, key string, from id.PoolID, to types.Identity, amount types.Money) error {
	return f(ctx, key, from, to, amount)
}

// Escrow collects a contribution into a pool before it is recorded. Like
// Transferer, a repeated key must not collect twice.
type Escrow interface {
	Collect(ctx context.Context, key string, into id.PoolID, from types.Identity, amount types.Money) error
}

// EscrowFunc adapts a plain function to an Escrow.
type EscrowFunc func(ctx context.Context, key string, into id.PoolID, from types.Identity, amount types.Money) error

// Collect implements Escrow.
func (f EscrowFunc) Collect(ctx context.Context, key string, into id.PoolID, from types.Identity, amount types.Money) error {
	return f(ctx, key, into, from, amount)
}

// PayoutKey identifies the next payout of the pool's current cycle. It only
// changes once a payout is saved, so a re-requested or retried approval
// reuses it.
func PayoutKey(s *pool.State) string {
	return fmt.Sprintf("payout:%s:%d:%d", s.ID, s.Cycle, s.Completed+1)
}

// ContributionKey identifies the contribution of who to a pool's cycle.
func ContributionKey(poolID id.PoolID, cycle uint64, who types.Identity) string {
	return fmt.Sprintf("contribution:%s:%d:%s", poolID, cycle, who)
}
