// Package plugin provides an extensible plugin system for rosca.
// Plugins can hook into pool lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Pool hooks
// ──────────────────────────────────────────────────

// OnPoolCreated is called after a new pool is stored.
type OnPoolCreated interface {
	Plugin
	OnPoolCreated(ctx context.Context, state *pool.State) error
}

// OnQuotaChanged is called when the operator replaces a pool's quota.
type OnQuotaChanged interface {
	Plugin
	OnQuotaChanged(ctx context.Context, poolID id.PoolID, oldQuota, newQuota uint64) error
}

// OnCycleAdvanced is called when a pool rolls into a new cycle.
type OnCycleAdvanced interface {
	Plugin
	OnCycleAdvanced(ctx context.Context, poolID id.PoolID, cycle uint64) error
}

// ──────────────────────────────────────────────────
// Funds hooks
// ──────────────────────────────────────────────────

// OnFundsReceived is called after a contribution is recorded.
type OnFundsReceived interface {
	Plugin
	OnFundsReceived(ctx context.Context, poolID id.PoolID, contributor types.Identity, amount, total types.Money) error
}

// OnPayoutRequested is called when the queue head requests a payout.
type OnPayoutRequested interface {
	Plugin
	OnPayoutRequested(ctx context.Context, poolID id.PoolID, req *pool.Request) error
}

// OnPayoutMade is called after an approved payout was transferred.
type OnPayoutMade interface {
	Plugin
	OnPayoutMade(ctx context.Context, poolID id.PoolID, operator types.Identity, payout *pool.Payout) error
}

// OnTransferFailed is called when the transfer for an approved payout fails.
type OnTransferFailed interface {
	Plugin
	OnTransferFailed(ctx context.Context, poolID id.PoolID, req *pool.Request, err error) error
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnJournalFlushed is called after a batch of journal entries is persisted.
type OnJournalFlushed interface {
	Plugin
	OnJournalFlushed(ctx context.Context, count int, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Generic event sink
// ──────────────────────────────────────────────────

// EventSink receives every pool event by name. The payload is the event
// value and is safe to marshal as JSON.
type EventSink interface {
	Plugin
	OnEvent(ctx context.Context, name string, poolID id.PoolID, payload any) error
}

// ──────────────────────────────────────────────────
// Contribution validators
// ──────────────────────────────────────────────────

// ContributionValidator can veto a contribution before the ledger sees it.
// A non-nil error rejects the contribution.
type ContributionValidator interface {
	Plugin
	ValidateContribution(ctx context.Context, poolID id.PoolID, who types.Identity, amount types.Money) error
}
