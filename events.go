package rosca

import (
	"time"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/types"
)

// Event is a notification produced by a ledger operation.
type Event interface {
	// EventName is the dotted name used by hooks and publishers.
	EventName() string
	// PoolID is the pool the event belongs to.
	PoolID() id.PoolID
}

// FundsReceived is emitted by a successful contribution. From is always
// Nobody and Value carries the pool total after the contribution.
type FundsReceived struct {
	Pool   id.PoolID      `json:"pool_id"`
	From   types.Identity `json:"from"`
	To     types.Identity `json:"to"`
	Value  types.Money    `json:"value"`
	Amount types.Money    `json:"amount"`
	Cycle  uint64         `json:"cycle"`
	At     time.Time      `json:"at"`
}

// PayoutRequested is emitted when the queue head requests a payout.
type PayoutRequested struct {
	Pool    id.PoolID    `json:"pool_id"`
	Request pool.Request `json:"request"`
	Cycle   uint64       `json:"cycle"`
}

// PayoutMade is emitted after the transfer for an approved payout succeeded.
type PayoutMade struct {
	Pool   id.PoolID      `json:"pool_id"`
	From   types.Identity `json:"from"`
	To     types.Identity `json:"to"`
	Value  types.Money    `json:"value"`
	Payout pool.Payout    `json:"payout"`
}

// QuotaChanged is emitted when the operator replaces the quota.
type QuotaChanged struct {
	Pool     id.PoolID      `json:"pool_id"`
	Operator types.Identity `json:"operator"`
	Old      uint64         `json:"old"`
	New      uint64         `json:"new"`
	At       time.Time      `json:"at"`
}

// CycleAdvanced is emitted when the pool rolls into a new cycle.
type CycleAdvanced struct {
	Pool  id.PoolID `json:"pool_id"`
	Cycle uint64    `json:"cycle"`
	At    time.Time `json:"at"`
}

// TransferFailed is emitted when the transfer capability rejects an approved
// payout. The pool state is unchanged and the request stays pending.
type TransferFailed struct {
	Pool    id.PoolID    `json:"pool_id"`
	Request pool.Request `json:"request"`
	Err     error        `json:"-"`
	At      time.Time    `json:"at"`
}

// PoolCreated is emitted by the Engine after a new pool is stored.
type PoolCreated struct {
	State *pool.State `json:"state"`
}

func (e FundsReceived) EventName() string   { return "funds.received" }
func (e PayoutRequested) EventName() string { return "payout.requested" }
func (e PayoutMade) EventName() string      { return "payout.made" }
func (e QuotaChanged) EventName() string    { return "quota.changed" }
func (e CycleAdvanced) EventName() string   { return "cycle.advanced" }
func (e TransferFailed) EventName() string  { return "transfer.failed" }
func (e PoolCreated) EventName() string     { return "pool.created" }

func (e FundsReceived) PoolID() id.PoolID   { return e.Pool }
func (e PayoutRequested) PoolID() id.PoolID { return e.Pool }
func (e PayoutMade) PoolID() id.PoolID      { return e.Pool }
func (e QuotaChanged) PoolID() id.PoolID    { return e.Pool }
func (e CycleAdvanced) PoolID() id.PoolID   { return e.Pool }
func (e TransferFailed) PoolID() id.PoolID  { return e.Pool }
func (e PoolCreated) PoolID() id.PoolID     { return e.State.ID }
