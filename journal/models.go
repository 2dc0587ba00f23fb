// Package journal records an append-only trail of committed pool transitions.
package journal

import (
	"time"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/types"
)

// Kind names the transition an Entry records.
type Kind string

const (
	KindPoolCreated     Kind = "pool_created"
	KindQuotaChanged    Kind = "quota_changed"
	KindContribution    Kind = "contribution"
	KindPayoutRequested Kind = "payout_requested"
	KindPayout          Kind = "payout"
	KindCycleAdvanced   Kind = "cycle_advanced"
)

// Entry is one journal line.
type Entry struct {
	ID        id.EntryID        `json:"id"`
	PoolID    id.PoolID         `json:"pool_id"`
	Kind      Kind              `json:"kind"`
	Cycle     uint64            `json:"cycle"`
	Actor     types.Identity    `json:"actor"`
	Subject   types.Identity    `json:"subject,omitempty"`
	Amount    types.Money       `json:"amount"`
	Total     types.Money       `json:"total"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// QueryOpts filters journal queries.
type QueryOpts struct {
	Kind   Kind
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}
