// Package pool defines the persisted state of a contribution pool.
package pool

import (
	"maps"
	"time"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/queue"
	"github.com/xraph/rosca/types"
)

// DefaultMinContribution is the contribution floor, in minor units, used
// when a pool is created without one.
const DefaultMinContribution int64 = 50

// FirstCycle is the cycle number of a new pool.
const FirstCycle uint64 = 1

// Participant is one contributor's record within the current cycle.
type Participant struct {
	Identity types.Identity `json:"identity"`
	Funded   types.Money    `json:"funded"`
	Paid     bool           `json:"paid"`
	JoinedAt time.Time      `json:"joined_at"`
}

// Request is a payout request awaiting operator approval.
type Request struct {
	ID          id.RequestID   `json:"id"`
	Requester   types.Identity `json:"requester"`
	Amount      types.Money    `json:"amount"`
	RequestedAt time.Time      `json:"requested_at"`
}

// Payout is an approved and transferred payout.
type Payout struct {
	ID         id.PayoutID    `json:"id"`
	RequestID  id.RequestID   `json:"request_id"`
	Recipient  types.Identity `json:"recipient"`
	Amount     types.Money    `json:"amount"`
	Cycle      uint64         `json:"cycle"`
	ApprovedBy types.Identity `json:"approved_by"`
	PaidAt     time.Time      `json:"paid_at"`
}

// Contributor pairs a queued identity with its recorded balance.
type Contributor struct {
	Identity types.Identity `json:"identity"`
	Balance  types.Money    `json:"balance"`
}

// Config holds the settings fixed at creation plus the mutable quota.
type Config struct {
	Operator        types.Identity `json:"operator"`
	MinContribution types.Money    `json:"min_contribution"`
	Quota           uint64         `json:"quota"`
}

// State is the full aggregate of one pool.
type State struct {
	types.Entity

	ID     id.PoolID `json:"id"`
	Name   string    `json:"name"`
	Config Config    `json:"config"`

	Participants map[types.Identity]*Participant `json:"participants"`
	Queue        *queue.Queue[types.Identity]    `json:"queue"`
	Pending      *Request                        `json:"pending,omitempty"`
	History      []Payout                        `json:"history"`

	Total        types.Money `json:"total"`
	Contributors uint64      `json:"contributors"`
	Completed    uint64      `json:"completed"`
	Cycle        uint64      `json:"cycle"`
}

// NewState returns an empty pool in its first cycle.
func NewState(name string, cfg Config, now time.Time) *State {
	return &State{
		Entity:       types.NewEntity(now),
		ID:           id.NewPoolID(),
		Name:         name,
		Config:       cfg,
		Participants: make(map[types.Identity]*Participant),
		Queue:        queue.New[types.Identity](0),
		History:      []Payout{},
		Total:        types.Zero(cfg.MinContribution.Currency),
		Cycle:        FirstCycle,
	}
}

// Currency returns the pool's currency.
func (s *State) Currency() string { return s.Config.MinContribution.Currency }

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := *s
	c.Participants = make(map[types.Identity]*Participant, len(s.Participants))
	for k, p := range s.Participants {
		cp := *p
		c.Participants[k] = &cp
	}
	if s.Queue != nil {
		c.Queue = s.Queue.Clone()
	} else {
		c.Queue = queue.New[types.Identity](0)
	}
	if s.Pending != nil {
		req := *s.Pending
		c.Pending = &req
	}
	c.History = append([]Payout{}, s.History...)
	return &c
}

// Equal reports whether two states carry the same ledger contents.
// Timestamps on the entity are ignored.
func (s *State) Equal(o *State) bool {
	if s.ID != o.ID || s.Name != o.Name || s.Config != o.Config {
		return false
	}
	if !s.Total.Equal(o.Total) || s.Contributors != o.Contributors ||
		s.Completed != o.Completed || s.Cycle != o.Cycle {
		return false
	}
	if (s.Pending == nil) != (o.Pending == nil) || (s.Pending != nil && *s.Pending != *o.Pending) {
		return false
	}
	if len(s.History) != len(o.History) {
		return false
	}
	for i := range s.History {
		if s.History[i] != o.History[i] {
			return false
		}
	}
	if s.Queue.Len() != o.Queue.Len() {
		return false
	}
	for i := 0; i < s.Queue.Len(); i++ {
		if s.Queue.At(i) != o.Queue.At(i) {
			return false
		}
	}
	return maps.EqualFunc(s.Participants, o.Participants, func(a, b *Participant) bool {
		return *a == *b
	})
}

// ListOpts filters pool listings.
type ListOpts struct {
	Operator types.Identity
	Limit    int
	Offset   int
}
