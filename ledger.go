package rosca

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/queue"
	"github.com/xraph/rosca/types"
)

// Ledger is the state machine of a single pool.
//
// A Ledger performs no locking. Callers must serialize operations on the
// same pool; the Engine does this with a per-pool lock.
type Ledger struct {
	state    *pool.State
	transfer Transferer
	clock    clockwork.Clock
	events   []Event
}

// NewPool validates cfg and returns the state of a new pool. A zero
// MinContribution falls back to DefaultMinContribution in currency. Every
// invalid field is reported in a MultiError.
func NewPool(name string, cfg pool.Config, currency string, now time.Time) (*pool.State, error) {
	var errs MultiError
	if cfg.Operator.IsZero() {
		errs.Add(ValidationError{Field: "operator", Message: "required"})
	}
	if cfg.MinContribution == (types.Money{}) {
		if currency == "" {
			errs.Add(ValidationError{Field: "currency", Message: "required"})
		} else {
			cfg.MinContribution = types.New(pool.DefaultMinContribution, currency)
		}
	} else {
		if cfg.MinContribution.Currency == "" {
			errs.Add(ValidationError{Field: "min_contribution", Message: "currency required"})
		}
		if cfg.MinContribution.IsNegative() {
			errs.Add(ValidationError{Field: "min_contribution", Message: "must not be negative"})
		}
	}
	if errs.HasErrors() {
		return nil, errs
	}
	return pool.NewState(name, cfg, now), nil
}

// NewLedger wraps state. The Ledger mutates state in place.
func NewLedger(state *pool.State, t Transferer) *Ledger {
	if state.Participants == nil {
		state.Participants = make(map[types.Identity]*pool.Participant)
	}
	if state.Queue == nil {
		state.Queue = queue.New[types.Identity](0)
	}
	if state.Cycle == 0 {
		state.Cycle = pool.FirstCycle
	}
	return &Ledger{
		state:    state,
		transfer: t,
		clock:    clockwork.NewRealClock(),
	}
}

// WithClock sets the clock used to timestamp records.
func (l *Ledger) WithClock(c clockwork.Clock) *Ledger {
	l.clock = c
	return l
}

// State returns the live state. Mutating it bypasses the ledger rules.
func (l *Ledger) State() *pool.State { return l.state }

// Snapshot returns a deep copy of the current state.
func (l *Ledger) Snapshot() *pool.State { return l.state.Clone() }

// DrainEvents returns the events produced since the last call and forgets them.
func (l *Ledger) DrainEvents() []Event {
	out := l.events
	l.events = nil
	return out
}

// ──────────────────────────────────────────────────
// Operator actions
// ──────────────────────────────────────────────────

// SetQuota replaces the participant quota. Any value is accepted.
func (l *Ledger) SetQuota(caller types.Identity, quota uint64) error {
	if caller != l.state.Config.Operator {
		return ErrNotOperator
	}
	old := l.state.Config.Quota
	l.state.Config.Quota = quota
	now := l.now()
	l.state.Touch(now)
	l.emit(QuotaChanged{Pool: l.state.ID, Operator: caller, Old: old, New: quota, At: now})
	return nil
}

// ApprovePayout pays the pending request. The transfer runs before any
// state changes; if it fails the request stays pending and nothing else
// moves. A non-empty requester must match the pending request. The transfer
// is keyed by PayoutKey.
func (l *Ledger) ApprovePayout(ctx context.Context, caller, requester types.Identity) error {
	s := l.state
	if caller != s.Config.Operator {
		return ErrNotOperator
	}
	if s.Pending == nil {
		return ErrNoPendingRequest
	}
	if !requester.IsZero() && requester != s.Pending.Requester {
		return fmt.Errorf("%w from %s", ErrNoPendingRequest, requester)
	}
	req := *s.Pending
	remaining, err := s.Total.CheckedSubtract(req.Amount)
	if err != nil {
		return ValidationError{Field: "pending_request", Message: err.Error()}
	}
	if remaining.IsNegative() {
		return ValidationError{Field: "pending_request", Message: fmt.Sprintf("amount %s exceeds pool total %s", req.Amount, s.Total)}
	}

	if err := l.transfer.Transfer(ctx, PayoutKey(s), s.ID, req.Requester, req.Amount); err != nil {
		l.emit(TransferFailed{Pool: s.ID, Request: req, Err: err, At: l.now()})
		return fmt.Errorf("%w: %w", ErrTransferFailure, err)
	}

	now := l.now()
	payout := pool.Payout{
		ID:         id.NewPayoutID(),
		RequestID:  req.ID,
		Recipient:  req.Requester,
		Amount:     req.Amount,
		Cycle:      s.Cycle,
		ApprovedBy: caller,
		PaidAt:     now,
	}

	s.Pending = nil
	s.Queue.PopFront()
	s.Completed++
	s.History = append(s.History, payout)
	s.Total = remaining
	for _, p := range s.Participants {
		p.Paid = false
	}
	s.Touch(now)

	l.emit(PayoutMade{Pool: s.ID, From: caller, To: req.Requester, Value: req.Amount, Payout: payout})
	l.NextCycle()
	return nil
}

// ──────────────────────────────────────────────────
// Participant actions
// ──────────────────────────────────────────────────

// Contribute records value from caller and enqueues caller for payout.
// The quota does not cap contributions.
func (l *Ledger) Contribute(caller types.Identity, value types.Money) error {
	s := l.state
	if caller.IsZero() {
		return ValidationError{Field: "caller", Message: "required"}
	}
	if _, ok := s.Participants[caller]; ok {
		return ErrAlreadyContributed
	}
	floor := s.Config.MinContribution
	if !value.Compatible(floor) || value.Currency == "" {
		return ValidationError{Field: "amount", Message: fmt.Sprintf("expected currency %q, got %q", floor.Currency, value.Currency)}
	}
	if value.LessThan(floor) {
		return ErrAmountTooLow
	}
	total, err := s.Total.CheckedAdd(value)
	if err != nil {
		return ValidationError{Field: "amount", Message: err.Error()}
	}

	now := l.now()
	s.Queue.PushBack(caller)
	s.Contributors++
	if p, ok := s.Participants[caller]; ok {
		p.Funded = p.Funded.Add(value)
		p.Paid = false
	} else {
		s.Participants[caller] = &pool.Participant{Identity: caller, Funded: value, JoinedAt: now}
	}
	s.Total = total
	s.Touch(now)

	l.emit(FundsReceived{Pool: s.ID, From: types.Nobody, To: caller, Value: total, Amount: value, Cycle: s.Cycle, At: now})
	return nil
}

// RequestPayout records a payout request for the queue head. The request
// amount is the pool total at this moment. A second request before approval
// replaces the first.
func (l *Ledger) RequestPayout(caller types.Identity) error {
	s := l.state
	if s.Contributors != s.Config.Quota {
		return ErrNotPaymentPhase
	}
	head, ok := s.Queue.Front()
	if !ok || head != caller {
		return ErrNotNextInQueue
	}

	now := l.now()
	req := pool.Request{
		ID:          id.NewRequestID(),
		Requester:   caller,
		Amount:      s.Total,
		RequestedAt: now,
	}
	s.Pending = &req
	s.Touch(now)

	l.emit(PayoutRequested{Pool: s.ID, Request: req, Cycle: s.Cycle})
	return nil
}

// NextCycle rolls the pool into a new cycle when every queued participant is
// paid and the history holds one entry per participant. It reports whether
// the cycle advanced.
func (l *Ledger) NextCycle() bool {
	s := l.state
	if !l.AllPaid() || uint64(len(s.History)) != s.Contributors {
		return false
	}

	now := l.now()
	clear(s.Participants)
	s.History = []pool.Payout{}
	s.Contributors = 0
	s.Cycle++
	s.Completed = 0
	s.Touch(now)

	l.emit(CycleAdvanced{Pool: s.ID, Cycle: s.Cycle, At: now})
	return true
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// Quota returns the participant quota.
func (l *Ledger) Quota() uint64 { return l.state.Config.Quota }

// Operator returns the identity allowed to approve payouts and set the quota.
func (l *Ledger) Operator() types.Identity { return l.state.Config.Operator }

// MinContribution returns the contribution floor.
func (l *Ledger) MinContribution() types.Money { return l.state.Config.MinContribution }

// NextRequester returns the queue head.
func (l *Ledger) NextRequester() (types.Identity, bool) { return l.state.Queue.Front() }

// AllPaid reports whether every queued identity has its paid flag set.
// An identity without a record counts as unpaid.
func (l *Ledger) AllPaid() bool {
	s := l.state
	for i := 0; i < s.Queue.Len(); i++ {
		p, ok := s.Participants[s.Queue.At(i)]
		if !ok || !p.Paid {
			return false
		}
	}
	return true
}

// CompletedPayouts returns the number of payouts approved this cycle.
func (l *Ledger) CompletedPayouts() uint64 { return l.state.Completed }

// PayoutHistory returns the payouts of the current cycle, oldest first.
func (l *Ledger) PayoutHistory() []pool.Payout {
	return append([]pool.Payout{}, l.state.History...)
}

// TotalSupply returns the funds held by the pool.
func (l *Ledger) TotalSupply() types.Money { return l.state.Total }

// TotalContributors returns the participant count of the current cycle.
func (l *Ledger) TotalContributors() uint64 { return l.state.Contributors }

// BalanceOf returns the amount recorded for who, or zero.
func (l *Ledger) BalanceOf(who types.Identity) types.Money {
	if p, ok := l.state.Participants[who]; ok {
		return p.Funded
	}
	return types.Zero(l.state.Currency())
}

// Contributors lists queued identities with their balances in queue order.
func (l *Ledger) Contributors() []pool.Contributor {
	s := l.state
	out := make([]pool.Contributor, 0, s.Queue.Len())
	for i := 0; i < s.Queue.Len(); i++ {
		who := s.Queue.At(i)
		out = append(out, pool.Contributor{Identity: who, Balance: l.BalanceOf(who)})
	}
	return out
}

// Cycle returns the current cycle number.
func (l *Ledger) Cycle() uint64 { return l.state.Cycle }

// PendingRequest returns a copy of the pending request, if any.
func (l *Ledger) PendingRequest() (pool.Request, bool) {
	if l.state.Pending == nil {
		return pool.Request{}, false
	}
	return *l.state.Pending, true
}

func (l *Ledger) now() time.Time { return l.clock.Now().UTC() }

func (l *Ledger) emit(e Event) { l.events = append(l.events, e) }
