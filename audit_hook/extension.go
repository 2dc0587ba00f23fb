// Package audithook bridges pool lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/plugin"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin            = (*Extension)(nil)
	_ plugin.OnPoolCreated     = (*Extension)(nil)
	_ plugin.OnQuotaChanged    = (*Extension)(nil)
	_ plugin.OnCycleAdvanced   = (*Extension)(nil)
	_ plugin.OnFundsReceived   = (*Extension)(nil)
	_ plugin.OnPayoutRequested = (*Extension)(nil)
	_ plugin.OnPayoutMade      = (*Extension)(nil)
	_ plugin.OnTransferFailed  = (*Extension)(nil)
	_ plugin.OnJournalFlushed  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges pool lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Pool hooks
// ──────────────────────────────────────────────────

// OnPoolCreated implements plugin.OnPoolCreated.
func (e *Extension) OnPoolCreated(ctx context.Context, state *pool.State) error {
	return e.record(ctx, ActionPoolCreated, SeverityInfo, OutcomeSuccess,
		ResourcePool, state.ID.String(), CategoryGovernance, nil,
		"name", state.Name,
		"operator", state.Config.Operator.String(),
		"min_contribution", state.Config.MinContribution.String(),
	)
}

// OnQuotaChanged implements plugin.OnQuotaChanged.
func (e *Extension) OnQuotaChanged(ctx context.Context, poolID id.PoolID, oldQuota, newQuota uint64) error {
	return e.record(ctx, ActionQuotaChanged, SeverityInfo, OutcomeSuccess,
		ResourcePool, poolID.String(), CategoryGovernance, nil,
		"old_quota", oldQuota,
		"new_quota", newQuota,
	)
}

// OnCycleAdvanced implements plugin.OnCycleAdvanced.
func (e *Extension) OnCycleAdvanced(ctx context.Context, poolID id.PoolID, cycle uint64) error {
	return e.record(ctx, ActionCycleAdvanced, SeverityInfo, OutcomeSuccess,
		ResourcePool, poolID.String(), CategoryGovernance, nil,
		"cycle", cycle,
	)
}

// ──────────────────────────────────────────────────
// Funds hooks
// ──────────────────────────────────────────────────

// OnFundsReceived implements plugin.OnFundsReceived.
func (e *Extension) OnFundsReceived(ctx context.Context, poolID id.PoolID, contributor types.Identity, amount, total types.Money) error {
	return e.record(ctx, ActionFundsReceived, SeverityInfo, OutcomeSuccess,
		ResourcePool, poolID.String(), CategoryContribution, nil,
		"contributor", contributor.String(),
		"amount", amount.String(),
		"total", total.String(),
	)
}

// OnPayoutRequested implements plugin.OnPayoutRequested.
func (e *Extension) OnPayoutRequested(ctx context.Context, poolID id.PoolID, req *pool.Request) error {
	return e.record(ctx, ActionPayoutRequested, SeverityInfo, OutcomeSuccess,
		ResourceRequest, req.ID.String(), CategoryPayment, nil,
		"pool_id", poolID.String(),
		"requester", req.Requester.String(),
		"amount", req.Amount.String(),
	)
}

// OnPayoutMade implements plugin.OnPayoutMade.
func (e *Extension) OnPayoutMade(ctx context.Context, poolID id.PoolID, operator types.Identity, payout *pool.Payout) error {
	return e.record(ctx, ActionPayoutMade, SeverityInfo, OutcomeSuccess,
		ResourcePayout, payout.ID.String(), CategoryPayment, nil,
		"pool_id", poolID.String(),
		"operator", operator.String(),
		"recipient", payout.Recipient.String(),
		"amount", payout.Amount.String(),
		"cycle", payout.Cycle,
	)
}

// OnTransferFailed implements plugin.OnTransferFailed.
func (e *Extension) OnTransferFailed(ctx context.Context, poolID id.PoolID, req *pool.Request, err error) error {
	return e.record(ctx, ActionTransferFailed, SeverityCritical, OutcomeFailure,
		ResourceRequest, req.ID.String(), CategoryPayment, err,
		"pool_id", poolID.String(),
		"requester", req.Requester.String(),
		"amount", req.Amount.String(),
	)
}

// OnJournalFlushed implements plugin.OnJournalFlushed.
func (e *Extension) OnJournalFlushed(ctx context.Context, count int, elapsed time.Duration) error {
	return e.record(ctx, ActionJournalFlushed, SeverityInfo, OutcomeSuccess,
		ResourceJournal, "", CategoryOperations, nil,
		"count", count,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
