package audithook_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audithook "github.com/xraph/rosca/audit_hook"
	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/types"
)

type memoryRecorder struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (r *memoryRecorder) Record(_ context.Context, evt *audithook.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *memoryRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

func TestRecordsPoolLifecycle(t *testing.T) {
	ctx := context.Background()
	rec := &memoryRecorder{}
	ext := audithook.New(rec)
	pid := id.NewPoolID()
	req := &pool.Request{ID: id.NewRequestID(), Requester: "alice", Amount: types.USD(200)}

	state := pool.NewState("circle", pool.Config{Operator: "op", MinContribution: types.USD(50)}, time.Now())
	require.NoError(t, ext.OnPoolCreated(ctx, state))
	require.NoError(t, ext.OnQuotaChanged(ctx, pid, 0, 2))
	require.NoError(t, ext.OnFundsReceived(ctx, pid, "alice", types.USD(100), types.USD(100)))
	require.NoError(t, ext.OnPayoutRequested(ctx, pid, req))
	require.NoError(t, ext.OnPayoutMade(ctx, pid, "op", &pool.Payout{ID: id.NewPayoutID(), Recipient: "alice", Amount: types.USD(200), Cycle: 1}))
	require.NoError(t, ext.OnCycleAdvanced(ctx, pid, 2))
	require.NoError(t, ext.OnJournalFlushed(ctx, 6, time.Millisecond))

	assert.Equal(t, []string{
		audithook.ActionPoolCreated,
		audithook.ActionQuotaChanged,
		audithook.ActionFundsReceived,
		audithook.ActionPayoutRequested,
		audithook.ActionPayoutMade,
		audithook.ActionCycleAdvanced,
		audithook.ActionJournalFlushed,
	}, rec.actions())

	quota := rec.events[1]
	assert.Equal(t, pid.String(), quota.ResourceID)
	assert.Equal(t, uint64(2), quota.Metadata["new_quota"])
	assert.Equal(t, audithook.OutcomeSuccess, quota.Outcome)
}

func TestTransferFailureIsCritical(t *testing.T) {
	rec := &memoryRecorder{}
	ext := audithook.New(rec)
	req := &pool.Request{ID: id.NewRequestID(), Requester: "alice", Amount: types.USD(200)}

	require.NoError(t, ext.OnTransferFailed(context.Background(), id.NewPoolID(), req, errors.New("bank down")))

	require.Len(t, rec.events, 1)
	evt := rec.events[0]
	assert.Equal(t, audithook.SeverityCritical, evt.Severity)
	assert.Equal(t, audithook.OutcomeFailure, evt.Outcome)
	assert.Equal(t, "bank down", evt.Reason)
	assert.Equal(t, req.ID.String(), evt.ResourceID)
}

func TestActionFilters(t *testing.T) {
	ctx := context.Background()
	pid := id.NewPoolID()

	rec := &memoryRecorder{}
	ext := audithook.New(rec, audithook.WithEnabledActions(audithook.ActionCycleAdvanced))
	require.NoError(t, ext.OnQuotaChanged(ctx, pid, 0, 1))
	require.NoError(t, ext.OnCycleAdvanced(ctx, pid, 2))
	assert.Equal(t, []string{audithook.ActionCycleAdvanced}, rec.actions())

	rec = &memoryRecorder{}
	ext = audithook.New(rec, audithook.WithDisabledActions(audithook.ActionJournalFlushed))
	require.NoError(t, ext.OnJournalFlushed(ctx, 1, time.Millisecond))
	require.NoError(t, ext.OnQuotaChanged(ctx, pid, 0, 1))
	assert.Equal(t, []string{audithook.ActionQuotaChanged}, rec.actions())
}

func TestRecorderErrorIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("unavailable")
	}))
	assert.NoError(t, ext.OnCycleAdvanced(context.Background(), id.NewPoolID(), 3))
}
