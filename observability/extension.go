// Package observability provides a metrics extension for rosca that records
// pool lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/plugin"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin            = (*MetricsExtension)(nil)
	_ plugin.OnInit            = (*MetricsExtension)(nil)
	_ plugin.OnPoolCreated     = (*MetricsExtension)(nil)
	_ plugin.OnQuotaChanged    = (*MetricsExtension)(nil)
	_ plugin.OnCycleAdvanced   = (*MetricsExtension)(nil)
	_ plugin.OnFundsReceived   = (*MetricsExtension)(nil)
	_ plugin.OnPayoutRequested = (*MetricsExtension)(nil)
	_ plugin.OnPayoutMade      = (*MetricsExtension)(nil)
	_ plugin.OnTransferFailed  = (*MetricsExtension)(nil)
	_ plugin.OnJournalFlushed  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide pool metrics.
// Register it as a plugin to automatically track pool activity.
type MetricsExtension struct {
	factory MetricFactory

	// Pool metrics
	PoolsCreated   Counter
	QuotaChanges   Counter
	CyclesAdvanced Counter

	// Funds metrics
	Contributions      Counter
	ContributionAmount Histogram
	PayoutRequests     Counter
	Payouts            Counter
	PayoutAmount       Histogram
	TransferFailures   Counter

	// Journal metrics
	JournalEntries      Counter
	JournalBatchSize    Histogram
	JournalFlushLatency Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions or NewPrometheusFactory elsewhere.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		PoolsCreated:   factory.Counter("rosca.pool.created"),
		QuotaChanges:   factory.Counter("rosca.pool.quota_changed"),
		CyclesAdvanced: factory.Counter("rosca.pool.cycle_advanced"),

		Contributions:      factory.Counter("rosca.funds.contributions"),
		ContributionAmount: factory.Histogram("rosca.funds.contribution_amount"),
		PayoutRequests:     factory.Counter("rosca.payout.requested"),
		Payouts:            factory.Counter("rosca.payout.made"),
		PayoutAmount:       factory.Histogram("rosca.payout.amount"),
		TransferFailures:   factory.Counter("rosca.payout.transfer_failed"),

		JournalEntries:      factory.Counter("rosca.journal.entries"),
		JournalBatchSize:    factory.Histogram("rosca.journal.batch_size"),
		JournalFlushLatency: factory.Histogram("rosca.journal.flush_latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// OnPoolCreated implements plugin.OnPoolCreated.
func (m *MetricsExtension) OnPoolCreated(_ context.Context, _ *pool.State) error {
	m.PoolsCreated.Inc()
	return nil
}

// OnQuotaChanged implements plugin.OnQuotaChanged.
func (m *MetricsExtension) OnQuotaChanged(_ context.Context, _ id.PoolID, _, _ uint64) error {
	m.QuotaChanges.Inc()
	return nil
}

// OnCycleAdvanced implements plugin.OnCycleAdvanced.
func (m *MetricsExtension) OnCycleAdvanced(_ context.Context, _ id.PoolID, _ uint64) error {
	m.CyclesAdvanced.Inc()
	return nil
}

// OnFundsReceived implements plugin.OnFundsReceived.
func (m *MetricsExtension) OnFundsReceived(_ context.Context, _ id.PoolID, _ types.Identity, amount, _ types.Money) error {
	m.Contributions.Inc()
	m.ContributionAmount.Observe(float64(amount.Amount))
	return nil
}

// OnPayoutRequested implements plugin.OnPayoutRequested.
func (m *MetricsExtension) OnPayoutRequested(_ context.Context, _ id.PoolID, _ *pool.Request) error {
	m.PayoutRequests.Inc()
	return nil
}

// OnPayoutMade implements plugin.OnPayoutMade.
func (m *MetricsExtension) OnPayoutMade(_ context.Context, _ id.PoolID, _ types.Identity, payout *pool.Payout) error {
	m.Payouts.Inc()
	m.PayoutAmount.Observe(float64(payout.Amount.Amount))
	return nil
}

// OnTransferFailed implements plugin.OnTransferFailed.
func (m *MetricsExtension) OnTransferFailed(_ context.Context, _ id.PoolID, _ *pool.Request, _ error) error {
	m.TransferFailures.Inc()
	return nil
}

// OnJournalFlushed implements plugin.OnJournalFlushed.
func (m *MetricsExtension) OnJournalFlushed(_ context.Context, count int, elapsed time.Duration) error {
	m.JournalEntries.Add(float64(count))
	m.JournalBatchSize.Observe(float64(count))
	m.JournalFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
