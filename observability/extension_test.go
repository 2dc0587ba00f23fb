package observability_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/observability"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/types"
)

func TestMetricsExtensionCounts(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))
	pid := id.NewPoolID()

	require.NoError(t, m.OnPoolCreated(ctx, &pool.State{}))
	require.NoError(t, m.OnFundsReceived(ctx, pid, "alice", types.USD(100), types.USD(100)))
	require.NoError(t, m.OnFundsReceived(ctx, pid, "bob", types.USD(300), types.USD(400)))
	require.NoError(t, m.OnPayoutMade(ctx, pid, "op", &pool.Payout{Amount: types.USD(400)}))
	require.NoError(t, m.OnTransferFailed(ctx, pid, &pool.Request{}, errors.New("x")))
	require.NoError(t, m.OnJournalFlushed(ctx, 5, 3*time.Millisecond))

	assert.InDelta(t, 1, testutil.ToFloat64(m.PoolsCreated.(prometheus.Counter)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Contributions.(prometheus.Counter)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Payouts.(prometheus.Counter)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TransferFailures.(prometheus.Counter)), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(m.JournalEntries.(prometheus.Counter)), 0)

	expected := `
# HELP rosca_pool_created_total Total rosca pool created
# TYPE rosca_pool_created_total counter
rosca_pool_created_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "rosca_pool_created_total"))
}

func TestPrometheusFactoryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := observability.NewPrometheusFactory(reg)

	a := f.Counter("rosca.pool.created")
	b := f.Counter("rosca.pool.created")
	a.Inc()
	b.Inc()
	assert.InDelta(t, 2, testutil.ToFloat64(a.(prometheus.Counter)), 0)

	// A second factory on the same registry shares the registered counter.
	c := observability.NewPrometheusFactory(reg).Counter("rosca.pool.created")
	c.Inc()
	assert.InDelta(t, 3, testutil.ToFloat64(a.(prometheus.Counter)), 0)
}

func TestMetricName(t *testing.T) {
	assert.Equal(t, "rosca_journal_flush_latency_ms", observability.MetricName("rosca.journal.flush_latency_ms"))
	assert.Equal(t, "rosca_audit_hook", observability.MetricName("rosca.audit-hook"))
}
