package extension

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/rosca"
	"github.com/xraph/rosca/bank"
	"github.com/xraph/rosca/journal"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/store/memory"
)

type countingStore struct {
	*memory.Store

	mu         sync.Mutex
	migrations int
}

func (s *countingStore) Migrate(ctx context.Context) error {
	s.mu.Lock()
	s.migrations++
	s.mu.Unlock()
	return s.Store.Migrate(ctx)
}

func (s *countingStore) Migrations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.migrations
}

// newStartedExtension wires an engine the way Register does, without a Forge app.
func newStartedExtension(t *testing.T, opts ...Option) (*Extension, *countingStore) {
	t.Helper()
	st := &countingStore{Store: memory.New()}
	e := New(append([]Option{WithStore(st), WithJournalBatchSize(1)}, opts...)...)
	e.config = mergeWithDefaults(e.config)
	e.engine = rosca.NewEngine(e.store, bank.NewVault(), e.buildEngineOpts()...)

	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() { _ = e.Stop(context.Background()) })
	return e, st
}

func TestStartWithDisableMigrateRunsJournal(t *testing.T) {
	e, st := newStartedExtension(t, WithDisableMigrate())
	ctx := context.Background()
	assert.True(t, e.IsStarted())

	p, err := e.Engine().CreatePool(ctx, "circle", pool.Config{Operator: "op"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		entries, err := e.Engine().Journal(ctx, p.ID, journal.QueryOpts{})
		return err == nil && len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, st.Migrations())
}

func TestStartMigratesByDefault(t *testing.T) {
	_, st := newStartedExtension(t)
	assert.Equal(t, 1, st.Migrations())
}

func TestStartRequiresRegister(t *testing.T) {
	require.Error(t, New().Start(context.Background()))
}

func TestHealthBeforeRegister(t *testing.T) {
	require.ErrorIs(t, New().Health(context.Background()), rosca.ErrStoreNotReady)
}
