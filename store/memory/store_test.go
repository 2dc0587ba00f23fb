package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/rosca"
	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/journal"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/store"
	"github.com/xraph/rosca/store/memory"
	"github.com/xraph/rosca/types"
)

var _ store.Store = (*memory.Store)(nil)

func newPool(t *testing.T, operator types.Identity, created time.Time) *pool.State {
	t.Helper()
	s, err := rosca.NewPool("circle", pool.Config{Operator: operator}, "usd", created)
	require.NoError(t, err)
	return s
}

func TestPoolRoundTripIsIsolated(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	p := newPool(t, "op", time.Now())

	require.NoError(t, s.CreatePool(ctx, p))
	require.ErrorIs(t, s.CreatePool(ctx, p), rosca.ErrAlreadyExists)

	// Mutating the caller's copy does not reach the store.
	p.Queue.PushBack("alice")
	got, err := s.GetPool(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Queue.Len())

	// Mutating a loaded copy does not either.
	got.Participants["bob"] = &pool.Participant{Identity: "bob"}
	again, err := s.GetPool(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Participants)

	require.NoError(t, s.SavePool(ctx, got))
	saved, err := s.GetPool(ctx, p.ID)
	require.NoError(t, err)
	assert.Contains(t, saved.Participants, types.Identity("bob"))
}

func TestGetMissingPool(t *testing.T) {
	s := memory.New()
	_, err := s.GetPool(context.Background(), id.NewPoolID())
	require.ErrorIs(t, err, rosca.ErrPoolNotFound)
	require.ErrorIs(t, s.DeletePool(context.Background(), id.NewPoolID()), rosca.ErrPoolNotFound)
	require.ErrorIs(t, s.SavePool(context.Background(), newPool(t, "op", time.Now())), rosca.ErrPoolNotFound)
}

func TestListPools(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []id.PoolID
	for i := range 4 {
		op := types.Identity("op-a")
		if i%2 == 1 {
			op = "op-b"
		}
		p := newPool(t, op, base.Add(time.Duration(i)*time.Hour))
		ids = append(ids, p.ID)
		require.NoError(t, s.CreatePool(ctx, p))
	}

	all, err := s.ListPools(ctx, pool.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, ids[0], all[0].ID)

	mine, err := s.ListPools(ctx, pool.ListOpts{Operator: "op-b"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, ids[1], mine[0].ID)

	page, err := s.ListPools(ctx, pool.ListOpts{Limit: 2, Offset: 3})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[3], page[0].ID)

	empty, err := s.ListPools(ctx, pool.ListOpts{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.DeletePool(ctx, ids[0]))
	all, err = s.ListPools(ctx, pool.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	pid := id.NewPoolID()
	other := id.NewPoolID()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	entries := []*journal.Entry{
		{ID: id.NewEntryID(), PoolID: pid, Kind: journal.KindContribution, Actor: "alice", Amount: types.USD(100), Timestamp: base},
		{ID: id.NewEntryID(), PoolID: pid, Kind: journal.KindPayoutRequested, Actor: "alice", Timestamp: base.Add(time.Hour)},
		{ID: id.NewEntryID(), PoolID: pid, Kind: journal.KindPayout, Actor: "op", Subject: "alice", Timestamp: base.Add(2 * time.Hour)},
		{ID: id.NewEntryID(), PoolID: other, Kind: journal.KindContribution, Actor: "bob", Timestamp: base},
	}
	require.NoError(t, s.AppendJournal(ctx, entries))

	got, err := s.QueryJournal(ctx, pid, journal.QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = s.QueryJournal(ctx, pid, journal.QueryOpts{Kind: journal.KindPayout})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.Identity("alice"), got[0].Subject)

	got, err = s.QueryJournal(ctx, pid, journal.QueryOpts{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, journal.KindPayoutRequested, got[0].Kind)

	purged, err := s.PurgeJournal(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	got, err = s.QueryJournal(ctx, other, journal.QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Ping(ctx), rosca.ErrStoreClosed)
	require.ErrorIs(t, s.CreatePool(ctx, newPool(t, "op", time.Now())), rosca.ErrStoreClosed)
}
