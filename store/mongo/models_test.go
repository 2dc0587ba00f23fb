package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/journal"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/types"
)

func samplePool() *pool.State {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := pool.NewState("circle", pool.Config{
		Operator:        "op",
		MinContribution: types.USD(50),
		Quota:           2,
	}, now)
	s.Participants["alice"] = &pool.Participant{Identity: "alice", Funded: types.USD(100), JoinedAt: now}
	s.Participants["bob"] = &pool.Participant{Identity: "bob", Funded: types.USD(75), JoinedAt: now}
	s.Queue.PushBack("alice")
	s.Queue.PushBack("bob")
	s.Pending = &pool.Request{ID: id.NewRequestID(), Requester: "alice", Amount: types.USD(175), RequestedAt: now}
	s.History = append(s.History, pool.Payout{
		ID: id.NewPayoutID(), RequestID: id.NewRequestID(), Recipient: "carol",
		Amount: types.USD(10), Cycle: 1, ApprovedBy: "op", PaidAt: now,
	})
	s.Total = types.USD(175)
	s.Contributors = 2
	s.Completed = 1
	return s
}

func TestPoolModelRoundTrip(t *testing.T) {
	in := samplePool()
	m := toPoolModel(in)
	assert.Equal(t, "usd", m.Currency)
	assert.Equal(t, []string{"alice", "bob"}, m.Queue)
	assert.Len(t, m.Participants, 2)

	out, err := fromPoolModel(m)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))

	in.Pending = nil
	out, err = fromPoolModel(toPoolModel(in))
	require.NoError(t, err)
	assert.Nil(t, out.Pending)
}

func TestJournalEntryModelRoundTrip(t *testing.T) {
	in := &journal.Entry{
		ID: id.NewEntryID(), PoolID: id.NewPoolID(), Kind: journal.KindPayout, Cycle: 3,
		Actor: "op", Subject: "alice", Amount: types.USD(175), Total: types.USD(0),
		Metadata: map[string]string{"request_id": "req_x"}, Timestamp: time.Now().UTC(),
	}
	out, err := fromJournalEntryModel(toJournalEntryModel(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
