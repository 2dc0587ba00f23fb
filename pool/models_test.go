package pool

import (
	"testing"
	"time"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/types"
)

func sampleState() *State {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewState("savings", Config{Operator: "op", MinContribution: types.USD(50), Quota: 2}, now)
	s.Participants["alice"] = &Participant{Identity: "alice", Funded: types.USD(100), JoinedAt: now}
	s.Queue.PushBack("alice")
	s.Contributors = 1
	s.Total = types.USD(100)
	s.Pending = &Request{ID: id.NewRequestID(), Requester: "alice", Amount: types.USD(100), RequestedAt: now}
	s.History = append(s.History, Payout{ID: id.NewPayoutID(), Recipient: "bob", Amount: types.USD(10), Cycle: 1})
	return s
}

func TestNewStateDefaults(t *testing.T) {
	s := NewState("p", Config{Operator: "op", MinContribution: types.EUR(DefaultMinContribution)}, time.Now())
	if s.Cycle != FirstCycle {
		t.Errorf("Cycle: got %d, want %d", s.Cycle, FirstCycle)
	}
	if s.Config.Quota != 0 {
		t.Errorf("Quota: got %d, want 0", s.Config.Quota)
	}
	if !s.Total.Equal(types.EUR(0)) {
		t.Errorf("Total: got %v", s.Total)
	}
	if s.Queue.Len() != 0 || len(s.History) != 0 || s.Pending != nil {
		t.Error("new state should be empty")
	}
	if s.ID.Prefix() != id.PrefixPool {
		t.Errorf("ID prefix: got %q", s.ID.Prefix())
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := sampleState()
	c := s.Clone()
	if !s.Equal(c) {
		t.Fatal("clone should equal original")
	}

	c.Participants["alice"].Paid = true
	c.Queue.PopFront()
	c.Pending.Amount = types.USD(1)
	c.History[0].Amount = types.USD(2)

	if s.Participants["alice"].Paid {
		t.Error("participant shared with clone")
	}
	if s.Queue.Len() != 1 {
		t.Error("queue shared with clone")
	}
	if !s.Pending.Amount.Equal(types.USD(100)) {
		t.Error("pending shared with clone")
	}
	if !s.History[0].Amount.Equal(types.USD(10)) {
		t.Error("history shared with clone")
	}
	if s.Equal(c) {
		t.Error("mutated clone should differ")
	}
}
