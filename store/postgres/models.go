package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/journal"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/queue"
	"github.com/xraph/rosca/types"
)

// ==================== Pool models ====================

type poolModel struct {
	grove.BaseModel `grove:"table:rosca_pools"`

	ID              string          `grove:"id,pk"`
	Name            string          `grove:"name"`
	Operator        string          `grove:"operator"`
	Currency        string          `grove:"currency"`
	MinContribution int64           `grove:"min_contribution"`
	Quota           int64           `grove:"quota"`
	Total           int64           `grove:"total"`
	Contributors    int64           `grove:"contributors"`
	Completed       int64           `grove:"completed"`
	Cycle           int64           `grove:"cycle"`
	Participants    json.RawMessage `grove:"participants,type:jsonb"`
	Queue           json.RawMessage `grove:"queue,type:jsonb"`
	Pending         json.RawMessage `grove:"pending,type:jsonb"`
	History         json.RawMessage `grove:"history,type:jsonb"`
	CreatedAt       time.Time       `grove:"created_at"`
	UpdatedAt       time.Time       `grove:"updated_at"`
}

func toPoolModel(s *pool.State) (*poolModel, error) {
	participants, err := json.Marshal(s.Participants)
	if err != nil {
		return nil, fmt.Errorf("encode participants: %w", err)
	}
	q := s.Queue
	if q == nil {
		q = queue.New[types.Identity](0)
	}
	items, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode queue: %w", err)
	}
	pending, err := json.Marshal(s.Pending)
	if err != nil {
		return nil, fmt.Errorf("encode pending: %w", err)
	}
	history := s.History
	if history == nil {
		history = []pool.Payout{}
	}
	hist, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}

	return &poolModel{
		ID:              s.ID.String(),
		Name:            s.Name,
		Operator:        s.Config.Operator.String(),
		Currency:        s.Currency(),
		MinContribution: s.Config.MinContribution.Amount,
		Quota:           int64(s.Config.Quota),
		Total:           s.Total.Amount,
		Contributors:    int64(s.Contributors),
		Completed:       int64(s.Completed),
		Cycle:           int64(s.Cycle),
		Participants:    participants,
		Queue:           items,
		Pending:         pending,
		History:         hist,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}, nil
}

func fromPoolModel(m *poolModel) (*pool.State, error) {
	poolID, err := id.ParsePoolID(m.ID)
	if err != nil {
		return nil, err
	}

	s := &pool.State{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:   poolID,
		Name: m.Name,
		Config: pool.Config{
			Operator:        types.Identity(m.Operator),
			MinContribution: types.New(m.MinContribution, m.Currency),
			Quota:           uint64(m.Quota),
		},
		Participants: make(map[types.Identity]*pool.Participant),
		Queue:        queue.New[types.Identity](0),
		History:      []pool.Payout{},
		Total:        types.New(m.Total, m.Currency),
		Contributors: uint64(m.Contributors),
		Completed:    uint64(m.Completed),
		Cycle:        uint64(m.Cycle),
	}

	if len(m.Participants) > 0 {
		if err := json.Unmarshal(m.Participants, &s.Participants); err != nil {
			return nil, fmt.Errorf("decode participants: %w", err)
		}
	}
	if len(m.Queue) > 0 {
		if err := json.Unmarshal(m.Queue, s.Queue); err != nil {
			return nil, fmt.Errorf("decode queue: %w", err)
		}
	}
	if len(m.Pending) > 0 && string(m.Pending) != "null" {
		s.Pending = new(pool.Request)
		if err := json.Unmarshal(m.Pending, s.Pending); err != nil {
			return nil, fmt.Errorf("decode pending: %w", err)
		}
	}
	if len(m.History) > 0 {
		if err := json.Unmarshal(m.History, &s.History); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
	}
	return s, nil
}

// ==================== Journal models ====================

type journalEntryModel struct {
	grove.BaseModel `grove:"table:rosca_journal"`

	ID        string            `grove:"id,pk"`
	PoolID    string            `grove:"pool_id"`
	Kind      string            `grove:"kind"`
	Cycle     int64             `grove:"cycle"`
	Actor     string            `grove:"actor"`
	Subject   string            `grove:"subject"`
	Amount    int64             `grove:"amount"`
	Total     int64             `grove:"total"`
	Currency  string            `grove:"currency"`
	Metadata  map[string]string `grove:"metadata,type:jsonb"`
	Timestamp time.Time         `grove:"timestamp"`
	CreatedAt time.Time         `grove:"created_at"`
}

func toJournalEntryModel(e *journal.Entry) *journalEntryModel {
	currency := e.Amount.Currency
	if currency == "" {
		currency = e.Total.Currency
	}
	return &journalEntryModel{
		ID:        e.ID.String(),
		PoolID:    e.PoolID.String(),
		Kind:      string(e.Kind),
		Cycle:     int64(e.Cycle),
		Actor:     e.Actor.String(),
		Subject:   e.Subject.String(),
		Amount:    e.Amount.Amount,
		Total:     e.Total.Amount,
		Currency:  currency,
		Metadata:  e.Metadata,
		Timestamp: e.Timestamp,
		CreatedAt: time.Now().UTC(),
	}
}

func fromJournalEntryModel(m *journalEntryModel) (*journal.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	poolID, err := id.ParsePoolID(m.PoolID)
	if err != nil {
		return nil, err
	}

	return &journal.Entry{
		ID:        entryID,
		PoolID:    poolID,
		Kind:      journal.Kind(m.Kind),
		Cycle:     uint64(m.Cycle),
		Actor:     types.Identity(m.Actor),
		Subject:   types.Identity(m.Subject),
		Amount:    types.New(m.Amount, m.Currency),
		Total:     types.New(m.Total, m.Currency),
		Metadata:  m.Metadata,
		Timestamp: m.Timestamp,
	}, nil
}
