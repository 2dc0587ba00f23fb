package sqlite

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

// SQLite has no JSON column type; nested values are stored as TEXT.

type poolModel struct {
	grove.BaseModel `grove:"table:rosca_pools"`

	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name"`
	Operator        string    `grove:"operator"`
	Currency        string    `grove:"currency"`
	MinContribution int64     `grove:"min_contribution"`
	Quota           int64     `grove:"quota"`
	Total           int64     `grove:"total"`
	Contributors    int64     `grove:"contributors"`
	Completed       int64     `grove:"completed"`
	Cycle           int64     `grove:"cycle"`
	Participants    string    `grove:"participants"`
	Queue           string    `grove:"queue"`
	Pending         string    `grove:"pending"`
	History         string    `grove:"history"`
	CreatedAt       time.Time `grove:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"`
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
	var pending []byte
	if s.Pending != nil {
		if pending, err = json.Marshal(s.Pending); err != nil {
			return nil, fmt.Errorf("encode pending: %w", err)
		}
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
		Participants:    string(participants),
		Queue:           string(items),
		Pending:         string(pending),
		History:         string(hist),
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

	if m.Participants != "" {
		if err := json.Unmarshal([]byte(m.Participants), &s.Participants); err != nil {
			return nil, fmt.Errorf("decode participants: %w", err)
		}
	}
	if m.Queue != "" {
		if err := json.Unmarshal([]byte(m.Queue), s.Queue); err != nil {
			return nil, fmt.Errorf("decode queue: %w", err)
		}
	}
	if m.Pending != "" && m.Pending != "null" {
		s.Pending = new(pool.Request)
		if err := json.Unmarshal([]byte(m.Pending), s.Pending); err != nil {
			return nil, fmt.Errorf("decode pending: %w", err)
		}
	}
	if m.History != "" {
		if err := json.Unmarshal([]byte(m.History), &s.History); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
	}
	return s, nil
}

type journalEntryModel struct {
	grove.BaseModel `grove:"table:rosca_journal"`

	ID        string    `grove:"id,pk"`
	PoolID    string    `grove:"pool_id"`
	Kind      string    `grove:"kind"`
	Cycle     int64     `grove:"cycle"`
	Actor     string    `grove:"actor"`
	Subject   string    `grove:"subject"`
	Amount    int64     `grove:"amount"`
	Total     int64     `grove:"total"`
	Currency  string    `grove:"currency"`
	Metadata  string    `grove:"metadata"`
	Timestamp time.Time `grove:"timestamp"`
	CreatedAt time.Time `grove:"created_at"`
}

func toJournalEntryModel(e *journal.Entry) *journalEntryModel {
	currency := e.Amount.Currency
	if currency == "" {
		currency = e.Total.Currency
	}
	meta := "{}"
	if len(e.Metadata) > 0 {
		if b, err := json.Marshal(e.Metadata); err == nil {
			meta = string(b)
		}
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
		Metadata:  meta,
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

	var meta map[string]string
	if m.Metadata != "" && m.Metadata != "{}" {
		if err := json.Unmarshal([]byte(m.Metadata), &meta); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
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
		Metadata:  meta,
		Timestamp: m.Timestamp,
	}, nil
}
