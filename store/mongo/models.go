package mongo

import (
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

	ID              string             `grove:"id,pk"            bson:"_id"`
	Name            string             `grove:"name"             bson:"name"`
	Operator        string             `grove:"operator"         bson:"operator"`
	Currency        string             `grove:"currency"         bson:"currency"`
	MinContribution int64              `grove:"min_contribution" bson:"min_contribution"`
	Quota           int64              `grove:"quota"            bson:"quota"`
	Total           int64              `grove:"total"            bson:"total"`
	Contributors    int64              `grove:"contributors"     bson:"contributors"`
	Completed       int64              `grove:"completed"        bson:"completed"`
	Cycle           int64              `grove:"cycle"            bson:"cycle"`
	Participants    []participantModel `grove:"participants"     bson:"participants"`
	Queue           []string           `grove:"queue"            bson:"queue"`
	Pending         *requestModel      `grove:"pending"          bson:"pending,omitempty"`
	History         []payoutModel      `grove:"history"          bson:"history"`
	CreatedAt       time.Time          `grove:"created_at"       bson:"created_at"`
	UpdatedAt       time.Time          `grove:"updated_at"       bson:"updated_at"`
}

type participantModel struct {
	Identity string    `bson:"identity"`
	Funded   int64     `bson:"funded"`
	Paid     bool      `bson:"paid"`
	JoinedAt time.Time `bson:"joined_at"`
}

type requestModel struct {
	ID          string    `bson:"id"`
	Requester   string    `bson:"requester"`
	Amount      int64     `bson:"amount"`
	RequestedAt time.Time `bson:"requested_at"`
}

type payoutModel struct {
	ID         string    `bson:"id"`
	RequestID  string    `bson:"request_id"`
	Recipient  string    `bson:"recipient"`
	Amount     int64     `bson:"amount"`
	Cycle      int64     `bson:"cycle"`
	ApprovedBy string    `bson:"approved_by"`
	PaidAt     time.Time `bson:"paid_at"`
}

func toPoolModel(s *pool.State) *poolModel {
	m := &poolModel{
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
		Participants:    make([]participantModel, 0, len(s.Participants)),
		Queue:           make([]string, 0),
		History:         make([]payoutModel, 0, len(s.History)),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	for _, p := range s.Participants {
		m.Participants = append(m.Participants, participantModel{
			Identity: p.Identity.String(),
			Funded:   p.Funded.Amount,
			Paid:     p.Paid,
			JoinedAt: p.JoinedAt,
		})
	}
	if s.Queue != nil {
		for _, who := range s.Queue.Items() {
			m.Queue = append(m.Queue, who.String())
		}
	}
	if s.Pending != nil {
		m.Pending = &requestModel{
			ID:          s.Pending.ID.String(),
			Requester:   s.Pending.Requester.String(),
			Amount:      s.Pending.Amount.Amount,
			RequestedAt: s.Pending.RequestedAt,
		}
	}
	for _, h := range s.History {
		m.History = append(m.History, payoutModel{
			ID:         h.ID.String(),
			RequestID:  h.RequestID.String(),
			Recipient:  h.Recipient.String(),
			Amount:     h.Amount.Amount,
			Cycle:      int64(h.Cycle),
			ApprovedBy: h.ApprovedBy.String(),
			PaidAt:     h.PaidAt,
		})
	}
	return m
}

func fromPoolModel(m *poolModel) (*pool.State, error) {
	poolID, err := id.ParsePoolID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse pool id: %w", err)
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
		Participants: make(map[types.Identity]*pool.Participant, len(m.Participants)),
		Queue:        queue.New[types.Identity](len(m.Queue)),
		History:      make([]pool.Payout, 0, len(m.History)),
		Total:        types.New(m.Total, m.Currency),
		Contributors: uint64(m.Contributors),
		Completed:    uint64(m.Completed),
		Cycle:        uint64(m.Cycle),
	}

	for _, p := range m.Participants {
		who := types.Identity(p.Identity)
		s.Participants[who] = &pool.Participant{
			Identity: who,
			Funded:   types.New(p.Funded, m.Currency),
			Paid:     p.Paid,
			JoinedAt: p.JoinedAt,
		}
	}
	for _, who := range m.Queue {
		s.Queue.PushBack(types.Identity(who))
	}
	if m.Pending != nil {
		reqID, err := id.ParseRequestID(m.Pending.ID)
		if err != nil {
			return nil, fmt.Errorf("parse request id: %w", err)
		}
		s.Pending = &pool.Request{
			ID:          reqID,
			Requester:   types.Identity(m.Pending.Requester),
			Amount:      types.New(m.Pending.Amount, m.Currency),
			RequestedAt: m.Pending.RequestedAt,
		}
	}
	for _, h := range m.History {
		payoutID, err := id.ParsePayoutID(h.ID)
		if err != nil {
			return nil, fmt.Errorf("parse payout id: %w", err)
		}
		reqID, err := id.ParseRequestID(h.RequestID)
		if err != nil {
			return nil, fmt.Errorf("parse request id: %w", err)
		}
		s.History = append(s.History, pool.Payout{
			ID:         payoutID,
			RequestID:  reqID,
			Recipient:  types.Identity(h.Recipient),
			Amount:     types.New(h.Amount, m.Currency),
			Cycle:      uint64(h.Cycle),
			ApprovedBy: types.Identity(h.ApprovedBy),
			PaidAt:     h.PaidAt,
		})
	}
	return s, nil
}

// ==================== Journal models ====================

type journalEntryModel struct {
	grove.BaseModel `grove:"table:rosca_journal"`

	ID        string            `grove:"id,pk"      bson:"_id"`
	PoolID    string            `grove:"pool_id"    bson:"pool_id"`
	Kind      string            `grove:"kind"       bson:"kind"`
	Cycle     int64             `grove:"cycle"      bson:"cycle"`
	Actor     string            `grove:"actor"      bson:"actor"`
	Subject   string            `grove:"subject"    bson:"subject,omitempty"`
	Amount    int64             `grove:"amount"     bson:"amount"`
	Total     int64             `grove:"total"      bson:"total"`
	Currency  string            `grove:"currency"   bson:"currency"`
	Metadata  map[string]string `grove:"metadata"   bson:"metadata,omitempty"`
	Timestamp time.Time         `grove:"timestamp"  bson:"timestamp"`
	CreatedAt time.Time         `grove:"created_at" bson:"created_at"`
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
		CreatedAt: now(),
	}
}

func fromJournalEntryModel(m *journalEntryModel) (*journal.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse entry id: %w", err)
	}
	poolID, err := id.ParsePoolID(m.PoolID)
	if err != nil {
		return nil, fmt.Errorf("parse pool id: %w", err)
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

func now() time.Time { return time.Now().UTC() }
