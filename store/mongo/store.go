package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/rosca"
	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/journal"
	"github.com/xraph/rosca/pool"
	roscastore "github.com/xraph/rosca/store"
)

// Collection name constants.
const (
	colPools   = "rosca_pools"
	colJournal = "rosca_journal"
)

// compile-time interface check
var _ roscastore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all rosca collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("rosca/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Pool Store ====================

func (s *Store) CreatePool(ctx context.Context, p *pool.State) error {
	m := toPoolModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return rosca.ErrAlreadyExists
		}
		return fmt.Errorf("rosca/mongo: create pool: %w", err)
	}
	return nil
}

func (s *Store) GetPool(ctx context.Context, poolID id.PoolID) (*pool.State, error) {
	var m poolModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": poolID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, rosca.ErrPoolNotFound
		}
		return nil, fmt.Errorf("rosca/mongo: get pool: %w", err)
	}
	return fromPoolModel(&m)
}

func (s *Store) SavePool(ctx context.Context, p *pool.State) error {
	m := toPoolModel(p)

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rosca/mongo: save pool: %w", err)
	}
	if res.MatchedCount() == 0 {
		return rosca.ErrPoolNotFound
	}
	return nil
}

func (s *Store) ListPools(ctx context.Context, opts pool.ListOpts) ([]*pool.State, error) {
	var models []poolModel

	filter := bson.M{}
	if !opts.Operator.IsZero() {
		filter["operator"] = opts.Operator.String()
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("rosca/mongo: list pools: %w", err)
	}

	result := make([]*pool.State, len(models))
	for i := range models {
		p, err := fromPoolModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("rosca/mongo: list pools: %w", err)
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) DeletePool(ctx context.Context, poolID id.PoolID) error {
	res, err := s.mdb.NewDelete((*poolModel)(nil)).
		Filter(bson.M{"_id": poolID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rosca/mongo: delete pool: %w", err)
	}
	if res.DeletedCount() == 0 {
		return rosca.ErrPoolNotFound
	}
	return nil
}

// ==================== Journal Store ====================

func (s *Store) AppendJournal(ctx context.Context, entries []*journal.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		m := toJournalEntryModel(e)
		_, err := s.mdb.NewInsert(m).Exec(ctx)
		if err != nil {
			// Entries are retried by id; a duplicate was already written.
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("rosca/mongo: append journal: %w", err)
		}
	}
	return nil
}

func (s *Store) QueryJournal(ctx context.Context, poolID id.PoolID, opts journal.QueryOpts) ([]*journal.Entry, error) {
	var models []journalEntryModel

	filter := bson.M{"pool_id": poolID.String()}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	if !opts.Start.IsZero() || !opts.End.IsZero() {
		ts := bson.M{}
		if !opts.Start.IsZero() {
			ts["$gte"] = opts.Start
		}
		if !opts.End.IsZero() {
			ts["$lt"] = opts.End
		}
		filter["timestamp"] = ts
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "timestamp", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("rosca/mongo: query journal: %w", err)
	}

	result := make([]*journal.Entry, len(models))
	for i := range models {
		e, err := fromJournalEntryModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("rosca/mongo: query journal: %w", err)
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) PurgeJournal(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*journalEntryModel)(nil)).
		Filter(bson.M{"timestamp": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("rosca/mongo: purge journal: %w", err)
	}
	return res.DeletedCount(), nil
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all rosca collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colPools: {
			{Keys: bson.D{{Key: "operator", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colJournal: {
			{Keys: bson.D{{Key: "pool_id", Value: 1}, {Key: "timestamp", Value: 1}}},
			{Keys: bson.D{{Key: "pool_id", Value: 1}, {Key: "kind", Value: 1}}},
			{Keys: bson.D{{Key: "timestamp", Value: 1}}},
		},
	}
}
