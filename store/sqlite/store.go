package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/rosca"
	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/journal"
	"github.com/xraph/rosca/pool"
	roscastore "github.com/xraph/rosca/store"
)

// compile-time interface check
var _ roscastore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("rosca/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("rosca/sqlite: migration failed: %w", err)
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
	m, err := toPoolModel(p)
	if err != nil {
		return fmt.Errorf("rosca/sqlite: %w", err)
	}
	res, err := s.sdb.NewInsert(m).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return rosca.ErrAlreadyExists
	}
	return nil
}

func (s *Store) GetPool(ctx context.Context, poolID id.PoolID) (*pool.State, error) {
	m := new(poolModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", poolID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, rosca.ErrPoolNotFound
		}
		return nil, err
	}
	return fromPoolModel(m)
}

func (s *Store) SavePool(ctx context.Context, p *pool.State) error {
	m, err := toPoolModel(p)
	if err != nil {
		return fmt.Errorf("rosca/sqlite: %w", err)
	}
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return rosca.ErrPoolNotFound
	}
	return nil
}

func (s *Store) ListPools(ctx context.Context, opts pool.ListOpts) ([]*pool.State, error) {
	var models []poolModel
	q := s.sdb.NewSelect(&models)

	if !opts.Operator.IsZero() {
		q = q.Where("operator = ?", opts.Operator.String())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*pool.State, len(models))
	for i := range models {
		p, err := fromPoolModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) DeletePool(ctx context.Context, poolID id.PoolID) error {
	res, err := s.sdb.NewDelete((*poolModel)(nil)).
		Where("id = ?", poolID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return rosca.ErrPoolNotFound
	}
	return nil
}

// ==================== Journal Store ====================

func (s *Store) AppendJournal(ctx context.Context, entries []*journal.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	models := make([]journalEntryModel, len(entries))
	for i, e := range entries {
		models[i] = *toJournalEntryModel(e)
	}
	_, err := s.sdb.NewInsert(&models).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) QueryJournal(ctx context.Context, poolID id.PoolID, opts journal.QueryOpts) ([]*journal.Entry, error) {
	var models []journalEntryModel
	q := s.sdb.NewSelect(&models).
		Where("pool_id = ?", poolID.String())

	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if !opts.Start.IsZero() {
		q = q.Where("timestamp >= ?", opts.Start)
	}
	if !opts.End.IsZero() {
		q = q.Where("timestamp < ?", opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("timestamp ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*journal.Entry, len(models))
	for i := range models {
		e, err := fromJournalEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) PurgeJournal(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*journalEntryModel)(nil)).
		Where("timestamp < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
