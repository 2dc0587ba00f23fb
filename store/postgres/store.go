package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/rosca"
	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/journal"
	"github.com/xraph/rosca/pool"
	roscastore "github.com/xraph/rosca/store"
)

// compile-time interface check
var _ roscastore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("rosca/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("rosca/postgres: migration failed: %w", err)
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
		return fmt.Errorf("rosca/postgres: %w", err)
	}
	res, err := s.pg.NewInsert(m).
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
	err := s.pg.NewSelect(m).
		Where("id = $1", poolID.String()).
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
		return fmt.Errorf("rosca/postgres: %w", err)
	}
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
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
	q := s.pg.NewSelect(&models)

	if !opts.Operator.IsZero() {
		q = q.Where("operator = $1", opts.Operator.String())
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
	res, err := s.pg.NewDelete((*poolModel)(nil)).
		Where("id = $1", poolID.String()).
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
	_, err := s.pg.NewInsert(&models).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) QueryJournal(ctx context.Context, poolID id.PoolID, opts journal.QueryOpts) ([]*journal.Entry, error) {
	var models []journalEntryModel
	q := s.pg.NewSelect(&models).
		Where("pool_id = $1", poolID.String())

	argIdx := 1
	if opts.Kind != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("kind = $%d", argIdx), string(opts.Kind))
	}
	if !opts.Start.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("timestamp >= $%d", argIdx), opts.Start)
	}
	if !opts.End.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("timestamp < $%d", argIdx), opts.End)
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
	res, err := s.pg.NewDelete((*journalEntryModel)(nil)).
		Where("timestamp < $1", before).
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
