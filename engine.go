package rosca

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/journal"
	"github.com/xraph/rosca/lock"
	"github.com/xraph/rosca/plugin"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/store"
	"github.com/xraph/rosca/types"
)

// TracerName is the OpenTelemetry instrumentation name used by the Engine.
const TracerName = "github.com/xraph/rosca"

// errReadOnly is returned by the transferer of a View.
var errReadOnly = errors.New("rosca: read-only view")

// Engine hosts many pools on top of a store. Every mutation runs under a
// per-pool lock against a freshly loaded copy of the pool, and the copy is
// saved only when the ledger accepted the operation.
type Engine struct {
	store    store.Store
	transfer Transferer
	escrow   Escrow
	plugins  *plugin.Registry
	locker   lock.Locker
	clock    clockwork.Clock
	tracer   trace.Tracer
	logger   *slog.Logger

	// Background workers
	journalBuffer chan *journal.Entry
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup

	// Configuration
	journalBatchSize     int
	journalFlushInterval time.Duration
	lockKeyPrefix        string
	defaultCurrency      string
	skipMigrate          bool
}

// NewEngine creates an Engine. t pays out approved requests.
func NewEngine(s store.Store, t Transferer, opts ...Option) *Engine {
	e := &Engine{
		store:                s,
		transfer:             t,
		plugins:              plugin.NewRegistry(),
		locker:               lock.NewLocal(),
		clock:                clockwork.NewRealClock(),
		tracer:               otel.Tracer(TracerName),
		logger:               slog.Default(),
		journalBuffer:        make(chan *journal.Entry, 10000),
		stopChan:             make(chan struct{}),
		journalBatchSize:     100,
		journalFlushInterval: 5 * time.Second,
		lockKeyPrefix:        "rosca:pool:",
		defaultCurrency:      "usd",
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithLocker replaces the in-process locker, e.g. with a redislock.Locker
// when several processes share a store.
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithEscrow collects every contribution through esc before it is saved.
func WithEscrow(esc Escrow) Option {
	return func(e *Engine) {
		e.escrow = esc
	}
}

// WithClock sets the clock used for timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithJournalConfig configures journal batching.
func WithJournalConfig(batchSize int, flushInterval time.Duration) Option {
	return func(e *Engine) {
		if batchSize > 0 {
			e.journalBatchSize = batchSize
		}
		if flushInterval > 0 {
			e.journalFlushInterval = flushInterval
		}
	}
}

// WithoutMigrate makes Start skip store migrations. Plugins and background
// workers still start.
func WithoutMigrate() Option {
	return func(e *Engine) {
		e.skipMigrate = true
	}
}

// WithLockKeyPrefix sets the prefix of per-pool lock keys.
func WithLockKeyPrefix(prefix string) Option {
	return func(e *Engine) {
		e.lockKeyPrefix = prefix
	}
}

// WithDefaultCurrency sets the currency of pools created without a minimum.
func WithDefaultCurrency(currency string) Option {
	return func(e *Engine) {
		e.defaultCurrency = currency
	}
}

// Store returns the backing store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Start migrates the store, initializes plugins and begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	if !e.skipMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return err
		}
	}

	e.plugins.EmitInit(ctx, e)

	e.wg.Add(1)
	go e.journalFlushWorker(context.WithoutCancel(ctx))

	e.logger.Info("rosca engine started",
		"batch_size", e.journalBatchSize,
		"flush_interval", e.journalFlushInterval,
		"plugins", e.plugins.Count(),
		"migrate", !e.skipMigrate,
	)

	return nil
}

// Stop flushes pending journal entries and shuts the Engine down.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() { close(e.stopChan) })
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Pool management
// ──────────────────────────────────────────────────

// CreatePool validates cfg and stores a new pool.
func (e *Engine) CreatePool(ctx context.Context, name string, cfg pool.Config) (*pool.State, error) {
	ctx, span := e.tracer.Start(ctx, "rosca.create_pool")
	defer span.End()

	state, err := NewPool(name, cfg, e.defaultCurrency, e.clock.Now().UTC())
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("rosca.pool_id", state.ID.String()))

	if err := e.store.CreatePool(ctx, state); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("rosca: create pool: %w", err)
	}

	created := PoolCreated{State: state.Clone()}
	e.journal(ctx, state, []Event{created})
	e.dispatch(ctx, []Event{created})

	e.logger.Debug("pool created",
		"pool_id", state.ID.String(),
		"operator", state.Config.Operator,
		"min_contribution", state.Config.MinContribution.String(),
	)
	return state, nil
}

// GetPool returns a snapshot of a pool.
func (e *Engine) GetPool(ctx context.Context, poolID id.PoolID) (*pool.State, error) {
	return e.store.GetPool(ctx, poolID)
}

// ListPools lists pool snapshots.
func (e *Engine) ListPools(ctx context.Context, opts pool.ListOpts) ([]*pool.State, error) {
	return e.store.ListPools(ctx, opts)
}

// DeletePool removes a pool. Its journal is kept.
func (e *Engine) DeletePool(ctx context.Context, poolID id.PoolID) error {
	ctx, span := e.startSpan(ctx, "rosca.delete_pool", poolID)
	defer span.End()

	err := e.locker.WithLock(ctx, e.lockKey(poolID), func(ctx context.Context) error {
		return e.store.DeletePool(ctx, poolID)
	})
	if err != nil {
		recordSpanError(span, err)
	}
	return err
}

// View loads a pool and returns a Ledger over the copy for reads.
// Mutations on the returned Ledger are never saved and it cannot transfer.
func (e *Engine) View(ctx context.Context, poolID id.PoolID) (*Ledger, error) {
	state, err := e.store.GetPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	readOnly := TransferFunc(func(context.Context, string, id.PoolID, types.Identity, types.Money) error {
		return errReadOnly
	})
	return NewLedger(state, readOnly).WithClock(e.clock), nil
}

// ──────────────────────────────────────────────────
// Pool operations
// ──────────────────────────────────────────────────

// SetQuota replaces the quota of a pool.
func (e *Engine) SetQuota(ctx context.Context, poolID id.PoolID, caller types.Identity, quota uint64) error {
	return e.mutate(ctx, "rosca.set_quota", poolID, func(_ context.Context, l *Ledger) error {
		return l.SetQuota(caller, quota)
	})
}

// Contribute records a contribution and, when an escrow is configured,
// collects it from the contributor under ContributionKey.
func (e *Engine) Contribute(ctx context.Context, poolID id.PoolID, caller types.Identity, amount types.Money) error {
	if err := e.plugins.ValidateContribution(ctx, poolID, caller, amount); err != nil {
		return fmt.Errorf("%w: contribution rejected: %w", ErrInvalidInput, err)
	}
	return e.mutate(ctx, "rosca.contribute", poolID, func(ctx context.Context, l *Ledger) error {
		if err := l.Contribute(caller, amount); err != nil {
			return err
		}
		if e.escrow == nil {
			return nil
		}
		key := ContributionKey(poolID, l.Cycle(), caller)
		if err := e.escrow.Collect(ctx, key, poolID, caller, amount); err != nil {
			return fmt.Errorf("%w: collect contribution: %w", ErrTransferFailure, err)
		}
		return nil
	})
}

// RequestPayout records a payout request for the queue head and returns it.
func (e *Engine) RequestPayout(ctx context.Context, poolID id.PoolID, caller types.Identity) (pool.Request, error) {
	var req pool.Request
	err := e.mutate(ctx, "rosca.request_payout", poolID, func(_ context.Context, l *Ledger) error {
		if err := l.RequestPayout(caller); err != nil {
			return err
		}
		req, _ = l.PendingRequest()
		return nil
	})
	return req, err
}

// ApprovePayout pays the pending request of a pool and returns the payout.
func (e *Engine) ApprovePayout(ctx context.Context, poolID id.PoolID, caller, requester types.Identity) (pool.Payout, error) {
	var payout pool.Payout
	err := e.mutate(ctx, "rosca.approve_payout", poolID, func(ctx context.Context, l *Ledger) error {
		if err := l.ApprovePayout(ctx, caller, requester); err != nil {
			return err
		}
		// Read from the event: a rollover may already have cleared the history.
		for _, ev := range l.events {
			if made, ok := ev.(PayoutMade); ok {
				payout = made.Payout
			}
		}
		return nil
	})
	return payout, err
}

// NextCycle attempts a rollover and reports whether it happened.
func (e *Engine) NextCycle(ctx context.Context, poolID id.PoolID) (bool, error) {
	var advanced bool
	err := e.mutate(ctx, "rosca.next_cycle", poolID, func(_ context.Context, l *Ledger) error {
		advanced = l.NextCycle()
		return nil
	})
	return advanced, err
}

// ──────────────────────────────────────────────────
// Journal
// ──────────────────────────────────────────────────

// Journal returns the journal entries of a pool, oldest first.
func (e *Engine) Journal(ctx context.Context, poolID id.PoolID, opts journal.QueryOpts) ([]*journal.Entry, error) {
	return e.store.QueryJournal(ctx, poolID, opts)
}

// PurgeJournal deletes journal entries older than before.
func (e *Engine) PurgeJournal(ctx context.Context, before time.Time) (int64, error) {
	return e.store.PurgeJournal(ctx, before)
}

// journalFlushWorker flushes journal entries to the store.
func (e *Engine) journalFlushWorker(ctx context.Context) {
	defer e.wg.Done()

	batch := make([]*journal.Entry, 0, e.journalBatchSize)
	ticker := e.clock.NewTicker(e.journalFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			// Final flush, including whatever is still buffered.
		drain:
			for {
				select {
				case entry := <-e.journalBuffer:
					batch = append(batch, entry)
				default:
					break drain
				}
			}
			if len(batch) > 0 {
				e.flushJournalBatch(ctx, batch)
			}
			return

		case entry := <-e.journalBuffer:
			batch = append(batch, entry)
			if len(batch) >= e.journalBatchSize {
				e.flushJournalBatch(ctx, batch)
				batch = make([]*journal.Entry, 0, e.journalBatchSize)
			}

		case <-ticker.Chan():
			if len(batch) > 0 {
				e.flushJournalBatch(ctx, batch)
				batch = make([]*journal.Entry, 0, e.journalBatchSize)
			}
		}
	}
}

func (e *Engine) flushJournalBatch(ctx context.Context, batch []*journal.Entry) {
	start := time.Now()

	if err := e.store.AppendJournal(ctx, batch); err != nil {
		e.logger.Error("failed to flush journal batch",
			"error", err,
			"batch_size", len(batch),
		)
		return
	}

	elapsed := time.Since(start)
	e.plugins.EmitJournalFlushed(ctx, len(batch), elapsed)

	e.logger.Debug("flushed journal batch",
		"batch_size", len(batch),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────

// mutate runs fn against a freshly loaded copy of the pool while holding the
// pool lock. The copy is saved only when fn succeeds and changed something.
// Events are dispatched after the lock is released; on failure only
// TransferFailed events are dispatched.
func (e *Engine) mutate(ctx context.Context, op string, poolID id.PoolID, fn func(context.Context, *Ledger) error) error {
	ctx, span := e.startSpan(ctx, op, poolID)
	defer span.End()

	var events []Event
	err := e.locker.WithLock(ctx, e.lockKey(poolID), func(ctx context.Context) error {
		state, err := e.store.GetPool(ctx, poolID)
		if err != nil {
			return err
		}

		l := NewLedger(state, e.transfer).WithClock(e.clock)
		runErr := fn(ctx, l)
		events = l.DrainEvents()
		if runErr != nil {
			events = failedTransfers(events)
			return runErr
		}
		if len(events) == 0 {
			return nil
		}

		if err := e.store.SavePool(ctx, l.State()); err != nil {
			events = nil
			return fmt.Errorf("rosca: save pool: %w", err)
		}
		e.journal(ctx, l.State(), events)
		return nil
	})

	if err != nil {
		recordSpanError(span, err)
		e.logger.Debug("pool operation rejected",
			"op", op,
			"pool_id", poolID.String(),
			"error", err,
		)
	}
	e.dispatch(ctx, events)
	return err
}

func (e *Engine) dispatch(ctx context.Context, events []Event) {
	for _, ev := range events {
		switch v := ev.(type) {
		case PoolCreated:
			e.plugins.EmitPoolCreated(ctx, v.State)
		case QuotaChanged:
			e.plugins.EmitQuotaChanged(ctx, v.Pool, v.Old, v.New)
		case FundsReceived:
			e.plugins.EmitFundsReceived(ctx, v.Pool, v.To, v.Amount, v.Value)
		case PayoutRequested:
			e.plugins.EmitPayoutRequested(ctx, v.Pool, &v.Request)
		case PayoutMade:
			e.plugins.EmitPayoutMade(ctx, v.Pool, v.From, &v.Payout)
		case TransferFailed:
			e.plugins.EmitTransferFailed(ctx, v.Pool, &v.Request, v.Err)
		case CycleAdvanced:
			e.plugins.EmitCycleAdvanced(ctx, v.Pool, v.Cycle)
		}
		e.plugins.EmitEvent(ctx, ev.EventName(), ev.PoolID(), ev)
	}
}

// journal enqueues one entry per committed event. A full buffer drops the
// entries with a warning; the pool itself is already saved.
func (e *Engine) journal(ctx context.Context, state *pool.State, events []Event) {
	for _, ev := range events {
		entry := journalEntry(state, ev, e.clock.Now().UTC())
		if entry == nil {
			continue
		}
		select {
		case e.journalBuffer <- entry:
		default:
			e.logger.WarnContext(ctx, "journal entry dropped",
				"pool_id", entry.PoolID.String(),
				"kind", string(entry.Kind),
				"error", ErrJournalBufferFull,
			)
		}
	}
}

func journalEntry(state *pool.State, ev Event, now time.Time) *journal.Entry {
	entry := &journal.Entry{
		ID:        id.NewEntryID(),
		PoolID:    ev.PoolID(),
		Cycle:     state.Cycle,
		Total:     state.Total,
		Timestamp: now,
	}
	switch v := ev.(type) {
	case PoolCreated:
		entry.Kind = journal.KindPoolCreated
		entry.Actor = v.State.Config.Operator
		entry.Amount = v.State.Config.MinContribution
		entry.Metadata = map[string]string{"name": v.State.Name}
	case QuotaChanged:
		entry.Kind = journal.KindQuotaChanged
		entry.Actor = v.Operator
		entry.Timestamp = v.At
		entry.Metadata = map[string]string{
			"old": strconv.FormatUint(v.Old, 10),
			"new": strconv.FormatUint(v.New, 10),
		}
	case FundsReceived:
		entry.Kind = journal.KindContribution
		entry.Actor = v.To
		entry.Amount = v.Amount
		entry.Total = v.Value
		entry.Cycle = v.Cycle
		entry.Timestamp = v.At
	case PayoutRequested:
		entry.Kind = journal.KindPayoutRequested
		entry.Actor = v.Request.Requester
		entry.Amount = v.Request.Amount
		entry.Cycle = v.Cycle
		entry.Timestamp = v.Request.RequestedAt
		entry.Metadata = map[string]string{"request_id": v.Request.ID.String()}
	case PayoutMade:
		entry.Kind = journal.KindPayout
		entry.Actor = v.From
		entry.Subject = v.To
		entry.Amount = v.Value
		entry.Cycle = v.Payout.Cycle
		entry.Timestamp = v.Payout.PaidAt
		entry.Metadata = map[string]string{
			"request_id": v.Payout.RequestID.String(),
			"payout_id":  v.Payout.ID.String(),
		}
	case CycleAdvanced:
		entry.Kind = journal.KindCycleAdvanced
		entry.Cycle = v.Cycle
		entry.Timestamp = v.At
	default:
		return nil
	}
	return entry
}

func failedTransfers(events []Event) []Event {
	var out []Event
	for _, ev := range events {
		if _, ok := ev.(TransferFailed); ok {
			out = append(out, ev)
		}
	}
	return out
}

func (e *Engine) lockKey(poolID id.PoolID) string {
	return e.lockKeyPrefix + poolID.String()
}

func (e *Engine) startSpan(ctx context.Context, name string, poolID id.PoolID) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("rosca.pool_id", poolID.String()),
	))
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
