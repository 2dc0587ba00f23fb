package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/types"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit            []OnInit
	onShutdown        []OnShutdown
	onPoolCreated     []OnPoolCreated
	onQuotaChanged    []OnQuotaChanged
	onCycleAdvanced   []OnCycleAdvanced
	onFundsReceived   []OnFundsReceived
	onPayoutRequested []OnPayoutRequested
	onPayoutMade      []OnPayoutMade
	onTransferFailed  []OnTransferFailed
	onJournalFlushed  []OnJournalFlushed
	eventSinks        []EventSink
	validators        []ContributionValidator
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnPoolCreated); ok {
		r.onPoolCreated = append(r.onPoolCreated, v)
	}
	if v, ok := p.(OnQuotaChanged); ok {
		r.onQuotaChanged = append(r.onQuotaChanged, v)
	}
	if v, ok := p.(OnCycleAdvanced); ok {
		r.onCycleAdvanced = append(r.onCycleAdvanced, v)
	}
	if v, ok := p.(OnFundsReceived); ok {
		r.onFundsReceived = append(r.onFundsReceived, v)
	}
	if v, ok := p.(OnPayoutRequested); ok {
		r.onPayoutRequested = append(r.onPayoutRequested, v)
	}
	if v, ok := p.(OnPayoutMade); ok {
		r.onPayoutMade = append(r.onPayoutMade, v)
	}
	if v, ok := p.(OnTransferFailed); ok {
		r.onTransferFailed = append(r.onTransferFailed, v)
	}
	if v, ok := p.(OnJournalFlushed); ok {
		r.onJournalFlushed = append(r.onJournalFlushed, v)
	}
	if v, ok := p.(EventSink); ok {
		r.eventSinks = append(r.eventSinks, v)
	}
	if v, ok := p.(ContributionValidator); ok {
		r.validators = append(r.validators, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnPoolCreated)(nil)).Elem(), "OnPoolCreated")
	checkInterface(reflect.TypeOf((*OnQuotaChanged)(nil)).Elem(), "OnQuotaChanged")
	checkInterface(reflect.TypeOf((*OnCycleAdvanced)(nil)).Elem(), "OnCycleAdvanced")
	checkInterface(reflect.TypeOf((*OnFundsReceived)(nil)).Elem(), "OnFundsReceived")
	checkInterface(reflect.TypeOf((*OnPayoutRequested)(nil)).Elem(), "OnPayoutRequested")
	checkInterface(reflect.TypeOf((*OnPayoutMade)(nil)).Elem(), "OnPayoutMade")
	checkInterface(reflect.TypeOf((*OnTransferFailed)(nil)).Elem(), "OnTransferFailed")
	checkInterface(reflect.TypeOf((*OnJournalFlushed)(nil)).Elem(), "OnJournalFlushed")
	checkInterface(reflect.TypeOf((*EventSink)(nil)).Elem(), "EventSink")
	checkInterface(reflect.TypeOf((*ContributionValidator)(nil)).Elem(), "ContributionValidator")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPoolCreated emits a pool created event.
func (r *Registry) EmitPoolCreated(ctx context.Context, state *pool.State) {
	r.mu.RLock()
	plugins := r.onPoolCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPoolCreated(ctx, state)
		}); err != nil {
			r.logger.Warn("plugin OnPoolCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitQuotaChanged emits a quota changed event.
func (r *Registry) EmitQuotaChanged(ctx context.Context, poolID id.PoolID, oldQuota, newQuota uint64) {
	r.mu.RLock()
	plugins := r.onQuotaChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnQuotaChanged(ctx, poolID, oldQuota, newQuota)
		}); err != nil {
			r.logger.Warn("plugin OnQuotaChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCycleAdvanced emits a cycle advanced event.
func (r *Registry) EmitCycleAdvanced(ctx context.Context, poolID id.PoolID, cycle uint64) {
	r.mu.RLock()
	plugins := r.onCycleAdvanced
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCycleAdvanced(ctx, poolID, cycle)
		}); err != nil {
			r.logger.Warn("plugin OnCycleAdvanced failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitFundsReceived emits a funds received event.
func (r *Registry) EmitFundsReceived(ctx context.Context, poolID id.PoolID, contributor types.Identity, amount, total types.Money) {
	r.mu.RLock()
	plugins := r.onFundsReceived
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFundsReceived(ctx, poolID, contributor, amount, total)
		}); err != nil {
			r.logger.Warn("plugin OnFundsReceived failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPayoutRequested emits a payout requested event.
func (r *Registry) EmitPayoutRequested(ctx context.Context, poolID id.PoolID, req *pool.Request) {
	r.mu.RLock()
	plugins := r.onPayoutRequested
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPayoutRequested(ctx, poolID, req)
		}); err != nil {
			r.logger.Warn("plugin OnPayoutRequested failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPayoutMade emits a payout made event.
func (r *Registry) EmitPayoutMade(ctx context.Context, poolID id.PoolID, operator types.Identity, payout *pool.Payout) {
	r.mu.RLock()
	plugins := r.onPayoutMade
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPayoutMade(ctx, poolID, operator, payout)
		}); err != nil {
			r.logger.Warn("plugin OnPayoutMade failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTransferFailed emits a transfer failed event.
func (r *Registry) EmitTransferFailed(ctx context.Context, poolID id.PoolID, req *pool.Request, cause error) {
	r.mu.RLock()
	plugins := r.onTransferFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransferFailed(ctx, poolID, req, cause)
		}); err != nil {
			r.logger.Warn("plugin OnTransferFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitJournalFlushed emits a journal flushed event.
func (r *Registry) EmitJournalFlushed(ctx context.Context, count int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onJournalFlushed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnJournalFlushed(ctx, count, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnJournalFlushed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitEvent forwards a named event to every EventSink.
func (r *Registry) EmitEvent(ctx context.Context, name string, poolID id.PoolID, payload any) {
	r.mu.RLock()
	plugins := r.eventSinks
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEvent(ctx, name, poolID, payload)
		}); err != nil {
			r.logger.Warn("plugin OnEvent failed",
				"plugin", p.Name(),
				"event", name,
				"error", err,
			)
		}
	}
}

// ValidateContribution runs every ContributionValidator and returns the
// first rejection. Unlike the Emit methods its result is not advisory.
func (r *Registry) ValidateContribution(ctx context.Context, poolID id.PoolID, who types.Identity, amount types.Money) error {
	r.mu.RLock()
	validators := r.validators
	r.mu.RUnlock()

	for _, v := range validators {
		if err := r.callWithTimeout(ctx, v.Name(), func() error {
			return v.ValidateContribution(ctx, poolID, who, amount)
		}); err != nil {
			return fmt.Errorf("plugin %s: %w", v.Name(), err)
		}
	}
	return nil
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
