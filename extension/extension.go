// Package extension provides the Forge extension adapter for rosca.
//
// It implements the forge.Extension interface to integrate the pool engine
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.rosca" or "rosca" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/rosca"
	"github.com/xraph/rosca/api"
	"github.com/xraph/rosca/bank"
	"github.com/xraph/rosca/store"
	"github.com/xraph/rosca/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "rosca"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Rotating savings pool payout ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the rosca engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *rosca.Engine
	handler    *api.Handler
	store      store.Store
	transfer   rosca.Transferer
	engineOpts []rosca.Option
}

// New creates a new rosca Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *rosca.Engine { return e.engine }

// Handler returns the HTTP handler, or nil when routes are disabled.
func (e *Extension) Handler() *api.Handler { return e.handler }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}
	if e.transfer == nil {
		e.Logger().Warn("rosca: no transferer configured, payouts move funds in an in-memory vault")
		e.transfer = bank.NewVault()
	}

	e.engine = rosca.NewEngine(e.store, e.transfer, e.buildEngineOpts()...)

	if err := vessel.Provide(fapp.Container(), func() (*rosca.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	if e.config.DisableRoutes {
		return nil
	}
	e.handler = api.New(e.engine, api.WithBasePath(e.config.BasePath))
	return vessel.Provide(fapp.Container(), func() (*api.Handler, error) {
		return e.handler, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("rosca: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return rosca.ErrStoreNotReady
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs rosca.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []rosca.Option {
	opts := make([]rosca.Option, 0, len(e.engineOpts)+4)

	opts = append(opts,
		rosca.WithJournalConfig(e.config.JournalBatchSize, e.config.JournalFlushInterval),
		rosca.WithLockKeyPrefix(e.config.LockKeyPrefix),
		rosca.WithDefaultCurrency(e.config.DefaultCurrency),
	)
	if e.config.DisableMigrate {
		opts = append(opts, rosca.WithoutMigrate())
	}

	// Pass-through options win over config-derived ones.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("rosca: configuration is required but not found in config files; " +
				"ensure 'extensions.rosca' or 'rosca' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("rosca: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("journal_batch_size", e.config.JournalBatchSize),
		forge.F("journal_flush_interval", e.config.JournalFlushInterval),
		forge.F("default_currency", e.config.DefaultCurrency),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.rosca", "rosca"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("rosca: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("rosca: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.JournalBatchSize == 0 {
		cfg.JournalBatchSize = defaults.JournalBatchSize
	}
	if cfg.JournalFlushInterval == 0 {
		cfg.JournalFlushInterval = defaults.JournalFlushInterval
	}
	if cfg.LockKeyPrefix == "" {
		cfg.LockKeyPrefix = defaults.LockKeyPrefix
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = defaults.DefaultCurrency
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	if yamlConfig.BasePath == "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.LockKeyPrefix == "" {
		yamlConfig.LockKeyPrefix = programmaticConfig.LockKeyPrefix
	}
	if yamlConfig.DefaultCurrency == "" {
		yamlConfig.DefaultCurrency = programmaticConfig.DefaultCurrency
	}
	if yamlConfig.JournalBatchSize == 0 {
		yamlConfig.JournalBatchSize = programmaticConfig.JournalBatchSize
	}
	if yamlConfig.JournalFlushInterval == 0 {
		yamlConfig.JournalFlushInterval = programmaticConfig.JournalFlushInterval
	}

	return mergeWithDefaults(yamlConfig)
}
