package extension

import "time"

// Config holds the rosca extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.rosca" or "rosca" keys).
type Config struct {
	// DisableRoutes prevents the HTTP handler from being provided.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for pool routes (default: "/rosca").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// JournalBatchSize is the number of journal entries to buffer before
	// flushing to the store (default: 100).
	JournalBatchSize int `json:"journal_batch_size" mapstructure:"journal_batch_size" yaml:"journal_batch_size"`

	// JournalFlushInterval is how frequently the journal buffer is flushed
	// even if the batch size has not been reached (default: 5s).
	JournalFlushInterval time.Duration `json:"journal_flush_interval" mapstructure:"journal_flush_interval" yaml:"journal_flush_interval"`

	// LockKeyPrefix prefixes the per-pool lock keys (default: "rosca:pool:").
	LockKeyPrefix string `json:"lock_key_prefix" mapstructure:"lock_key_prefix" yaml:"lock_key_prefix"`

	// DefaultCurrency is used when a pool is created without a minimum
	// contribution (default: "usd").
	DefaultCurrency string `json:"default_currency" mapstructure:"default_currency" yaml:"default_currency"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:             "/rosca",
		JournalBatchSize:     100,
		JournalFlushInterval: 5 * time.Second,
		LockKeyPrefix:        "rosca:pool:",
		DefaultCurrency:      "usd",
	}
}
