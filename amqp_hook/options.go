package amqphook

import (
	"log/slog"
	"time"
)

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger for the extension.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithRoutingKeyPrefix prepends prefix to every routing key.
func WithRoutingKeyPrefix(prefix string) Option {
	return func(e *Extension) {
		e.prefix = prefix
	}
}

// WithMandatory sets the mandatory flag on published messages.
func WithMandatory(mandatory bool) Option {
	return func(e *Extension) {
		e.mandatory = mandatory
	}
}

// WithEvents restricts publishing to the named events.
func WithEvents(names ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool, len(names))
		for _, n := range names {
			e.enabled[n] = true
		}
	}
}

// WithNow overrides the timestamp source.
func WithNow(now func() time.Time) Option {
	return func(e *Extension) {
		e.now = now
	}
}
