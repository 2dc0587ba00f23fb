// Package amqphook publishes pool events to a RabbitMQ exchange.
//
// The extension receives every event through plugin.EventSink and publishes
// a JSON envelope with the event name as routing key. It depends on a small
// Publisher interface that *amqp.Channel satisfies, so callers own the
// connection and channel lifecycle.
package amqphook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/plugin"
)

var (
	_ plugin.Plugin    = (*Extension)(nil)
	_ plugin.EventSink = (*Extension)(nil)
)

// Publisher is the subset of *amqp.Channel used by the extension.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Envelope is the JSON body of every published message.
type Envelope struct {
	Event      string          `json:"event"`
	PoolID     string          `json:"pool_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Extension publishes pool events to an exchange.
type Extension struct {
	pub       Publisher
	exchange  string
	prefix    string
	mandatory bool
	enabled   map[string]bool // nil = all events
	now       func() time.Time
	logger    *slog.Logger
}

// New creates an Extension publishing through pub to exchange.
func New(pub Publisher, exchange string, opts ...Option) *Extension {
	e := &Extension{
		pub:      pub,
		exchange: exchange,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "amqp-hook" }

// OnEvent implements plugin.EventSink.
func (e *Extension) OnEvent(ctx context.Context, name string, poolID id.PoolID, payload any) error {
	if e.enabled != nil && !e.enabled[name] {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("amqp_hook: marshal %s: %w", name, err)
	}
	now := e.now()
	body, err := json.Marshal(Envelope{
		Event:      name,
		PoolID:     poolID.String(),
		OccurredAt: now,
		Payload:    raw,
	})
	if err != nil {
		return fmt.Errorf("amqp_hook: marshal envelope: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		Type:         name,
		AppId:        "rosca",
		Headers:      traceHeaders(ctx),
		Body:         body,
	}
	if err := e.pub.PublishWithContext(ctx, e.exchange, e.prefix+name, e.mandatory, false, msg); err != nil {
		return fmt.Errorf("amqp_hook: publish %s: %w", name, err)
	}

	e.logger.Debug("amqp_hook: event published",
		"event", name,
		"pool_id", poolID.String(),
		"exchange", e.exchange,
	)
	return nil
}

// traceHeaders carries the W3C trace context of ctx into message headers.
func traceHeaders(ctx context.Context) amqp.Table {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := amqp.Table{"pool-event": true}
	for k, v := range carrier {
		headers[k] = v
	}
	return headers
}
