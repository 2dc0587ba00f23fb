package amqphook_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/rosca"
	amqphook "github.com/xraph/rosca/amqp_hook"
	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/types"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	sent []published
	err  error
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPublishesEnvelope(t *testing.T) {
	ch := &fakeChannel{}
	ext := amqphook.New(ch, "rosca.events",
		amqphook.WithRoutingKeyPrefix("pools."),
		amqphook.WithNow(func() time.Time { return at }),
	)
	pid := id.NewPoolID()
	ev := rosca.FundsReceived{Pool: pid, To: "alice", Amount: types.USD(100), Value: types.USD(100), Cycle: 1, At: at}

	require.NoError(t, ext.OnEvent(context.Background(), ev.EventName(), pid, ev))

	require.Len(t, ch.sent, 1)
	sent := ch.sent[0]
	assert.Equal(t, "rosca.events", sent.exchange)
	assert.Equal(t, "pools.funds.received", sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)
	assert.Equal(t, "funds.received", sent.msg.Type)

	var env amqphook.Envelope
	require.NoError(t, json.Unmarshal(sent.msg.Body, &env))
	assert.Equal(t, "funds.received", env.Event)
	assert.Equal(t, pid.String(), env.PoolID)
	assert.True(t, at.Equal(env.OccurredAt))

	var payload rosca.FundsReceived
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, types.Identity("alice"), payload.To)
	assert.Equal(t, types.USD(100), payload.Amount)
}

func TestEventFilter(t *testing.T) {
	ch := &fakeChannel{}
	ext := amqphook.New(ch, "x", amqphook.WithEvents("payout.made"))
	pid := id.NewPoolID()

	require.NoError(t, ext.OnEvent(context.Background(), "funds.received", pid, struct{}{}))
	require.NoError(t, ext.OnEvent(context.Background(), "payout.made", pid, struct{}{}))

	require.Len(t, ch.sent, 1)
	assert.Equal(t, "payout.made", ch.sent[0].key)
}

func TestPublishError(t *testing.T) {
	boom := errors.New("channel closed")
	ext := amqphook.New(&fakeChannel{err: boom}, "x")

	err := ext.OnEvent(context.Background(), "cycle.advanced", id.NewPoolID(), struct{}{})
	require.ErrorIs(t, err, boom)
}
