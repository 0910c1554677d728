package consumer

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAcknowledger records the broker acknowledgement a delivery received.
type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func delivery(body string) (amqp.Delivery, *fakeAcknowledger) {
	ack := &fakeAcknowledger{}
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		RoutingKey:   "document_tasks",
		Body:         []byte(body),
	}, ack
}

func TestNewRequiresMessageFunc(t *testing.T) {
	_, err := New(Config{}, nil, slog.Default())
	assert.Error(t, err)
}

func TestNewDefaultsConcurrency(t *testing.T) {
	c, err := New(Config{Concurrency: 0}, func(ctx context.Context, raw map[string]any) error { return nil }, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.cfg.Concurrency)
}

func TestHandleDeliveryAcksOnSuccess(t *testing.T) {
	var got map[string]any
	c, err := New(Config{}, func(ctx context.Context, raw map[string]any) error {
		got = raw
		return nil
	}, slog.Default())
	require.NoError(t, err)

	d, ack := delivery(`{"EventName":"s3:ObjectCreated:Put"}`)
	c.handleDelivery(context.Background(), d)

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	assert.Equal(t, "s3:ObjectCreated:Put", got["EventName"])
}

func TestHandleDeliveryNacksUndecodableWithoutRequeue(t *testing.T) {
	called := false
	c, err := New(Config{RequeueOnError: true}, func(ctx context.Context, raw map[string]any) error {
		called = true
		return nil
	}, slog.Default())
	require.NoError(t, err)

	d, ack := delivery(`not json`)
	c.handleDelivery(context.Background(), d)

	assert.False(t, called, "handler must not see undecodable bodies")
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "a poison message can never succeed")
}

func TestHandleDeliveryNackOnHandlerError(t *testing.T) {
	tests := []struct {
		name    string
		requeue bool
	}{
		{"requeue disabled", false},
		{"requeue enabled", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(Config{RequeueOnError: tt.requeue}, func(ctx context.Context, raw map[string]any) error {
				return errors.New("boom")
			}, slog.Default())
			require.NoError(t, err)

			d, ack := delivery(`{}`)
			c.handleDelivery(context.Background(), d)

			assert.False(t, ack.acked)
			assert.True(t, ack.nacked)
			assert.Equal(t, tt.requeue, ack.requeue)
		})
	}
}
