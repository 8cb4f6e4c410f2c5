package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	published  []published
	publishErr error
	deliveries chan amqp.Delivery
	closed     bool
}

func (f *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

// fakeAcker records the outcome of each delivery.
type fakeAcker struct {
	acked  chan uint64
	nacked chan uint64
}

func (a *fakeAcker) Ack(tag uint64, _ bool) error { a.acked <- tag; return nil }
func (a *fakeAcker) Nack(tag uint64, _ bool, _ bool) error { a.nacked <- tag; return nil }
func (a *fakeAcker) Reject(tag uint64, _ bool) error { a.nacked <- tag; return nil }

func TestClient_Publish(t *testing.T) {
	ch := &fakeChannel{}
	client := &Client{channel: ch, logger: zap.NewNop()}

	err := client.Publish(context.Background(), "vendor.created", map[string]any{"vendorId": 3})
	require.NoError(t, err)
	require.Len(t, ch.published, 1)

	got := ch.published[0]
	assert.Equal(t, VendorExchange, got.exchange)
	assert.Equal(t, "vendor.created", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)

	var body map[string]any
	require.NoError(t, json.Unmarshal(got.msg.Body, &body))
	assert.EqualValues(t, 3, body["vendorId"])
}

func TestClient_PublishErrors(t *testing.T) {
	ch := &fakeChannel{publishErr: amqp.ErrClosed}
	client := &Client{channel: ch, logger: zap.NewNop()}
	assert.ErrorIs(t, client.Publish(context.Background(), "vendor.deleted", nil), amqp.ErrClosed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, client.Publish(ctx, "vendor.deleted", nil), context.Canceled)

	assert.Error(t, (&Client{logger: zap.NewNop()}).Publish(context.Background(), "vendor.deleted", nil))
}

func TestClient_ConsumeVendorEvents(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery)}
	client := &Client{channel: ch, logger: zap.NewNop()}
	acker := &fakeAcker{acked: make(chan uint64, 1), nacked: make(chan uint64, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var keys []string
	err := client.ConsumeVendorEvents(ctx, func(routingKey string, body []byte) error {
		keys = append(keys, routingKey)
		if string(body) == "bad" {
			return errors.New("cannot decode")
		}
		return nil
	})
	require.NoError(t, err)

	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, RoutingKey: "vendor.created", Body: []byte("{}")}
	select {
	case tag := <-acker.acked:
		assert.Equal(t, uint64(1), tag)
	case <-time.After(time.Second):
		t.Fatal("message was not acked")
	}

	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 2, RoutingKey: "vendor.updated", Body: []byte("bad")}
	select {
	case tag := <-acker.nacked:
		assert.Equal(t, uint64(2), tag)
	case <-time.After(time.Second):
		t.Fatal("message was not nacked")
	}

	assert.Equal(t, []string{"vendor.created", "vendor.updated"}, keys)
}

func TestClient_Close(t *testing.T) {
	ch := &fakeChannel{}
	client := &Client{channel: ch, logger: zap.NewNop()}
	require.NoError(t, client.Close())
	assert.True(t, ch.closed)
}
