package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/cloudevents"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/metrics"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/resilience"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestProducer(w *fakeWriter) *Producer {
	return &Producer{writer: w}
}

func headerMap(msg kafka.Message) map[string]string {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return headers
}

func TestProducer_PublishEvent(t *testing.T) {
	writer := &fakeWriter{}
	producer := newTestProducer(writer)

	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-9")
	event := cloudevents.NewEventFactory(cloudevents.SourcePickupService).
		CreateEvent(ctx, cloudevents.PickupOptionOffered, "evaluation/e1", map[string]string{"locationHandle": "shop"})

	require.NoError(t, producer.PublishEvent(ctx, Topics.PickupEvents, event))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, Topics.PickupEvents, msg.Topic)
	assert.Equal(t, "evaluation/e1", string(msg.Key))

	headers := headerMap(msg)
	assert.Equal(t, "1.0", headers["ce-specversion"])
	assert.Equal(t, cloudevents.PickupOptionOffered, headers["ce-type"])
	assert.Equal(t, cloudevents.SourcePickupService, headers["ce-source"])
	assert.Equal(t, event.ID, headers["ce-id"])
	assert.Equal(t, "corr-9", headers["ce-correlationid"])
	assert.Equal(t, "application/cloudevents+json", headers["content-type"])
	assert.NotContains(t, headers, "ce-workflowid")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "evaluation/e1", body["subject"])

	require.NoError(t, producer.Close())
	assert.True(t, writer.closed)
}

func TestProducer_PublishEventError(t *testing.T) {
	producer := newTestProducer(&fakeWriter{err: errors.New("broker down")})

	event := cloudevents.NewEventFactory(cloudevents.SourcePickupService).
		CreateEvent(context.Background(), cloudevents.PickupOptionDeclined, "evaluation/e2", nil)

	err := producer.PublishEvent(context.Background(), Topics.PickupEvents, event)
	assert.ErrorContains(t, err, "broker down")
}

func TestInstrumentedProducer_RecordsAndDelegates(t *testing.T) {
	writer := &fakeWriter{}
	m := metrics.New(metrics.DefaultConfig("pickup-service-test"))
	producer := NewInstrumentedProducer(newTestProducer(writer), m, logging.NewNop())

	event := cloudevents.NewEventFactory(cloudevents.SourcePickupService).
		CreateEvent(context.Background(), cloudevents.PickupOptionOffered, "evaluation/e3", nil)

	require.NoError(t, producer.PublishEvent(context.Background(), Topics.PickupEvents, event))
	assert.Len(t, writer.messages, 1)
}

func TestCircuitBreakerProducer_OpensAfterFailures(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	m := metrics.New(metrics.DefaultConfig("pickup-service-cb"))
	producer := NewCircuitBreakerProducer(newTestProducer(writer), m, logging.NewNop())

	event := cloudevents.NewEventFactory(cloudevents.SourcePickupService).
		CreateEvent(context.Background(), cloudevents.PickupOptionOffered, "evaluation/e4", nil)

	for i := 0; i < int(resilience.DefaultBreakerConfig(breakerName).ConsecutiveFailures); i++ {
		assert.Error(t, producer.PublishEvent(context.Background(), Topics.PickupEvents, event))
	}

	assert.Equal(t, gobreaker.StateOpen, producer.State())
	err := producer.PublishEvent(context.Background(), Topics.PickupEvents, event)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestNewProducer_Writer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Brokers = []string{"kafka-1:9092", "kafka-2:9092"}

	writer, ok := NewProducer(cfg).writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Empty(t, writer.Topic)
	assert.NotNil(t, writer.Addr)
	assert.Equal(t, kafka.RequireAll, writer.RequiredAcks)
	assert.Equal(t, "pickup-service", writer.Transport.(*kafka.Transport).ClientID)
}
