package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/cloudevents"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/tracing"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes CloudEvents to Kafka through a single writer. The topic is
// chosen per message.
type Producer struct {
	writer messageWriter
}

// NewProducer creates a synchronous producer for config.Brokers
func NewProducer(config *Config) *Producer {
	return &Producer{writer: &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              config.BatchSize,
		BatchTimeout:           config.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(config.RequiredAcks),
		AllowAutoTopicCreation: config.AutoCreateTopics,
		Transport:              &kafka.Transport{ClientID: config.ClientID},
	}}
}

// encode produces a structured mode CloudEvents message. The context
// attributes are repeated as ce- headers so consumers can route without
// decoding the body, and the subject is the key so one evaluation always maps
// to one partition.
func encode(ctx context.Context, topic string, event *cloudevents.Event) (kafka.Message, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s: %w", event.Type, err)
	}

	headers := map[string]string{
		"content-type":   "application/cloudevents+json",
		"ce-specversion": event.SpecVersion,
		"ce-type":        event.Type,
		"ce-source":      event.Source,
		"ce-id":          event.ID,
		"ce-time":        event.Time.UTC().Format(time.RFC3339Nano),
	}
	if event.CorrelationID != "" {
		headers["ce-"+cloudevents.ExtCorrelationID] = event.CorrelationID
	}
	if event.WorkflowID != "" {
		headers["ce-"+cloudevents.ExtWorkflowID] = event.WorkflowID
	}
	for k, v := range tracing.InjectHeaders(ctx) {
		headers[k] = v
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.Subject),
		Value: body,
		Time:  event.Time,
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return msg, nil
}

// PublishEvent writes event to topic and waits for the configured acks
func (p *Producer) PublishEvent(ctx context.Context, topic string, event *cloudevents.Event) error {
	msg, err := encode(ctx, topic, event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, topic, err)
	}
	return nil
}

// Close flushes and closes the writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
