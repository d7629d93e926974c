package kafka

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/cloudevents"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/metrics"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/tracing"
)

// EventPublisher is what the outbox relay writes through
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.Event) error
	Close() error
}

// InstrumentedProducer opens a producer span around every publish and
// records its latency and outcome. m and logger may be nil.
type InstrumentedProducer struct {
	next    EventPublisher
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

func NewInstrumentedProducer(next EventPublisher, m *metrics.Metrics, logger *logging.Logger) *InstrumentedProducer {
	return &InstrumentedProducer{next: next, metrics: m, logger: logger, tracer: otel.Tracer("diylabel/kafka")}
}

func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.Event) (err error) {
	ctx, span := p.tracer.Start(ctx, topic+" publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(spanAttributes(topic, event)...),
	)
	start := time.Now()

	defer func() {
		elapsed := time.Since(start)
		if p.metrics != nil {
			p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, elapsed)
		}
		if p.logger != nil {
			p.logger.KafkaPublish(ctx, topic, event.Type, err == nil, elapsed)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	return p.next.PublishEvent(ctx, topic, event)
}

func (p *InstrumentedProducer) Close() error {
	return p.next.Close()
}

func spanAttributes(topic string, event *cloudevents.Event) []attribute.KeyValue {
	attrs := append(tracing.KafkaPublishAttributes(topic),
		attribute.String("messaging.message.id", event.ID),
		attribute.String("cloudevents.event_type", event.Type),
		attribute.String("cloudevents.event_subject", event.Subject),
	)
	if event.CorrelationID != "" {
		attrs = append(attrs, attribute.String("pickup.correlation_id", event.CorrelationID))
	}
	return attrs
}
