package kafka

import (
	"context"

	"github.com/sony/gobreaker"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/cloudevents"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/metrics"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/resilience"
)

// breakerName labels the producer breaker in logs and metrics
const breakerName = "kafka-producer"

// CircuitBreakerProducer stops calling Kafka while the broker keeps failing.
// Rejected events stay in the outbox and are retried on a later poll.
type CircuitBreakerProducer struct {
	producer EventPublisher
	breaker  *resilience.Breaker
}

// NewCircuitBreakerProducer wraps producer. m and logger may be nil.
func NewCircuitBreakerProducer(producer EventPublisher, m *metrics.Metrics, logger *logging.Logger) *CircuitBreakerProducer {
	cfg := resilience.DefaultBreakerConfig(breakerName)
	cfg.HalfOpenProbes = 5
	if m != nil {
		cfg.OnStateChange = func(name string, _, to gobreaker.State) {
			m.SetCircuitBreakerState(name, int(to))
			if to == gobreaker.StateOpen {
				m.RecordCircuitBreakerTrip(name)
			}
		}
	}

	var slogger = logging.NewNop().Logger
	if logger != nil {
		slogger = logger.Logger
	}

	return &CircuitBreakerProducer{
		producer: producer,
		breaker:  resilience.NewBreaker(cfg, slogger),
	}
}

// PublishEvent publishes through the breaker
func (p *CircuitBreakerProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.Event) error {
	return p.breaker.Do(ctx, func(ctx context.Context) error {
		return p.producer.PublishEvent(ctx, topic, event)
	})
}

// State returns the breaker state
func (p *CircuitBreakerProducer) State() gobreaker.State {
	return p.breaker.State()
}

// Close closes the wrapped producer
func (p *CircuitBreakerProducer) Close() error {
	return p.producer.Close()
}

// NewProductionProducer stacks the breaker over instrumentation over the raw producer
func NewProductionProducer(config *Config, m *metrics.Metrics, logger *logging.Logger) *CircuitBreakerProducer {
	return NewCircuitBreakerProducer(NewInstrumentedProducer(NewProducer(config), m, logger), m, logger)
}
