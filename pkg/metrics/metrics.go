// Package metrics exposes the Prometheus collectors of the pickup processes.
// Each Metrics value owns its registry so tests can create as many as they like.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fastBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1}
	httpBuckets = append(append([]float64{}, fastBuckets...), 2.5, 5, 10)
	slowBuckets = []float64{.01, .05, .1, .5, 1, 5, 10, 30}
)

// Config names the namespace and the service label
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig uses the diylabel namespace
func DefaultConfig(serviceName string) *Config {
	return &Config{ServiceName: serviceName, Namespace: "diylabel"}
}

// Metrics records pickup decisions and the infrastructure around them
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	httpInFlight prometheus.Gauge

	kafkaPublished *prometheus.CounterVec
	kafkaLatency   *prometheus.HistogramVec

	mongoOps     *prometheus.CounterVec
	mongoLatency *prometheus.HistogramVec

	outboxPending prometheus.Gauge
	outboxRelayed *prometheus.CounterVec
	outboxLatency *prometheus.HistogramVec

	activities       *prometheus.CounterVec
	activityDuration *prometheus.HistogramVec

	evaluations      *prometheus.CounterVec
	virtualLocations *prometheus.CounterVec
	configErrors     prometheus.Counter

	breakerState *prometheus.GaugeVec
	breakerTrips *prometheus.CounterVec
}

// New registers every collector on a fresh registry together with the Go
// runtime and process collectors
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"service": config.ServiceName}, registry))
	ns := config.Namespace

	return &Metrics{
		registry: registry,

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total",
			Help: "HTTP requests by method, route and status"}, []string{"method", "path", "status"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds",
			Help: "HTTP request latency", Buckets: httpBuckets}, []string{"method", "path"}),
		httpInFlight: f.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_in_flight",
			Help: "HTTP requests being served"}),

		kafkaPublished: f.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "kafka_events_published_total",
			Help: "CloudEvents written to Kafka"}, []string{"topic", "event_type", "status"}),
		kafkaLatency: f.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "kafka_publish_duration_seconds",
			Help: "Kafka write latency", Buckets: fastBuckets}, []string{"topic"}),

		mongoOps: f.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "mongodb_operations_total",
			Help: "MongoDB collection operations"}, []string{"collection", "operation", "status"}),
		mongoLatency: f.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "mongodb_operation_duration_seconds",
			Help: "MongoDB operation latency", Buckets: fastBuckets}, []string{"collection", "operation"}),

		outboxPending: f.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "outbox_pending_events",
			Help: "Messages returned by the last outbox poll"}),
		outboxRelayed: f.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "outbox_events_relayed_total",
			Help: "Outbox relay attempts"}, []string{"event_type", "status"}),
		outboxLatency: f.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "outbox_relay_duration_seconds",
			Help: "Outbox relay latency", Buckets: fastBuckets}, []string{"event_type"}),

		activities: f.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "temporal_activities_completed_total",
			Help: "Temporal activity attempts"}, []string{"activity_type", "status"}),
		activityDuration: f.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "temporal_activity_duration_seconds",
			Help: "Temporal activity latency", Buckets: slowBuckets}, []string{"activity_type"}),

		evaluations: f.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "pickup_evaluations_total",
			Help: "Local pickup decisions by policy and outcome"}, []string{"policy", "outcome"}),
		virtualLocations: f.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "pickup_virtual_locations_total",
			Help: "Pickup options offered against the virtual location"}, []string{"policy"}),
		configErrors: f.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "pickup_config_errors_total",
			Help: "Generator configurations that could not be parsed"}),

		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "circuit_breaker_state",
			Help: "Breaker state: 0 closed, 1 half-open, 2 open"}, []string{"name"}),
		breakerTrips: f.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "circuit_breaker_trips_total",
			Help: "Transitions into the open state"}, []string{"name"}),
	}
}

// Handler serves the registry in the Prometheus text or OpenMetrics format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func (m *Metrics) RecordHTTPRequest(method, path string, code int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	m.httpLatency.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) IncrementHTTPRequestsInFlight() { m.httpInFlight.Inc() }

func (m *Metrics) DecrementHTTPRequestsInFlight() { m.httpInFlight.Dec() }

func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.kafkaPublished.WithLabelValues(topic, eventType, status(success)).Inc()
	m.kafkaLatency.WithLabelValues(topic).Observe(duration.Seconds())
}

func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.mongoOps.WithLabelValues(collection, operation, status(success)).Inc()
	m.mongoLatency.WithLabelValues(collection, operation).Observe(duration.Seconds())
}

// SetOutboxPending reports the size of the last outbox batch
func (m *Metrics) SetOutboxPending(count int) {
	m.outboxPending.Set(float64(count))
}

// RecordOutboxPublish counts one relay attempt of an outbox message
func (m *Metrics) RecordOutboxPublish(eventType string, success bool, duration time.Duration) {
	m.outboxRelayed.WithLabelValues(eventType, status(success)).Inc()
	m.outboxLatency.WithLabelValues(eventType).Observe(duration.Seconds())
}

func (m *Metrics) RecordActivityCompleted(activityType string, success bool, duration time.Duration) {
	m.activities.WithLabelValues(activityType, status(success)).Inc()
	m.activityDuration.WithLabelValues(activityType).Observe(duration.Seconds())
}

// RecordPickupEvaluation counts one decision. Offers made against the
// virtual location are also counted per policy.
func (m *Metrics) RecordPickupEvaluation(policy, outcome string, virtualLocation bool) {
	m.evaluations.WithLabelValues(policy, outcome).Inc()
	if virtualLocation {
		m.virtualLocations.WithLabelValues(policy).Inc()
	}
}

func (m *Metrics) RecordPickupConfigError() { m.configErrors.Inc() }

// SetCircuitBreakerState records a breaker state using the gobreaker numbering
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.breakerTrips.WithLabelValues(name).Inc()
}
