// Package logging builds the JSON slog loggers shared by the pickup processes
// and carries request scoped identifiers through a context.Context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel is the textual level accepted in configuration
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration
type Config struct {
	Level       LogLevel
	ServiceName string
	Environment string
	Version     string
	Output      io.Writer
}

// DefaultConfig logs at info level to stdout
func DefaultConfig(serviceName string) *Config {
	return &Config{
		Level:       LevelInfo,
		ServiceName: serviceName,
		Environment: envOr("ENVIRONMENT", "development"),
		Version:     envOr("VERSION", "unknown"),
		Output:      os.Stdout,
	}
}

// Logger is a slog.Logger that remembers which service it belongs to
type Logger struct {
	*slog.Logger
	service string
}

// New creates a JSON logger. Unknown levels fall back to info.
func New(config *Config) *Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(config.Level)); err != nil {
		level = slog.LevelInfo
	}

	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: utcTime,
	})

	return &Logger{
		Logger: slog.New(handler).With(
			"service", config.ServiceName,
			"environment", config.Environment,
			"version", config.Version,
		),
		service: config.ServiceName,
	}
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
	}
	return a
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return New(&Config{ServiceName: "nop", Level: LevelError, Output: io.Discard})
}

func (l *Logger) derive(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), service: l.service}
}

// ServiceName returns the service the logger was created for
func (l *Logger) ServiceName() string {
	return l.service
}

// SetDefault makes l the process wide slog default
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

// WithContext attaches the request, correlation and trace ids found in ctx.
// The receiver is returned unchanged when ctx carries none of them.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	var args []any
	for _, k := range scopeKeys {
		if v, ok := ctx.Value(k).(string); ok && v != "" {
			args = append(args, k.String(), v)
		}
	}
	if len(args) == 0 {
		return l
	}
	return l.derive(args...)
}

// WithError adds err to every record. A nil error is ignored.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.derive("error", err.Error())
}

// WithComponent names the subsystem emitting the records
func (l *Logger) WithComponent(component string) *Logger {
	return l.derive("component", component)
}

// EvaluationRecord summarizes one stored pickup decision
type EvaluationRecord struct {
	EvaluationID    string
	Policy          string
	Outcome         string
	LocationHandle  string
	VirtualLocation bool
	LineCount       int
}

// Evaluation logs a completed pickup decision at info level
func (l *Logger) Evaluation(ctx context.Context, rec EvaluationRecord) {
	l.WithContext(ctx).Info("Pickup evaluated",
		"evaluationId", rec.EvaluationID,
		"policy", rec.Policy,
		"outcome", rec.Outcome,
		"locationHandle", rec.LocationHandle,
		"virtualLocation", rec.VirtualLocation,
		"lineCount", rec.LineCount,
	)
}

// Activity logs the end of a Temporal activity attempt
func (l *Logger) Activity(ctx context.Context, activity string, duration time.Duration, success bool) {
	l.outcome(ctx, "Activity finished", success, "activity", activity, "durationMs", duration.Milliseconds())
}

// DatabaseQuery logs one MongoDB call
func (l *Logger) DatabaseQuery(ctx context.Context, collection, operation string, duration time.Duration, success bool) {
	l.outcome(ctx, "Database query", success,
		"collection", collection,
		"operation", operation,
		"durationMs", duration.Milliseconds(),
	)
}

// KafkaPublish logs one event publish
func (l *Logger) KafkaPublish(ctx context.Context, topic, eventType string, success bool, duration time.Duration) {
	l.outcome(ctx, "Kafka publish", success,
		"topic", topic,
		"eventType", eventType,
		"durationMs", duration.Milliseconds(),
	)
}

// outcome logs successes at debug and failures at error
func (l *Logger) outcome(ctx context.Context, msg string, success bool, args ...any) {
	level := slog.LevelDebug
	if !success {
		level = slog.LevelError
	}
	l.WithContext(ctx).Log(ctx, level, msg, append(args, "success", success)...)
}

type scopeKey int

const (
	requestIDKey scopeKey = iota
	correlationIDKey
	traceIDKey
)

var scopeKeys = []scopeKey{requestIDKey, correlationIDKey, traceIDKey}

func (k scopeKey) String() string {
	switch k {
	case requestIDKey:
		return "requestId"
	case correlationIDKey:
		return "correlationId"
	default:
		return "traceId"
	}
}

// ContextWithRequestID stores the HTTP request id in ctx
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithCorrelationID stores the correlation id in ctx
func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// ContextWithTraceID stores the trace id in ctx
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// CorrelationIDFromContext returns the correlation id stored in ctx, if any
func CorrelationIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(correlationIDKey).(string)
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
