package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/metrics"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/tracing"
)

const tracerName = "diylabel/mongodb"

// InstrumentedClient traces health checks of a Client
type InstrumentedClient struct {
	*Client
	tracer trace.Tracer
}

func NewInstrumentedClient(client *Client) *InstrumentedClient {
	return &InstrumentedClient{Client: client, tracer: otel.Tracer(tracerName)}
}

// HealthCheck pings the primary inside a client span
func (c *InstrumentedClient) HealthCheck(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "ping",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.MongoAttributes(c.Database().Name(), "", "ping")...),
	)
	defer span.End()

	err := c.Client.HealthCheck(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// InstrumentedCollection records a span, a metric sample and a debug log
// line for every read and write on a collection. m and logger may be nil.
type InstrumentedCollection struct {
	collection *mongo.Collection
	database   string
	metrics    *metrics.Metrics
	logger     *logging.Logger
	tracer     trace.Tracer
}

func NewInstrumentedCollection(collection *mongo.Collection, m *metrics.Metrics, logger *logging.Logger) *InstrumentedCollection {
	return &InstrumentedCollection{
		collection: collection,
		database:   collection.Database().Name(),
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
	}
}

// observed runs op as operation on c. A lookup that matches nothing still
// counts as a success.
func observed[T any](ctx context.Context, c *InstrumentedCollection, operation string, op func(context.Context) (T, error)) (T, error) {
	ctx, span := c.tracer.Start(ctx, c.Name()+" "+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.MongoAttributes(c.database, c.Name(), operation)...),
	)
	defer span.End()

	start := time.Now()
	res, err := op(ctx)
	elapsed := time.Since(start)
	ok := err == nil || errors.Is(err, mongo.ErrNoDocuments)

	if c.metrics != nil {
		c.metrics.RecordMongoDBOperation(c.Name(), operation, ok, elapsed)
	}
	if c.logger != nil {
		c.logger.DatabaseQuery(ctx, c.Name(), operation, elapsed, ok)
	}
	if !ok {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (c *InstrumentedCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	res, _ := observed(ctx, c, "findOne", func(ctx context.Context) (*mongo.SingleResult, error) {
		r := c.collection.FindOne(ctx, filter, opts...)
		return r, r.Err()
	})
	return res
}

func (c *InstrumentedCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return observed(ctx, c, "find", func(ctx context.Context) (*mongo.Cursor, error) {
		return c.collection.Find(ctx, filter, opts...)
	})
}

func (c *InstrumentedCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return observed(ctx, c, "updateOne", func(ctx context.Context) (*mongo.UpdateResult, error) {
		return c.collection.UpdateOne(ctx, filter, update, opts...)
	})
}

func (c *InstrumentedCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return observed(ctx, c, "countDocuments", func(ctx context.Context) (int64, error) {
		return c.collection.CountDocuments(ctx, filter, opts...)
	})
}

// Indexes is not instrumented
func (c *InstrumentedCollection) Indexes() mongo.IndexView {
	return c.collection.Indexes()
}

func (c *InstrumentedCollection) Name() string {
	return c.collection.Name()
}
