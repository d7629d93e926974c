package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/domain"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/cloudevents"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/kafka"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/metrics"
	pkgmongo "github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/mongodb"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/outbox"
	outboxMongo "github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/outbox/mongodb"
)

// EvaluationsCollection holds one document per pickup decision
const EvaluationsCollection = "pickup_evaluations"

type mongoCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoSingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (mongoCursor, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Indexes() mongoIndexView
}

type mongoSingleResult interface {
	Decode(v interface{}) error
}

type mongoCursor interface {
	All(ctx context.Context, results interface{}) error
	Close(ctx context.Context) error
}

type mongoIndexView interface {
	CreateMany(ctx context.Context, models []mongo.IndexModel, opts ...*options.CreateIndexesOptions) ([]string, error)
}

type mongoDatabase interface {
	Collection(name string) mongoCollection
	Client() mongoSessionClient
}

type mongoSessionClient interface {
	StartSession(opts ...*options.SessionOptions) (mongoSession, error)
}

type mongoSession interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	EndSession(ctx context.Context)
}

// driverCollection is satisfied by *mongo.Collection and *pkgmongo.InstrumentedCollection
type driverCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Indexes() mongo.IndexView
}

type mongoDatabaseWrapper struct {
	db      *mongo.Database
	metrics *metrics.Metrics
	logger  *logging.Logger
}

func (w mongoDatabaseWrapper) Collection(name string) mongoCollection {
	coll := w.db.Collection(name)
	if w.metrics == nil && w.logger == nil {
		return mongoCollectionWrapper{collection: coll}
	}
	return mongoCollectionWrapper{collection: pkgmongo.NewInstrumentedCollection(coll, w.metrics, w.logger)}
}

func (w mongoDatabaseWrapper) Client() mongoSessionClient {
	return mongoClientWrapper{client: w.db.Client()}
}

type mongoCollectionWrapper struct {
	collection driverCollection
}

func (w mongoCollectionWrapper) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return w.collection.UpdateOne(ctx, filter, update, opts...)
}

func (w mongoCollectionWrapper) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoSingleResult {
	return w.collection.FindOne(ctx, filter, opts...)
}

func (w mongoCollectionWrapper) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (mongoCursor, error) {
	cursor, err := w.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

func (w mongoCollectionWrapper) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return w.collection.CountDocuments(ctx, filter, opts...)
}

func (w mongoCollectionWrapper) Indexes() mongoIndexView {
	return w.collection.Indexes()
}

type mongoClientWrapper struct {
	client *mongo.Client
}

func (w mongoClientWrapper) StartSession(opts ...*options.SessionOptions) (mongoSession, error) {
	session, err := w.client.StartSession(opts...)
	if err != nil {
		return nil, err
	}
	return mongoSessionWrapper{session: session}, nil
}

type mongoSessionWrapper struct {
	session mongo.Session
}

func (w mongoSessionWrapper) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := w.session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

func (w mongoSessionWrapper) EndSession(ctx context.Context) {
	w.session.EndSession(ctx)
}

// RepositoryOption configures an EvaluationRepository
type RepositoryOption func(*mongoDatabaseWrapper)

// WithInstrumentation records metrics, spans and query logs for every collection operation
func WithInstrumentation(m *metrics.Metrics, logger *logging.Logger) RepositoryOption {
	return func(w *mongoDatabaseWrapper) {
		w.metrics = m
		w.logger = logger
	}
}

// EvaluationRepository stores evaluations and their events through the transactional outbox
type EvaluationRepository struct {
	collection   mongoCollection
	db           mongoDatabase
	outboxRepo   outbox.Repository
	eventFactory *cloudevents.EventFactory
	logger       *logging.Logger
}

// NewEvaluationRepository creates the repository and ensures its indexes and the outbox indexes
func NewEvaluationRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory, opts ...RepositoryOption) *EvaluationRepository {
	wrapper := mongoDatabaseWrapper{db: db}
	for _, opt := range opts {
		opt(&wrapper)
	}

	outboxRepo := outboxMongo.NewStore(db)
	repo := newEvaluationRepository(wrapper, outboxRepo, eventFactory)
	repo.logger = wrapper.logger

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = repo.setupIndexes(ctx, outboxRepo.EnsureIndexes)

	return repo
}

func newEvaluationRepository(db mongoDatabase, outboxRepo outbox.Repository, eventFactory *cloudevents.EventFactory) *EvaluationRepository {
	return &EvaluationRepository{
		collection:   db.Collection(EvaluationsCollection),
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
}

// setupIndexes creates the evaluation indexes and then runs each extra index
// builder. Failures are logged and joined; no builder is skipped.
func (r *EvaluationRepository) setupIndexes(ctx context.Context, extra ...func(context.Context) error) error {
	errs := []error{r.ensureIndexes(ctx)}
	for _, build := range extra {
		errs = append(errs, build(ctx))
	}
	err := errors.Join(errs...)
	if err != nil && r.logger != nil {
		r.logger.WithError(err).Warn("Failed to create indexes", "collection", EvaluationsCollection)
	}
	return err
}

func (r *EvaluationRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "evaluationId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "evaluatedAt", Value: -1}}},
		{Keys: bson.D{
			{Key: "outcome", Value: 1},
			{Key: "evaluatedAt", Value: -1},
		}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create evaluation indexes: %w", err)
	}
	return nil
}

// GetOutboxRepository returns the outbox the repository writes to
func (r *EvaluationRepository) GetOutboxRepository() outbox.Repository {
	return r.outboxRepo
}

// Save stores the evaluation and its domain events in one transaction. The
// outbox rows are built once so a retried transaction writes the same rows.
// Evaluations are immutable: saving an id that is already stored changes
// nothing and writes no events.
func (r *EvaluationRepository) Save(ctx context.Context, evaluation *domain.Evaluation) error {
	outboxEvents, err := r.outboxEvents(ctx, evaluation)
	if err != nil {
		return err
	}

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	err = session.WithTransaction(ctx, func(sessCtx context.Context) error {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"evaluationId": evaluation.EvaluationID}
		update := bson.M{"$setOnInsert": evaluation}

		res, err := r.collection.UpdateOne(sessCtx, filter, update, opts)
		if err != nil {
			return fmt.Errorf("failed to save evaluation: %w", err)
		}
		if res.UpsertedCount == 0 || len(outboxEvents) == 0 {
			return nil
		}
		if err := r.outboxRepo.Append(sessCtx, outboxEvents...); err != nil {
			return fmt.Errorf("failed to save outbox events: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	evaluation.ClearDomainEvents()
	return nil
}

func (r *EvaluationRepository) outboxEvents(ctx context.Context, evaluation *domain.Evaluation) ([]*outbox.Message, error) {
	domainEvents := evaluation.GetDomainEvents()
	messages := make([]*outbox.Message, 0, len(domainEvents))
	subject := "evaluation/" + evaluation.EvaluationID

	for _, event := range domainEvents {
		cloudEvent := r.eventFactory.CreateEvent(ctx, event.EventType(), subject, event,
			cloudevents.WithCorrelationID(evaluation.CorrelationID))

		msg, err := outbox.NewMessage(kafka.Topics.PickupEvents, evaluation.EvaluationID, cloudEvent)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// FindByEvaluationID returns the evaluation, or nil when it does not exist
func (r *EvaluationRepository) FindByEvaluationID(ctx context.Context, evaluationID string) (*domain.Evaluation, error) {
	var evaluation domain.Evaluation
	err := r.collection.FindOne(ctx, bson.M{"evaluationId": evaluationID}).Decode(&evaluation)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find evaluation: %w", err)
	}
	return &evaluation, nil
}

// List returns evaluations newest first. An empty outcome matches all.
func (r *EvaluationRepository) List(ctx context.Context, outcome domain.Outcome, limit, offset int) ([]*domain.Evaluation, error) {
	page := pkgmongo.Pagination{Limit: int64(limit), Offset: int64(offset)}

	cursor, err := r.collection.Find(ctx, outcomeFilter(outcome), page.FindOptions("evaluatedAt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer cursor.Close(ctx)

	evaluations := make([]*domain.Evaluation, 0)
	if err := cursor.All(ctx, &evaluations); err != nil {
		return nil, fmt.Errorf("failed to decode evaluations: %w", err)
	}
	return evaluations, nil
}

// Count returns the number of evaluations with outcome, or all when outcome is empty
func (r *EvaluationRepository) Count(ctx context.Context, outcome domain.Outcome) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, outcomeFilter(outcome))
	if err != nil {
		return 0, fmt.Errorf("failed to count evaluations: %w", err)
	}
	return count, nil
}

func outcomeFilter(outcome domain.Outcome) bson.M {
	filter := bson.M{}
	if outcome != "" {
		filter["outcome"] = outcome
	}
	return filter
}
