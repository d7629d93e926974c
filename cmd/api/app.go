package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/api"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/api/handlers"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/application"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/domain"
	mongoRepo "github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/infrastructure/mongodb"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/cloudevents"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/contracts/asyncapi"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/kafka"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/metrics"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/middleware"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/mongodb"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/outbox"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/tracing"
)

type tracerProvider interface {
	Shutdown(ctx context.Context) error
}

type instrumentedMongo interface {
	Database() *mongo.Database
	Close(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}

type outboxPublisher interface {
	Start(ctx context.Context) error
	Stop() error
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

type evaluationRepository interface {
	application.EvaluationRepository
	GetOutboxRepository() outbox.Repository
}

// appDependencies are the constructors run uses. Nil fields take the
// production implementation.
type appDependencies struct {
	initTracing             func(ctx context.Context, cfg *tracing.Config) (tracerProvider, error)
	newMetrics              func(cfg *metrics.Config) *metrics.Metrics
	newMongoClient          func(ctx context.Context, cfg *mongodb.Config) (*mongodb.Client, error)
	newInstrumentedMongo    func(client *mongodb.Client) instrumentedMongo
	newKafkaProducer        func(cfg *kafka.Config, m *metrics.Metrics, logger *logging.Logger) kafka.EventPublisher
	newEventFactory         func(source string) *cloudevents.EventFactory
	newEvaluationRepository func(db *mongo.Database, factory *cloudevents.EventFactory, m *metrics.Metrics, logger *logging.Logger) evaluationRepository
	newOutboxPublisher      func(repo outbox.Repository, producer kafka.EventPublisher, logger *logging.Logger, m *metrics.Metrics, cfg *outbox.PublisherConfig) outboxPublisher
	newPickupService        func(repo application.EvaluationRepository, policy domain.Policy, m *metrics.Metrics, logger *logging.Logger) (handlers.PickupService, error)
	newHTTPServer           func(addr string, handler http.Handler) httpServer
}

func (d appDependencies) withDefaults() appDependencies {
	if d.initTracing == nil {
		d.initTracing = func(ctx context.Context, cfg *tracing.Config) (tracerProvider, error) {
			return tracing.Start(ctx, cfg)
		}
	}
	if d.newMetrics == nil {
		d.newMetrics = metrics.New
	}
	if d.newMongoClient == nil {
		d.newMongoClient = mongodb.NewClient
	}
	if d.newInstrumentedMongo == nil {
		d.newInstrumentedMongo = func(client *mongodb.Client) instrumentedMongo {
			return mongodb.NewInstrumentedClient(client)
		}
	}
	if d.newKafkaProducer == nil {
		d.newKafkaProducer = func(cfg *kafka.Config, m *metrics.Metrics, logger *logging.Logger) kafka.EventPublisher {
			return kafka.NewProductionProducer(cfg, m, logger)
		}
	}
	if d.newEventFactory == nil {
		d.newEventFactory = cloudevents.NewEventFactory
	}
	if d.newEvaluationRepository == nil {
		d.newEvaluationRepository = func(db *mongo.Database, factory *cloudevents.EventFactory, m *metrics.Metrics, logger *logging.Logger) evaluationRepository {
			return mongoRepo.NewEvaluationRepository(db, factory, mongoRepo.WithInstrumentation(m, logger))
		}
	}
	if d.newOutboxPublisher == nil {
		d.newOutboxPublisher = func(repo outbox.Repository, producer kafka.EventPublisher, logger *logging.Logger, m *metrics.Metrics, cfg *outbox.PublisherConfig) outboxPublisher {
			return outbox.NewPublisher(repo, producer, logger, m, cfg)
		}
	}
	if d.newPickupService == nil {
		d.newPickupService = func(repo application.EvaluationRepository, policy domain.Policy, m *metrics.Metrics, logger *logging.Logger) (handlers.PickupService, error) {
			return application.NewPickupApplicationService(repo, policy, m, logger)
		}
	}
	if d.newHTTPServer == nil {
		d.newHTTPServer = func(addr string, handler http.Handler) httpServer {
			return &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      30 * time.Second,
			}
		}
	}
	return d
}

// app owns the long lived resources of one API process. Cleanups run in
// reverse order of registration.
type app struct {
	config   *Config
	deps     appDependencies
	logger   *logging.Logger
	cleanups []func(ctx context.Context)
	tracing  bool
}

func newApp(config *Config, deps appDependencies, logger *logging.Logger) *app {
	return &app{config: config, deps: deps.withDefaults(), logger: logger}
}

func (a *app) onShutdown(fn func(ctx context.Context)) {
	a.cleanups = append(a.cleanups, fn)
}

func (a *app) shutdown(ctx context.Context) {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i](ctx)
	}
	a.cleanups = nil
}

// startTracing never fails the process. Without a collector spans are dropped.
func (a *app) startTracing(ctx context.Context) {
	provider, err := a.deps.initTracing(ctx, a.config.Tracing)
	if err != nil {
		a.logger.WithError(err).Warn("Tracing disabled", "endpoint", a.config.Tracing.Endpoint)
		return
	}
	a.tracing = a.config.Tracing.Enabled
	a.onShutdown(func(ctx context.Context) {
		if err := provider.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Error("Failed to flush traces")
		}
	})
}

// start wires storage, the event relay and the pickup service, and returns
// the HTTP handler serving them
func (a *app) start(ctx context.Context) (http.Handler, error) {
	policy, err := domain.PolicyByName(a.config.Policy)
	if err != nil {
		return nil, fmt.Errorf("invalid pickup policy: %w", err)
	}

	a.startTracing(ctx)
	m := a.deps.newMetrics(metrics.DefaultConfig(serviceName))

	client, err := a.deps.newMongoClient(ctx, a.config.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	store := a.deps.newInstrumentedMongo(client)
	a.onShutdown(func(ctx context.Context) { _ = store.Close(ctx) })
	a.logger.Info("Connected to MongoDB", "database", a.config.MongoDB.Database)

	producer := a.deps.newKafkaProducer(a.config.Kafka, m, a.logger)
	a.onShutdown(func(context.Context) { _ = producer.Close() })

	repo := a.deps.newEvaluationRepository(store.Database(), a.deps.newEventFactory(cloudevents.SourcePickupService), m, a.logger)

	contract, err := asyncapi.Load(api.AsyncAPI)
	if err != nil {
		return nil, fmt.Errorf("failed to load event contract: %w", err)
	}
	relayConfig := *a.config.Outbox
	relayConfig.Contract = contract

	relay := a.deps.newOutboxPublisher(repo.GetOutboxRepository(), producer, a.logger, m, &relayConfig)
	if err := relay.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start outbox publisher: %w", err)
	}
	a.onShutdown(func(context.Context) { _ = relay.Stop() })
	a.logger.Info("Outbox publisher started", "brokers", a.config.Kafka.Brokers)

	service, err := a.deps.newPickupService(repo, policy, m, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create pickup service: %w", err)
	}
	a.logger.Info("Pickup service initialized", "policy", policy.Name, "fallback", string(policy.Fallback))

	return a.router(ctx, service, store, m), nil
}

func (a *app) router(ctx context.Context, service handlers.PickupService, store instrumentedMongo, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	mwConfig := middleware.DefaultConfig(serviceName, a.logger.Logger)
	mwConfig.AllowOrigins = a.config.AllowOrigins
	mwConfig.Tracing = a.tracing
	middleware.Setup(router, mwConfig)
	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		if err := store.HealthCheck(ctx); err != nil {
			return errors.New("mongodb unreachable")
		}
		return nil
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	handlers.NewPickupHandlers(service, a.logger).RegisterRoutes(router.Group("/api/v1"))
	return router
}
