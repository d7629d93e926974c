package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/activities"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/application"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/domain"
	mongoRepo "github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/infrastructure/mongodb"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/workflows"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/cloudevents"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/metrics"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/mongodb"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/temporal"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/tracing"
)

const serviceName = "pickup-worker"

func main() {
	config := loadConfig()

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(config.LogLevel)
	logger := logging.New(logConfig)
	logger.SetDefault()

	if err := run(context.Background(), config, logger); err != nil {
		logger.WithError(err).Error("Worker exited")
		os.Exit(1)
	}
}

// run blocks until the process is interrupted or the worker fails
func run(ctx context.Context, config *Config, logger *logging.Logger) error {
	policy, err := domain.PolicyByName(config.Policy)
	if err != nil {
		return fmt.Errorf("invalid pickup policy %q: %w", config.Policy, err)
	}

	provider, err := tracing.Start(ctx, config.Tracing)
	if err != nil {
		logger.WithError(err).Warn("Tracing disabled", "endpoint", config.Tracing.Endpoint)
	} else {
		defer flush(logger, provider.Shutdown)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))
	metricsServer := &http.Server{Addr: config.MetricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Metrics server failed", "addr", config.MetricsAddr)
		}
	}()
	defer flush(logger, metricsServer.Shutdown)

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		return err
	}
	store := mongodb.NewInstrumentedClient(mongoClient)
	defer flush(logger, store.Close)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// The API process relays the outbox rows written here
	repo := mongoRepo.NewEvaluationRepository(store.Database(), cloudevents.NewEventFactory(cloudevents.SourcePickupService), mongoRepo.WithInstrumentation(m, logger))
	service, err := application.NewPickupApplicationService(repo, policy, m, logger)
	if err != nil {
		return fmt.Errorf("create pickup service: %w", err)
	}

	temporalClient, err := temporal.Dial(ctx, config.Temporal, logger.WithComponent("temporal").Logger)
	if err != nil {
		return err
	}
	defer temporalClient.Close()

	w := temporal.NewWorker(temporalClient, config.Worker)
	w.RegisterWorkflowWithOptions(workflows.LocalPickupWorkflow, workflow.RegisterOptions{Name: temporal.LocalPickupWorkflow})
	w.RegisterActivityWithOptions(activities.NewPickupActivities(service, m, logger).EvaluateLocalPickup,
		activity.RegisterOptions{Name: temporal.EvaluateLocalPickupActivity})

	logger.Info("Worker starting",
		"hostPort", config.Temporal.HostPort,
		"taskQueue", config.Worker.TaskQueue,
		"policy", policy.Name,
		"metricsAddr", config.MetricsAddr,
	)
	if err := w.Run(worker.InterruptCh()); err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	logger.Info("Worker stopped")
	return nil
}

func flush(logger *logging.Logger, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.WithError(err).Warn("Shutdown step failed")
	}
}
