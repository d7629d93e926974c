// Package temporal dials the Temporal frontend and holds the names and
// options shared by the pickup worker and its workflows.
package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	sdklog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

const (
	// TaskQueue is polled by the pickup worker
	TaskQueue = "local-pickup-queue"

	LocalPickupWorkflow         = "LocalPickupWorkflow"
	EvaluateLocalPickupActivity = "EvaluateLocalPickup"
)

// Config locates the Temporal frontend
type Config struct {
	HostPort  string
	Namespace string
	Identity  string
}

// DefaultConfig targets a local dev server
func DefaultConfig() *Config {
	return &Config{
		HostPort:  "localhost:7233",
		Namespace: "default",
		Identity:  "pickup-worker",
	}
}

// Dial connects to the frontend. SDK logs are written through logger.
func Dial(ctx context.Context, cfg *Config, logger *slog.Logger) (client.Client, error) {
	c, err := client.DialContext(ctx, client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Identity:  cfg.Identity,
		Logger:    sdklog.NewStructuredLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal %s: %w", cfg.HostPort, err)
	}
	return c, nil
}

// WorkerConfig sizes the pollers and executors of a worker
type WorkerConfig struct {
	TaskQueue        string
	Pollers          int
	MaxActivities    int
	MaxWorkflowTasks int
}

// DefaultWorkerConfig polls TaskQueue with four pollers per task kind
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		TaskQueue:        TaskQueue,
		Pollers:          4,
		MaxActivities:    100,
		MaxWorkflowTasks: 100,
	}
}

// NewWorker creates an unstarted worker on c
func NewWorker(c client.Client, cfg WorkerConfig) worker.Worker {
	return worker.New(c, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityTaskPollers:       cfg.Pollers,
		MaxConcurrentWorkflowTaskPollers:       cfg.Pollers,
		MaxConcurrentActivityExecutionSize:     cfg.MaxActivities,
		MaxConcurrentWorkflowTaskExecutionSize: cfg.MaxWorkflowTasks,
	})
}

// ActivityOptions gives an activity 30s per attempt and three attempts with
// exponential backoff. Errors of the named types are not retried.
func ActivityOptions(nonRetryable ...string) workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: nonRetryable,
		},
	}
}
