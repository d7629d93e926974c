package main

import (
	"os"
	"strconv"
	"time"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/domain"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/mongodb"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/temporal"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/tracing"
)

// Config is read from the environment
type Config struct {
	Policy      string
	LogLevel    string
	MetricsAddr string
	MongoDB     *mongodb.Config
	Temporal    *temporal.Config
	Worker      temporal.WorkerConfig
	Tracing     *tracing.Config
}

func loadConfig() *Config {
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", tracingConfig.Endpoint)
	tracingConfig.Environment = getEnv("ENVIRONMENT", tracingConfig.Environment)
	tracingConfig.Enabled = getEnvBool("TRACING_ENABLED", true)

	workerConfig := temporal.DefaultWorkerConfig()
	workerConfig.TaskQueue = getEnv("TEMPORAL_TASK_QUEUE", workerConfig.TaskQueue)

	return &Config{
		Policy:      getEnv("PICKUP_POLICY", domain.PolicyNameDefault),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9091"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "pickup_db"),
			AppName:        serviceName,
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Temporal: &temporal.Config{
			HostPort:  getEnv("TEMPORAL_HOST", "localhost:7233"),
			Namespace: getEnv("TEMPORAL_NAMESPACE", "default"),
			Identity:  serviceName,
		},
		Worker:  workerConfig,
		Tracing: tracingConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return parsed
}
