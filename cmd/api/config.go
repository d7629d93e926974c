package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/domain"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/kafka"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/mongodb"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/outbox"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/tracing"
)

// Config holds application configuration
type Config struct {
	ServerAddr      string
	Policy          string
	LogLevel        string
	AllowOrigins    []string
	ShutdownTimeout time.Duration
	MongoDB         *mongodb.Config
	Kafka           *kafka.Config
	Outbox          *outbox.PublisherConfig
	Tracing         *tracing.Config
}

func loadConfig() *Config {
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", tracingConfig.Endpoint)
	tracingConfig.Environment = getEnv("ENVIRONMENT", tracingConfig.Environment)
	tracingConfig.Enabled = getEnvBool("TRACING_ENABLED", true)

	return &Config{
		ServerAddr:      getEnv("SERVER_ADDR", ":8020"),
		Policy:          getEnv("PICKUP_POLICY", domain.PolicyNameDefault),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		AllowOrigins:    getEnvList("CORS_ALLOW_ORIGINS"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "pickup_db"),
			AppName:        serviceName,
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      getEnvList("KAFKA_BROKERS", "localhost:9092"),
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
		Outbox: &outbox.PublisherConfig{
			PollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:    100,
			MaxAttempts:  outbox.MaxAttempts,
		},
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	parsed, err := time.ParseDuration(os.Getenv(key))
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

// getEnvList splits a comma separated variable, dropping blank entries
func getEnvList(key string, defaultValues ...string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValues
	}
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
