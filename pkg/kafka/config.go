package kafka

import (
	"time"
)

// Config holds Kafka producer configuration
type Config struct {
	Brokers  []string
	ClientID string

	BatchSize    int
	BatchTimeout time.Duration
	// RequiredAcks is 0 for none, 1 for the leader and -1 for all in sync replicas
	RequiredAcks     int
	AutoCreateTopics bool
}

// DefaultConfig targets a local broker and waits for all replicas
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		ClientID:     "pickup-service",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,
	}
}

// Topics contains the Kafka topic names used by the pickup service
var Topics = struct {
	PickupEvents string
}{
	PickupEvents: "diylabel.pickup.events",
}
