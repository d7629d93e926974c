// Package resilience guards calls to Kafka and MongoDB with a circuit
// breaker and exponential retry.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig controls when a Breaker opens and how it recovers
type BreakerConfig struct {
	Name string
	// ConsecutiveFailures opens the breaker regardless of volume
	ConsecutiveFailures uint32
	// FailureRatio opens the breaker once MinRequests calls were counted
	FailureRatio float64
	MinRequests  uint32
	// OpenFor is how long calls are rejected before probing again
	OpenFor time.Duration
	// HalfOpenProbes is the number of calls let through while probing
	HalfOpenProbes uint32
	// ResetEvery clears the closed state counters. Zero never clears.
	ResetEvery    time.Duration
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig opens after 5 straight failures or a 50% failure
// rate over at least 10 calls, and probes again after 30s
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:                name,
		ConsecutiveFailures: 5,
		FailureRatio:        0.5,
		MinRequests:         10,
		OpenFor:             30 * time.Second,
		HalfOpenProbes:      3,
		ResetEvery:          time.Minute,
	}
}

func (c BreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	if counts.ConsecutiveFailures >= c.ConsecutiveFailures {
		return true
	}
	return counts.Requests >= c.MinRequests &&
		float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

// Breaker is a gobreaker circuit for calls that only report an error
type Breaker struct {
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// NewBreaker builds a breaker. A nil logger uses slog.Default.
func NewBreaker(cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Breaker{logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenProbes,
		Interval:    cfg.ResetEvery,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: cfg.readyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	})
	return b
}

// Do runs fn unless the breaker is open. Rejections wrap ErrCircuitOpen and
// a context that is already done is reported without counting a failure.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", b.cb.Name(), ErrCircuitOpen)
	}
	return err
}

// State returns the current breaker state
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Counts returns the counters of the current generation
func (b *Breaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}
