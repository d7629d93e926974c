package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/cloudevents"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/kafka"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/metrics"
)

var (
	ErrPublisherRunning    = errors.New("outbox publisher already running")
	ErrPublisherNotRunning = errors.New("outbox publisher not running")
)

// EventContract rejects events whose payload breaks the published contract
type EventContract interface {
	Validate(event *cloudevents.Event) error
}

// PublisherConfig tunes the relay loop. Events are checked against Contract
// before they are sent when it is set; a rejected event counts as a failed
// attempt.
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	Contract     EventContract
}

// DefaultPublisherConfig polls every second for up to 100 messages
func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		PollInterval: time.Second,
		BatchSize:    100,
		MaxAttempts:  MaxAttempts,
	}
}

// Stats counts relay outcomes since the publisher was created
type Stats struct {
	Sent   int64
	Failed int64
}

// Publisher polls the outbox and hands pending messages to Kafka
type Publisher struct {
	repo     Repository
	producer kafka.EventPublisher
	logger   *logging.Logger
	metrics  *metrics.Metrics
	cfg      PublisherConfig

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	sent   atomic.Int64
	failed atomic.Int64
}

// NewPublisher creates a stopped publisher. m may be nil.
func NewPublisher(repo Repository, producer kafka.EventPublisher, logger *logging.Logger, m *metrics.Metrics, cfg *PublisherConfig) *Publisher {
	defaults := DefaultPublisherConfig()
	if cfg == nil {
		cfg = defaults
	}
	resolved := *cfg
	if resolved.PollInterval <= 0 {
		resolved.PollInterval = defaults.PollInterval
	}
	if resolved.BatchSize <= 0 {
		resolved.BatchSize = defaults.BatchSize
	}
	if resolved.MaxAttempts <= 0 {
		resolved.MaxAttempts = defaults.MaxAttempts
	}

	return &Publisher{
		repo:     repo,
		producer: producer,
		logger:   logger.WithComponent("outbox-publisher"),
		metrics:  m,
		cfg:      resolved,
	}
}

// Start runs the poll loop until Stop is called or ctx ends
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrPublisherRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	p.logger.Info("Outbox publisher starting", "interval", p.cfg.PollInterval, "batchSize", p.cfg.BatchSize)
	go p.loop(loopCtx, p.done)
	return nil
}

// Stop ends the loop and waits for the batch in flight
func (p *Publisher) Stop() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return ErrPublisherNotRunning
	}
	cancel()
	<-done

	stats := p.Stats()
	p.logger.Info("Outbox publisher stopped", "sent", stats.Sent, "failed", stats.Failed)
	return nil
}

// IsRunning reports whether the loop is active
func (p *Publisher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Stats returns the relay counters
func (p *Publisher) Stats() Stats {
	return Stats{Sent: p.sent.Load(), Failed: p.failed.Load()}
}

func (p *Publisher) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}

// Flush relays one batch and returns how many messages were sent
func (p *Publisher) Flush(ctx context.Context) int {
	batch, err := p.repo.Pending(ctx, p.cfg.BatchSize, p.cfg.MaxAttempts)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Outbox poll failed")
		return 0
	}
	if p.metrics != nil {
		p.metrics.SetOutboxPending(len(batch))
	}

	sent := 0
	for _, msg := range batch {
		if ctx.Err() != nil {
			break
		}
		if p.relay(ctx, msg) {
			sent++
		}
	}
	return sent
}

func (p *Publisher) relay(ctx context.Context, msg *Message) bool {
	start := time.Now()
	err := p.send(ctx, msg)
	if p.metrics != nil {
		p.metrics.RecordOutboxPublish(msg.Type, err == nil, time.Since(start))
	}

	log := p.logger.WithContext(ctx)
	if err != nil {
		p.failed.Add(1)
		log.WithError(err).Error("Outbox relay failed",
			"messageId", msg.ID,
			"eventType", msg.Type,
			"key", msg.Key,
			"attempt", msg.Attempts+1,
		)
		if recErr := p.repo.RecordFailure(ctx, msg.ID, err); recErr != nil {
			log.WithError(recErr).Error("Recording outbox failure failed", "messageId", msg.ID)
		}
		return false
	}

	p.sent.Add(1)
	if err := p.repo.MarkSent(ctx, msg.ID); err != nil {
		log.WithError(err).Error("Marking outbox message sent failed", "messageId", msg.ID)
	}
	return true
}

func (p *Publisher) send(ctx context.Context, msg *Message) error {
	event, err := msg.CloudEvent()
	if err != nil {
		return err
	}
	if p.cfg.Contract != nil {
		if err := p.cfg.Contract.Validate(event); err != nil {
			return fmt.Errorf("message %s breaks the event contract: %w", msg.ID, err)
		}
	}
	return p.producer.PublishEvent(ctx, msg.Topic, event)
}
