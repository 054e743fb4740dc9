package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/nourish/pkg/observability"
)

// ProcessorConfig holds configuration for the outbox processor.
type ProcessorConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration

	// MaxLag is how old the oldest pending message may get before the
	// processor reports itself degraded.
	MaxLag time.Duration
}

// DefaultProcessorConfig returns the worker's defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:     time.Second,
		BatchSize:        100,
		MaxRetries:       5,
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  time.Minute,
		MaxLag:           5 * time.Minute,
	}
}

// Processor relays staged messages to the broker. A message that keeps
// failing is dead-lettered after MaxRetries attempts.
type Processor struct {
	repo      Repository
	publisher eventbus.Publisher
	config    ProcessorConfig
	metrics   observability.Metrics
	logger    *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	lastPoll time.Time
	lastErr  error
	oldest   time.Time
}

// NewProcessor creates a processor. Zero PollInterval and BatchSize take the
// defaults.
func NewProcessor(repo Repository, publisher eventbus.Publisher, config ProcessorConfig, metrics observability.Metrics, logger *slog.Logger) *Processor {
	defaults := DefaultProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxLag <= 0 {
		config.MaxLag = defaults.MaxLag
	}
	return &Processor{
		repo:      repo,
		publisher: publisher,
		config:    config,
		metrics:   observability.OrNoop(metrics),
		logger:    observability.ForComponent(logger, "outbox_processor"),
	}
}

// Start polls the outbox in the background until Stop is called or ctx is
// canceled. Starting a running processor does nothing.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(runCtx, p.done)

	p.logger.Info("outbox processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize,
	)
	return nil
}

// Stop ends polling and waits for the in-flight batch.
func (p *Processor) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	<-done
	p.logger.Info("outbox processor stopped")
}

// IsRunning reports whether the polling loop is active.
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Processor) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("failed to process outbox batch", observability.ErrorKey, err)
			}
		}
	}
}

// ProcessOnce relays one batch. Publish failures are recorded on the
// messages; only a failure to read the outbox is returned.
func (p *Processor) ProcessOnce(ctx context.Context) error {
	messages, err := p.repo.GetUnpublished(ctx, p.config.BatchSize)
	if err != nil {
		p.observe(nil, err)
		return fmt.Errorf("load outbox batch: %w", err)
	}

	var pending []*Message
	for _, msg := range messages {
		if !p.relay(ctx, msg) {
			pending = append(pending, msg)
		}
	}
	p.observe(pending, nil)
	return nil
}

// relay publishes msg and records the outcome. It reports whether the
// message was published.
func (p *Processor) relay(ctx context.Context, msg *Message) bool {
	tags := []observability.Tag{observability.T("routing_key", msg.RoutingKey)}

	err := p.publisher.Publish(ctx, msg.RoutingKey, msg.Payload)
	if err == nil {
		p.metrics.Counter(observability.MetricOutboxPublished, 1, tags...)
		if markErr := p.repo.MarkPublished(ctx, msg.ID); markErr != nil {
			p.logger.Error("failed to mark message as published",
				"id", msg.ID,
				"event_id", msg.EventID,
				observability.ErrorKey, markErr,
			)
		}
		return true
	}

	meta := p.metadata(msg)
	p.logger.Warn("failed to publish message",
		"id", msg.ID,
		"routing_key", msg.RoutingKey,
		"event_id", msg.EventID,
		observability.CorrelationIDKey, meta.CorrelationID,
		observability.UserIDKey, meta.UserID,
		observability.ErrorKey, err,
	)

	if msg.Exhausted(p.config.MaxRetries) {
		p.metrics.Counter(observability.MetricOutboxDead, 1, tags...)
		if markErr := p.repo.MarkDead(ctx, msg.ID, err.Error()); markErr != nil {
			p.logger.Error("failed to dead-letter message", "id", msg.ID, observability.ErrorKey, markErr)
		}
		return false
	}

	p.metrics.Counter(observability.MetricOutboxFailed, 1, tags...)
	nextRetryAt := time.Now().Add(p.retryBackoff(msg.RetryCount + 1))
	if markErr := p.repo.MarkFailed(ctx, msg.ID, err.Error(), nextRetryAt); markErr != nil {
		p.logger.Error("failed to mark message as failed", "id", msg.ID, observability.ErrorKey, markErr)
	}
	return false
}

// retryBackoff doubles RetryBackoffBase per attempt, capped at RetryBackoffMax.
func (p *Processor) retryBackoff(attempt int) time.Duration {
	base := p.config.RetryBackoffBase
	if base <= 0 {
		base = time.Second
	}
	limit := p.config.RetryBackoffMax
	if limit <= 0 {
		limit = time.Minute
	}

	backoff := base
	for i := 1; i < attempt && backoff < limit; i++ {
		backoff *= 2
	}
	return min(backoff, limit)
}

// metadata reads tracing fields from the staged envelope for logging.
func (p *Processor) metadata(msg *Message) eventbus.EnvelopeMetadata {
	envelope, err := msg.Envelope()
	if err != nil {
		return eventbus.EnvelopeMetadata{}
	}
	return envelope.Metadata
}

// observe records the poll outcome and the age of the oldest message left
// pending.
func (p *Processor) observe(pending []*Message, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastPoll = time.Now()
	p.lastErr = err
	if err != nil {
		return
	}

	p.oldest = time.Time{}
	for _, msg := range pending {
		if p.oldest.IsZero() || msg.CreatedAt.Before(p.oldest) {
			p.oldest = msg.CreatedAt
		}
	}
	lag := 0.0
	if !p.oldest.IsZero() {
		lag = p.lastPoll.Sub(p.oldest).Seconds()
	}
	p.metrics.Gauge(observability.MetricOutboxLag, lag)
}

// HealthCheck reports degraded while the processor is stopped, cannot read
// the outbox, or lets a message wait longer than MaxLag.
func (p *Processor) HealthCheck() observability.HealthChecker {
	return func(ctx context.Context) observability.HealthCheckResult {
		p.mu.Lock()
		defer p.mu.Unlock()

		switch {
		case p.cancel == nil:
			return observability.HealthCheckResult{Status: observability.HealthStatusDegraded, Message: "outbox processor not running"}
		case p.lastErr != nil:
			return observability.HealthCheckResult{Status: observability.HealthStatusDegraded, Message: p.lastErr.Error()}
		case !p.oldest.IsZero() && time.Since(p.oldest) > p.config.MaxLag:
			return observability.HealthCheckResult{
				Status:  observability.HealthStatusDegraded,
				Message: fmt.Sprintf("oldest pending message is %s old", time.Since(p.oldest).Round(time.Second)),
			}
		default:
			return observability.HealthCheckResult{Status: observability.HealthStatusHealthy}
		}
	}
}
