package outbox

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/events"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

// BrokerPublisher is the broker-side surface the publisher drains through.
type BrokerPublisher interface {
	Publish(ctx context.Context, topic string, envelope events.Envelope) error
}

// PublisherOptions tune the drain loop.
type PublisherOptions struct {
	// Workers is the number of concurrent claim/publish loops.
	Workers int
	// BatchSize caps rows claimed per poll.
	BatchSize int
	// PollInterval is the idle sleep between polls.
	PollInterval time.Duration
	// MaxAttempts parks a row FAILED once exceeded. A FAILED row is never
	// deleted; it waits for operator replay.
	MaxAttempts int
}

func (o PublisherOptions) withDefaults() PublisherOptions {
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	return o
}

// Publisher drains staged outbox rows to the broker.
type Publisher struct {
	repo    Repository
	broker  BrokerPublisher
	logger  *zap.SugaredLogger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
	opts    PublisherOptions
}

// NewPublisher wires a publisher for one service outbox.
func NewPublisher(repo Repository, broker BrokerPublisher, logger *zap.SugaredLogger, metrics *telemetry.Metrics, opts PublisherOptions) *Publisher {
	return &Publisher{
		repo:    repo,
		broker:  broker,
		logger:  logger,
		metrics: metrics,
		tracer:  telemetry.Tracer("outbox"),
		opts:    opts.withDefaults(),
	}
}

// Run blocks draining the outbox until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	for i := 0; i < p.opts.Workers; i++ {
		go p.workerLoop(ctx)
	}
	p.gaugeLoop(ctx)
}

func (p *Publisher) workerLoop(ctx context.Context) {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for p.DrainOnce(ctx) {
				// Keep draining full batches before sleeping again.
			}
		}
	}
}

// DrainOnce claims and publishes one batch. It reports whether a full batch
// was claimed, signalling more rows are likely waiting.
func (p *Publisher) DrainOnce(ctx context.Context) bool {
	batch, err := p.repo.ClaimBatch(ctx, p.opts.BatchSize)
	if err != nil {
		p.logger.Warnw("outbox claim failed", "error", err)
		return false
	}

	for _, event := range batch {
		p.publishOne(ctx, event)
	}
	return len(batch) == p.opts.BatchSize
}

func (p *Publisher) publishOne(ctx context.Context, event Event) {
	var envelope events.Envelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		// A row that cannot be decoded will never publish; park it.
		p.logger.Errorw("outbox row payload undecodable, parking",
			"event_id", event.EventID, "error", err)
		p.metrics.OutboxFailedTotal.Inc()
		_ = p.repo.MarkFailed(ctx, event.EventID, event.ClaimToken.String)
		return
	}

	ctx, span := p.tracer.Start(ctx, "publish "+event.Topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("event_id", event.EventID),
			attribute.Int("outbox.attempts", event.Attempts),
		))
	defer span.End()

	if err := p.broker.Publish(ctx, event.Topic, envelope); err != nil {
		span.RecordError(err)
		if event.Attempts >= p.opts.MaxAttempts {
			p.logger.Errorw("outbox publish budget exhausted, parking",
				"event_id", event.EventID, "topic", event.Topic, "attempts", event.Attempts, "error", err)
			p.metrics.OutboxFailedTotal.Inc()
			_ = p.repo.MarkFailed(ctx, event.EventID, event.ClaimToken.String)
			return
		}
		p.logger.Warnw("outbox publish failed, releasing",
			"event_id", event.EventID, "topic", event.Topic, "attempts", event.Attempts, "error", err)
		p.metrics.RetriesTotal.WithLabelValues("broker").Inc()
		_ = p.repo.Release(ctx, event.EventID, event.ClaimToken.String)
		return
	}

	if err := p.repo.MarkPublished(ctx, event.EventID, event.ClaimToken.String); err != nil && !apperr.IsDuplicate(err) {
		// The publish landed but the mark did not; the reclaimed row will be
		// republished and downstream inboxes will suppress it.
		p.logger.Warnw("marking outbox row published failed",
			"event_id", event.EventID, "error", err)
	}
}

func (p *Publisher) gaugeLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, oldest, err := p.repo.Backlog(ctx)
			if err != nil {
				continue
			}
			p.metrics.OutboxPending.Set(float64(count))
			p.metrics.OutboxOldestAge.Set(oldest.Seconds())
		}
	}
}
