// Package mrabbitmq wraps the AMQP connection, the confirming producer the
// outbox publisher drains through, and the consumer loops every service runs.
//
// All events flow through one durable topic exchange with the logical topic
// name as routing key. Each consumer binds a "<service>.<topic>" queue, so
// every interested service receives its own copy of a published event.
package mrabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/events"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

// Exchange is the single topic exchange carrying all SagaPay events.
const Exchange = "sagapay.events"

const publishTimeout = 5 * time.Second

// Connection owns the AMQP connection shared by producer and consumers.
type Connection struct {
	conn *amqp.Connection
}

// Connect dials the broker and declares the exchange.
func Connect(url string) (*Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening setup channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", Exchange, err)
	}
	return &Connection{conn: conn}, nil
}

// Close tears down the AMQP connection.
func (c *Connection) Close() error { return c.conn.Close() }

// Producer publishes envelopes with publisher confirms enabled.
type Producer struct {
	ch *amqp.Channel
}

// NewProducer opens a confirming channel on the connection.
func (c *Connection) NewProducer() (*Producer, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("opening producer channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enabling publisher confirms: %w", err)
	}
	return &Producer{ch: ch}, nil
}

// Publish sends one envelope to the topic and waits for its own broker
// confirm. The deferred confirmation is keyed by delivery tag, so concurrent
// publishers on the channel each wait on the ack for their own publish and
// never consume another goroutine's. An unconfirmed or nacked publish is a
// transient error; the outbox row stays unpublished and is retried.
func (p *Producer) Publish(ctx context.Context, topic string, envelope events.Envelope) error {
	body, err := envelope.Encode()
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(pubCtx, Exchange, topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    envelope.EventID,
		Timestamp:    envelope.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return apperr.Transient(err, "publishing to %s", topic)
	}

	acked, err := confirm.WaitContext(pubCtx)
	if err != nil {
		return apperr.Transient(err, "awaiting publish confirm on %s", topic)
	}
	if !acked {
		return apperr.Transient(nil, "broker nacked publish to %s", topic)
	}
	return nil
}

// Close releases the producer channel.
func (p *Producer) Close() error { return p.ch.Close() }

// Handler processes one decoded envelope. Returning a transient error
// requeues the delivery; any other error acknowledges it after logging, with
// dead-lettering left to the handler itself.
type Handler func(ctx context.Context, envelope events.Envelope) error

// ConsumerOptions bound the consume loop.
type ConsumerOptions struct {
	// Prefetch is the in-flight budget per consumer channel.
	Prefetch int
	// HandleTimeout bounds one handler invocation.
	HandleTimeout time.Duration
	// RequeueDelay throttles redelivery of transient failures.
	RequeueDelay time.Duration
}

func (o ConsumerOptions) withDefaults() ConsumerOptions {
	if o.Prefetch <= 0 {
		o.Prefetch = 8
	}
	if o.HandleTimeout <= 0 {
		o.HandleTimeout = 30 * time.Second
	}
	if o.RequeueDelay <= 0 {
		o.RequeueDelay = time.Second
	}
	return o
}

// Consumer runs handler loops for one service identity.
type Consumer struct {
	conn    *Connection
	service string
	logger  *zap.SugaredLogger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
	opts    ConsumerOptions
}

// NewConsumer builds a consumer bound to the service's queue namespace.
func (c *Connection) NewConsumer(service string, logger *zap.SugaredLogger, metrics *telemetry.Metrics, opts ConsumerOptions) *Consumer {
	return &Consumer{
		conn:    c,
		service: service,
		logger:  logger,
		metrics: metrics,
		tracer:  telemetry.Tracer(service),
		opts:    opts.withDefaults(),
	}
}

// Subscribe declares the queue for topic and consumes it until ctx ends.
// It blocks; run one goroutine per subscribed topic.
func (c *Consumer) Subscribe(ctx context.Context, topic string, handler Handler) error {
	ch, err := c.conn.conn.Channel()
	if err != nil {
		return fmt.Errorf("opening consumer channel for %s: %w", topic, err)
	}
	defer ch.Close()

	if err := ch.Qos(c.opts.Prefetch, 0, false); err != nil {
		return fmt.Errorf("setting prefetch for %s: %w", topic, err)
	}

	queue := c.service + "." + topic
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, topic, Exchange, false, nil); err != nil {
		return fmt.Errorf("binding queue %s: %w", queue, err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming queue %s: %w", queue, err)
	}

	c.logger.Infow("consumer started", "queue", queue, "topic", topic)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return apperr.Transient(nil, "delivery channel closed for %s", queue)
			}
			c.handleDelivery(ctx, topic, delivery, handler)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, topic string, delivery amqp.Delivery, handler Handler) {
	envelope, err := events.Decode(delivery.Body)
	if err != nil {
		// Unparseable messages cannot be retried or attributed; drop with a
		// loud log and keep the queue moving.
		c.logger.Errorw("malformed event dropped", "topic", topic, "error", err)
		c.metrics.InvariantViolations.WithLabelValues("malformed_event").Inc()
		_ = delivery.Ack(false)
		return
	}

	if delay := time.Since(envelope.OccurredAt); delay > 0 {
		c.metrics.EventQueueDelay.WithLabelValues(topic).Observe(delay.Seconds())
	}

	handleCtx, cancel := context.WithTimeout(ctx, c.opts.HandleTimeout)
	handleCtx, span := c.tracer.Start(handleCtx, "consume "+topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.topic", topic),
			attribute.String("event_id", envelope.EventID),
			attribute.String("payment_id", envelope.AggregateID),
		))
	err = handler(handleCtx, envelope)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
	cancel()

	switch {
	case err == nil:
		_ = delivery.Ack(false)
	case apperr.IsDuplicate(err):
		c.metrics.DuplicateEventsTotal.WithLabelValues(topic).Inc()
		c.logger.Infow("duplicate event skipped", "topic", topic, "event_id", envelope.EventID)
		_ = delivery.Ack(false)
	case apperr.IsTransient(err):
		c.logger.Warnw("transient handler failure, requeueing",
			"topic", topic, "event_id", envelope.EventID, "error", err)
		time.Sleep(c.opts.RequeueDelay)
		_ = delivery.Nack(false, true)
	default:
		// Non-retryable handler outcomes were already converted into failed
		// events or DLQ entries by the handler; the delivery is done.
		c.logger.Errorw("handler failed",
			"topic", topic, "event_id", envelope.EventID, "error", err)
		_ = delivery.Ack(false)
	}
}
