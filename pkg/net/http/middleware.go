// Package http carries the fiber middleware and response helpers shared by
// the SagaPay HTTP surfaces: correlation-id propagation, API-key auth, the
// Redis token-bucket rate limit, metrics, and error-to-status mapping.
package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

const correlationIDKey = "correlation_id"

// WithCorrelationID ensures every request carries a correlation id, minting
// one when the caller did not supply the header.
func WithCorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		correlationID := c.Get(constant.HeaderCorrelationID)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		c.Locals(correlationIDKey, correlationID)
		c.Set(constant.HeaderCorrelationID, correlationID)
		return c.Next()
	}
}

// CorrelationID reads the request's correlation id set by WithCorrelationID.
func CorrelationID(c *fiber.Ctx) string {
	if v, ok := c.Locals(correlationIDKey).(string); ok {
		return v
	}
	return ""
}

// WithAPIKey rejects requests whose x-api-key header does not match.
func WithAPIKey(expected string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(constant.HeaderAPIKey) != expected {
			return Error(c, apperr.Unauthorized("missing or invalid API key"))
		}
		return c.Next()
	}
}

// WithTracing opens a server span per request on the service tracer and
// threads its context into the handler chain.
func WithTracing(service string) fiber.Handler {
	tracer := telemetry.Tracer(service)
	return func(c *fiber.Ctx) error {
		ctx, span := tracer.Start(c.UserContext(), c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("correlation_id", CorrelationID(c))))
		defer span.End()
		c.SetUserContext(ctx)

		err := c.Next()
		span.SetAttributes(
			attribute.String("http.route", c.Route().Path),
			attribute.Int("http.status_code", c.Response().StatusCode()),
		)
		return err
	}
}

// WithMetrics records request counts and latency per route.
func WithMetrics(metrics *telemetry.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		method := c.Method()
		metrics.HTTPRequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(c.Response().StatusCode())).Inc()
		return err
	}
}

// Error maps the apperr taxonomy onto HTTP statuses and writes the standard
// error body.
func Error(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := "INTERNAL"
	message := "internal error"

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message
		switch appErr.Kind {
		case apperr.KindValidation:
			status = fiber.StatusBadRequest
		case apperr.KindUnauthorized:
			status = fiber.StatusUnauthorized
		case apperr.KindRateLimited:
			status = fiber.StatusTooManyRequests
		case apperr.KindNotFound:
			status = fiber.StatusNotFound
		case apperr.KindConflict, apperr.KindDuplicate:
			status = fiber.StatusConflict
		}
	}

	return c.Status(status).JSON(fiber.Map{"code": code, "message": message})
}
