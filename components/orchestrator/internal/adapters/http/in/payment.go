// Package in exposes the orchestrator HTTP surface.
package in

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/UmangBid/SagaPay/components/orchestrator/internal/services/command"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/services/query"
	"github.com/UmangBid/SagaPay/pkg/apperr"
	libhttp "github.com/UmangBid/SagaPay/pkg/net/http"
)

// PaymentHandler serves payment creation and lookup.
type PaymentHandler struct {
	Command  *command.UseCase
	Query    *query.UseCase
	Limiter  *libhttp.RateLimiter
	validate *validator.Validate
}

// NewPaymentHandler wires the handler with its use cases.
func NewPaymentHandler(cmd *command.UseCase, qry *query.UseCase, limiter *libhttp.RateLimiter) *PaymentHandler {
	return &PaymentHandler{
		Command:  cmd,
		Query:    qry,
		Limiter:  limiter,
		validate: validator.New(),
	}
}

// CreatePayment handles POST /payments. A repeated idempotency key returns
// the existing record with 200.
func (h *PaymentHandler) CreatePayment(c *fiber.Ctx) error {
	var input command.CreatePaymentInput
	if err := c.BodyParser(&input); err != nil {
		return libhttp.Error(c, apperr.Validation("MALFORMED_BODY", "request body is not valid JSON"))
	}
	if err := h.validate.Struct(input); err != nil {
		return libhttp.Error(c, apperr.Validation("INVALID_REQUEST", "invalid payment request: %v", err))
	}

	if err := h.Limiter.Allow(c.UserContext(), input.CustomerID); err != nil {
		return libhttp.Error(c, err)
	}

	input.CorrelationID = libhttp.CorrelationID(c)
	p, err := h.Command.CreatePayment(c.UserContext(), input)
	if err != nil {
		return libhttp.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"payment_id": p.PaymentID,
		"status":     p.Status,
	})
}

// GetPayment handles GET /payments/:payment_id.
func (h *PaymentHandler) GetPayment(c *fiber.Ctx) error {
	view, err := h.Query.GetPayment(c.UserContext(), c.Params("payment_id"))
	if err != nil {
		return libhttp.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"payment_id":    view.Payment.PaymentID,
		"customer_id":   view.Payment.CustomerID,
		"amount_cents":  view.Payment.AmountCents,
		"currency":      view.Payment.Currency,
		"status":        view.Payment.Status,
		"state_version": view.Payment.StateVersion,
		"timeline":      view.Timeline,
	})
}
