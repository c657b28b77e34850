// Package in exposes the risk operator HTTP surface.
package in

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/UmangBid/SagaPay/components/risk/internal/adapters/postgres/review"
	"github.com/UmangBid/SagaPay/components/risk/internal/services/command"
	"github.com/UmangBid/SagaPay/components/risk/internal/services/query"
	"github.com/UmangBid/SagaPay/pkg/apperr"
	libhttp "github.com/UmangBid/SagaPay/pkg/net/http"
)

// ReviewHandler serves the manual review queue.
type ReviewHandler struct {
	Command  *command.UseCase
	Query    *query.UseCase
	validate *validator.Validate
}

// NewReviewHandler wires the handler with its use cases.
func NewReviewHandler(cmd *command.UseCase, qry *query.UseCase) *ReviewHandler {
	return &ReviewHandler{
		Command:  cmd,
		Query:    qry,
		validate: validator.New(),
	}
}

// ListReviews handles GET /ops/reviews.
func (h *ReviewHandler) ListReviews(c *fiber.Ctx) error {
	reviews, err := h.Query.ListPendingReviews(c.UserContext(), c.QueryInt("limit"))
	if err != nil {
		return libhttp.Error(c, err)
	}
	if reviews == nil {
		reviews = []review.Review{}
	}
	return c.JSON(fiber.Map{"reviews": reviews})
}

// Approve handles POST /ops/reviews/:payment_id/approve.
func (h *ReviewHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, true)
}

// Deny handles POST /ops/reviews/:payment_id/deny.
func (h *ReviewHandler) Deny(c *fiber.Ctx) error {
	return h.decide(c, false)
}

func (h *ReviewHandler) decide(c *fiber.Ctx, approve bool) error {
	var input command.ManualDecisionInput
	if err := c.BodyParser(&input); err != nil {
		return libhttp.Error(c, apperr.Validation("MALFORMED_BODY", "request body is not valid JSON"))
	}
	if err := h.validate.Struct(input); err != nil {
		return libhttp.Error(c, apperr.Validation("INVALID_REQUEST", "invalid decision request: %v", err))
	}

	input.PaymentID = c.Params("payment_id")
	input.Approve = approve
	input.CorrelationID = libhttp.CorrelationID(c)

	rev, err := h.Command.ManualDecision(c.UserContext(), input)
	if err != nil {
		return libhttp.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"payment_id":  rev.PaymentID,
		"status":      rev.Status,
		"reviewed_by": rev.ReviewedBy.String,
	})
}
