// Package in exposes the ledger reconciliation HTTP surface.
package in

import (
	"github.com/gofiber/fiber/v2"

	"github.com/UmangBid/SagaPay/components/ledger/internal/services/query"
	libhttp "github.com/UmangBid/SagaPay/pkg/net/http"
)

// ReconciliationHandler serves balance reports.
type ReconciliationHandler struct {
	Query *query.UseCase
}

// NewReconciliationHandler wires the handler with its use case.
func NewReconciliationHandler(qry *query.UseCase) *ReconciliationHandler {
	return &ReconciliationHandler{Query: qry}
}

// Reconcile handles GET /reconciliation/:transaction_id.
func (h *ReconciliationHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.Query.Reconcile(c.UserContext(), c.Params("transaction_id"))
	if err != nil {
		return libhttp.Error(c, err)
	}
	return c.JSON(report)
}

// Sweep handles GET /reconciliation.
func (h *ReconciliationHandler) Sweep(c *fiber.Ctx) error {
	report, err := h.Query.Sweep(c.UserContext())
	if err != nil {
		return libhttp.Error(c, err)
	}
	return c.JSON(report)
}
