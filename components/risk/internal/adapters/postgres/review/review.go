// Package review persists the manual review queue for payments parked in
// RISK_REVIEW.
package review

import (
	"context"
	"database/sql"
	"time"
)

// Review statuses. A review is created PENDING and finalized exactly once.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusDenied   = "DENIED"
)

// Review is one manual review queue entry.
type Review struct {
	ReviewID        string         `json:"review_id"`
	PaymentID       string         `json:"payment_id"`
	CustomerID      string         `json:"customer_id"`
	AmountCents     int64          `json:"amount_cents"`
	Reason          string         `json:"reason"`
	Status          string         `json:"status"`
	ReviewedBy      sql.NullString `json:"reviewed_by"`
	ReviewedAt      sql.NullTime   `json:"reviewed_at"`
	DecisionEventID sql.NullString `json:"decision_event_id"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Repository provides an abstraction on top of the review data source.
type Repository interface {
	// Create inserts a PENDING review; a second insert for the same payment
	// returns an expected-duplicate error.
	Create(ctx context.Context, r *Review) error
	FindByPayment(ctx context.Context, paymentID string) (*Review, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]Review, error)
	// Finalize moves a PENDING review to its terminal status. It reports
	// false when the review was already finalized.
	Finalize(ctx context.Context, paymentID, status, reviewedBy, decisionEventID string) (bool, error)
}
