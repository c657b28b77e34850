// Package payment provides the payment aggregate and its data source
// abstraction. The payments table is the source of truth for lifecycle
// state; every transition goes through the compare-and-swap update in
// TransitionState.
package payment

import (
	"context"
	"time"

	"github.com/UmangBid/SagaPay/pkg/statemachine"
)

// Payment is the current state of one payment aggregate.
type Payment struct {
	PaymentID      string              `json:"payment_id"`
	CustomerID     string              `json:"customer_id"`
	AmountCents    int64               `json:"amount_cents"`
	Currency       string              `json:"currency"`
	Status         statemachine.Status `json:"status"`
	StateVersion   int64               `json:"state_version"`
	IdempotencyKey string              `json:"idempotency_key"`
	CorrelationID  string              `json:"correlation_id"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Repository provides an abstraction on top of the payment data source.
//
//go:generate mockgen --destination=payment.mock.go --package=payment . Repository
type Repository interface {
	// Create inserts a new CREATED payment. A (customer_id, idempotency_key)
	// collision returns an expected-duplicate error.
	Create(ctx context.Context, p *Payment) error
	// Find returns one payment by id.
	Find(ctx context.Context, paymentID string) (*Payment, error)
	// FindByIdempotencyKey returns the payment a racing or repeated request
	// already created.
	FindByIdempotencyKey(ctx context.Context, customerID, idempotencyKey string) (*Payment, error)
	// TransitionState performs the guarded state update: it succeeds only
	// when both the current status and state_version match, bumping the
	// version by exactly one. It reports false when no row matched.
	TransitionState(ctx context.Context, paymentID string, from statemachine.Status, fromVersion int64, to statemachine.Status) (bool, error)
}
