// Package attempt records every call made to the upstream processor, one row
// per call, including retries that never surface downstream.
package attempt

import (
	"context"
	"database/sql"
	"time"
)

// Attempt is one processor call.
type Attempt struct {
	AttemptID     string         `json:"attempt_id"`
	PaymentID     string         `json:"payment_id"`
	AttemptNumber int            `json:"attempt_number"`
	Outcome       string         `json:"outcome"`
	ErrorCode     sql.NullString `json:"error_code"`
	LatencyMS     int64          `json:"latency_ms"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Repository provides an abstraction on top of the attempt log.
type Repository interface {
	Append(ctx context.Context, a *Attempt) error
	ListByPayment(ctx context.Context, paymentID string) ([]Attempt, error)
}
