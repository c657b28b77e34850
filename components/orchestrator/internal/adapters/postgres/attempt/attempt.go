// Package attempt records provider-interaction outcomes observed by the
// orchestrator. The log is append-only.
package attempt

import (
	"context"
	"database/sql"
	"time"
)

// Attempt is one recorded provider interaction result.
type Attempt struct {
	AttemptID     string         `json:"attempt_id"`
	PaymentID     string         `json:"payment_id"`
	AttemptNumber int            `json:"attempt_number"`
	Result        string         `json:"result"`
	ErrorCode     sql.NullString `json:"error_code"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Repository provides an abstraction on top of the attempt data source.
type Repository interface {
	Append(ctx context.Context, a *Attempt) error
}
