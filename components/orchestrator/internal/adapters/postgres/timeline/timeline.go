// Package timeline persists the append-only audit trail of payment state
// transitions. Rows form a contiguous chain: each row's from_state equals
// the previous row's to_state.
package timeline

import (
	"context"
	"database/sql"
	"time"
)

// Entry is one audit row.
type Entry struct {
	TimelineID string         `json:"timeline_id"`
	PaymentID  string         `json:"payment_id"`
	FromState  sql.NullString `json:"from_state"`
	ToState    string         `json:"to_state"`
	Reason     string         `json:"reason"`
	EventID    sql.NullString `json:"event_id"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Repository provides an abstraction on top of the timeline data source.
//
//go:generate mockgen --destination=timeline.mock.go --package=timeline . Repository
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	ListByPayment(ctx context.Context, paymentID string) ([]Entry, error)
}
