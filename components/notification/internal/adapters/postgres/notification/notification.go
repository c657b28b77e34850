// Package notification persists one delivery log row per terminal payment
// outcome. The log stands in for a real delivery channel; the row is the
// durable record that the customer-facing message was produced exactly once.
package notification

import (
	"context"
	"time"
)

// Notification is one logged terminal-outcome message.
type Notification struct {
	NotificationID string    `json:"notification_id"`
	PaymentID      string    `json:"payment_id"`
	EventID        string    `json:"event_id"`
	Kind           string    `json:"kind"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// Repository provides an abstraction on top of the notification log.
type Repository interface {
	Append(ctx context.Context, n *Notification) error
	ListByPayment(ctx context.Context, paymentID string) ([]Notification, error)
}
