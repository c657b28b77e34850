// Package entry is the append-only double-entry store. The repository
// deliberately exposes no update or delete: corrections are new entries, and
// the storage layer backs this up with a trigger that rejects UPDATE and
// DELETE on the table outright.
package entry

import (
	"context"
	"time"
)

// Entry is one side of a double-entry posting. TransactionID equals the
// payment id, so a payment's full posting is retrievable by its own id.
type Entry struct {
	EntryID       string    `json:"entry_id"`
	TransactionID string    `json:"transaction_id"`
	AccountID     string    `json:"account_id"`
	Direction     string    `json:"direction"`
	AmountCents   int64     `json:"amount_cents"`
	CreatedAt     time.Time `json:"created_at"`
}

// Imbalance is one transaction whose debits and credits disagree.
type Imbalance struct {
	TransactionID string `json:"transaction_id"`
	DeltaCents    int64  `json:"delta_cents"`
}

// Repository provides an abstraction on top of the ledger entries.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByTransaction(ctx context.Context, transactionID string) ([]Entry, error)
	// Balance returns total debits and credits for one transaction.
	Balance(ctx context.Context, transactionID string) (debits, credits int64, err error)
	// Sweep scans every transaction and returns the count checked plus the
	// ones whose debits and credits disagree.
	Sweep(ctx context.Context) (checked int64, imbalanced []Imbalance, err error)
}
