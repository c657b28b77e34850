// Package account manages the ledger's chart of accounts.
package account

import (
	"context"
	"time"
)

// Account is one ledger account.
type Account struct {
	AccountID string    `json:"account_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository provides an abstraction on top of the account data source.
type Repository interface {
	// Ensure creates the account if it does not exist yet.
	Ensure(ctx context.Context, accountID, name string) error
	Find(ctx context.Context, accountID string) (*Account, error)
}
