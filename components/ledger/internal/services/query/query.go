// Package query implements the ledger's read side: reconciliation per
// transaction and across the whole book.
package query

import (
	"context"

	"github.com/UmangBid/SagaPay/components/ledger/internal/adapters/postgres/entry"
	"github.com/UmangBid/SagaPay/pkg/apperr"
)

// UseCase aggregates the repositories needed for ledger reads.
type UseCase struct {
	EntryRepo entry.Repository
}

// Reconciliation is the per-transaction balance report.
type Reconciliation struct {
	TransactionID string        `json:"transaction_id"`
	DebitCents    int64         `json:"debit_cents"`
	CreditCents   int64         `json:"credit_cents"`
	DeltaCents    int64         `json:"delta_cents"`
	Balanced      bool          `json:"balanced"`
	Entries       []entry.Entry `json:"entries"`
}

// SweepReport is the whole-book reconciliation result.
type SweepReport struct {
	TransactionsChecked int64             `json:"transactions_checked"`
	Imbalanced          []entry.Imbalance `json:"imbalanced"`
	Balanced            bool              `json:"balanced"`
}

// Reconcile reports one transaction's debits, credits, and entries.
func (uc *UseCase) Reconcile(ctx context.Context, transactionID string) (*Reconciliation, error) {
	entries, err := uc.EntryRepo.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apperr.NotFound("TRANSACTION_NOT_FOUND", "no entries for transaction %s", transactionID)
	}

	debits, credits, err := uc.EntryRepo.Balance(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	return &Reconciliation{
		TransactionID: transactionID,
		DebitCents:    debits,
		CreditCents:   credits,
		DeltaCents:    debits - credits,
		Balanced:      debits == credits,
		Entries:       entries,
	}, nil
}

// Sweep reconciles every transaction in the book.
func (uc *UseCase) Sweep(ctx context.Context) (*SweepReport, error) {
	checked, imbalanced, err := uc.EntryRepo.Sweep(ctx)
	if err != nil {
		return nil, err
	}
	if imbalanced == nil {
		imbalanced = []entry.Imbalance{}
	}
	return &SweepReport{
		TransactionsChecked: checked,
		Imbalanced:          imbalanced,
		Balanced:            len(imbalanced) == 0,
	}, nil
}
