package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UmangBid/SagaPay/components/ledger/internal/adapters/postgres/entry"
	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/constant"
)

type fakeEntries struct {
	rows []entry.Entry
}

func (f *fakeEntries) Append(_ context.Context, e *entry.Entry) error {
	f.rows = append(f.rows, *e)
	return nil
}

func (f *fakeEntries) ListByTransaction(_ context.Context, transactionID string) ([]entry.Entry, error) {
	var out []entry.Entry
	for _, e := range f.rows {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEntries) Balance(_ context.Context, transactionID string) (int64, int64, error) {
	var debits, credits int64
	for _, e := range f.rows {
		if e.TransactionID != transactionID {
			continue
		}
		if e.Direction == constant.DirectionDebit {
			debits += e.AmountCents
		} else {
			credits += e.AmountCents
		}
	}
	return debits, credits, nil
}

func (f *fakeEntries) Sweep(context.Context) (int64, []entry.Imbalance, error) {
	seen := map[string]int64{}
	for _, e := range f.rows {
		if e.Direction == constant.DirectionDebit {
			seen[e.TransactionID] += e.AmountCents
		} else {
			seen[e.TransactionID] -= e.AmountCents
		}
	}
	var imbalanced []entry.Imbalance
	for id, delta := range seen {
		if delta != 0 {
			imbalanced = append(imbalanced, entry.Imbalance{TransactionID: id, DeltaCents: delta})
		}
	}
	return int64(len(seen)), imbalanced, nil
}

func post(repo *fakeEntries, transactionID string, amount int64) {
	repo.rows = append(repo.rows,
		entry.Entry{TransactionID: transactionID, AccountID: "customer_funds", Direction: constant.DirectionDebit, AmountCents: amount},
		entry.Entry{TransactionID: transactionID, AccountID: "merchant_receivable", Direction: constant.DirectionCredit, AmountCents: amount},
	)
}

func TestReconcileBalancedTransaction(t *testing.T) {
	repo := &fakeEntries{}
	post(repo, "pay-1", 2500)
	uc := &UseCase{EntryRepo: repo}

	rec, err := uc.Reconcile(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), rec.DebitCents)
	assert.Equal(t, int64(2500), rec.CreditCents)
	assert.Equal(t, int64(0), rec.DeltaCents)
	assert.True(t, rec.Balanced)
	assert.Len(t, rec.Entries, 2)
}

func TestReconcileReportsImbalance(t *testing.T) {
	repo := &fakeEntries{}
	repo.rows = append(repo.rows, entry.Entry{
		TransactionID: "pay-1", AccountID: "customer_funds",
		Direction: constant.DirectionDebit, AmountCents: 2500,
	})
	uc := &UseCase{EntryRepo: repo}

	rec, err := uc.Reconcile(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.False(t, rec.Balanced)
	assert.Equal(t, int64(2500), rec.DeltaCents)
}

func TestReconcileUnknownTransactionIsNotFound(t *testing.T) {
	uc := &UseCase{EntryRepo: &fakeEntries{}}

	_, err := uc.Reconcile(context.Background(), "pay-missing")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSweepFlagsOnlyImbalancedTransactions(t *testing.T) {
	repo := &fakeEntries{}
	post(repo, "pay-1", 2500)
	post(repo, "pay-2", 1000)
	repo.rows = append(repo.rows, entry.Entry{
		TransactionID: "pay-3", AccountID: "customer_funds",
		Direction: constant.DirectionDebit, AmountCents: 99,
	})
	uc := &UseCase{EntryRepo: repo}

	report, err := uc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.TransactionsChecked)
	assert.False(t, report.Balanced)
	require.Len(t, report.Imbalanced, 1)
	assert.Equal(t, "pay-3", report.Imbalanced[0].TransactionID)
	assert.Equal(t, int64(99), report.Imbalanced[0].DeltaCents)
}

func TestSweepOnEmptyBookIsBalanced(t *testing.T) {
	uc := &UseCase{EntryRepo: &fakeEntries{}}

	report, err := uc.Sweep(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Balanced)
	assert.Empty(t, report.Imbalanced)
	assert.Equal(t, int64(0), report.TransactionsChecked)
}
