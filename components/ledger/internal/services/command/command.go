// Package command implements the ledger's write side: posting a balanced
// double entry per captured payment and announcing settlement.
package command

import (
	"context"

	"go.uber.org/zap"

	"github.com/UmangBid/SagaPay/components/ledger/internal/adapters/postgres/account"
	"github.com/UmangBid/SagaPay/components/ledger/internal/adapters/postgres/entry"
	"github.com/UmangBid/SagaPay/pkg/inbox"
	"github.com/UmangBid/SagaPay/pkg/outbox"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

// TransactionManager runs a function inside one database transaction.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Chart names the two accounts every settlement posts against.
type Chart struct {
	CustomerAccountID string
	MerchantAccountID string
}

// UseCase aggregates the repositories needed for ledger writes.
type UseCase struct {
	// AccountRepo manages the chart of accounts.
	AccountRepo account.Repository

	// EntryRepo is the append-only double-entry store.
	EntryRepo entry.Repository

	// OutboxRepo stages payments.settled in the ledger database.
	OutboxRepo outbox.Repository

	// InboxRepo guards consumed events for exactly-once postings.
	InboxRepo inbox.Repository

	// Tx wraps multi-write operations in one database transaction.
	Tx TransactionManager

	Chart   Chart
	Logger  *zap.SugaredLogger
	Metrics *telemetry.Metrics
}

// EnsureChart creates the configured accounts if missing. Called at startup.
func (uc *UseCase) EnsureChart(ctx context.Context) error {
	if err := uc.AccountRepo.Ensure(ctx, uc.Chart.CustomerAccountID, "customer funds"); err != nil {
		return err
	}
	return uc.AccountRepo.Ensure(ctx, uc.Chart.MerchantAccountID, "merchant receivable")
}
