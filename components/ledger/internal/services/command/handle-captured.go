package command

import (
	"context"

	"github.com/UmangBid/SagaPay/components/ledger/internal/adapters/postgres/entry"
	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/events"
)

// HandleCaptured posts the double entry for a captured payment and stages
// payments.settled, all in one transaction: inbox row, DEBIT, CREDIT, balance
// check, outbox row. The transaction id is the payment id.
//
// The balance re-read inside the transaction is the last line of defense: if
// the posting somehow does not sum to zero the whole transaction aborts and
// the invariant counter fires. That path should be unreachable.
func (uc *UseCase) HandleCaptured(ctx context.Context, envelope events.Envelope) error {
	var captured events.Captured
	if err := envelope.DecodePayload(&captured); err != nil {
		return err
	}

	transactionID := envelope.AggregateID

	settled, err := events.New(constant.TopicPaymentsSettled, envelope.AggregateID, envelope.CorrelationID, events.Settled{
		TransactionID: transactionID,
		AmountCents:   captured.AmountCents,
	})
	if err != nil {
		return err
	}

	err = uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.InboxRepo.Record(ctx, envelope.EventID, constant.ServiceLedger); err != nil {
			return err
		}

		if err := uc.EntryRepo.Append(ctx, &entry.Entry{
			TransactionID: transactionID,
			AccountID:     uc.Chart.CustomerAccountID,
			Direction:     constant.DirectionDebit,
			AmountCents:   captured.AmountCents,
		}); err != nil {
			return err
		}
		if err := uc.EntryRepo.Append(ctx, &entry.Entry{
			TransactionID: transactionID,
			AccountID:     uc.Chart.MerchantAccountID,
			Direction:     constant.DirectionCredit,
			AmountCents:   captured.AmountCents,
		}); err != nil {
			return err
		}

		debits, credits, err := uc.EntryRepo.Balance(ctx, transactionID)
		if err != nil {
			return err
		}
		if debits != credits {
			uc.Metrics.InvariantViolations.WithLabelValues("ledger_balance").Inc()
			return apperr.Invariant("LEDGER_IMBALANCE",
				"transaction %s posts debits %d against credits %d", transactionID, debits, credits)
		}

		return uc.OutboxRepo.Add(ctx, settled, constant.TopicPaymentsSettled)
	})
	if err != nil {
		return err
	}

	uc.Logger.Infow("payment settled",
		"payment_id", envelope.AggregateID, "transaction_id", transactionID, "amount_cents", captured.AmountCents)
	return nil
}
