package command

import (
	"context"

	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/events"
)

// HandleFailed bumps the customer's failure counter when a payment fails at
// the provider. The inbox guard keeps a redelivered event from counting the
// same failure twice; the counter itself lives in Redis and stays approximate.
func (uc *UseCase) HandleFailed(ctx context.Context, envelope events.Envelope) error {
	var failed events.Failed
	if err := envelope.DecodePayload(&failed); err != nil {
		return err
	}

	if failed.CustomerID == "" {
		uc.Logger.Warnw("failure event without customer attribution skipped",
			"event_id", envelope.EventID, "payment_id", envelope.AggregateID)
		return nil
	}

	if err := uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return uc.InboxRepo.Record(ctx, envelope.EventID, constant.ServiceRisk)
	}); err != nil {
		return err
	}

	return uc.CounterRepo.IncrementFailure(ctx, failed.CustomerID)
}
