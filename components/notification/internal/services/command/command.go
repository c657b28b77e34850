// Package command implements the notification sink: one log row per terminal
// payment outcome, guarded by the inbox.
package command

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/UmangBid/SagaPay/components/notification/internal/adapters/postgres/notification"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/events"
	"github.com/UmangBid/SagaPay/pkg/inbox"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

// TransactionManager runs a function inside one database transaction.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UseCase aggregates the repositories needed for notification writes.
type UseCase struct {
	NotificationRepo notification.Repository
	InboxRepo        inbox.Repository
	Tx               TransactionManager
	Logger           *zap.SugaredLogger
	Metrics          *telemetry.Metrics
}

// HandleTerminal logs the customer-facing message for a terminal outcome.
// One handler serves payments.settled, payments.failed, and payments.reversed;
// the envelope type picks the wording.
func (uc *UseCase) HandleTerminal(ctx context.Context, envelope events.Envelope) error {
	kind, message, err := render(envelope)
	if err != nil {
		return err
	}

	err = uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.InboxRepo.Record(ctx, envelope.EventID, constant.ServiceNotification); err != nil {
			return err
		}
		return uc.NotificationRepo.Append(ctx, &notification.Notification{
			PaymentID: envelope.AggregateID,
			EventID:   envelope.EventID,
			Kind:      kind,
			Message:   message,
		})
	})
	if err != nil {
		return err
	}

	uc.Logger.Infow("notification logged",
		"payment_id", envelope.AggregateID, "kind", kind)
	return nil
}

func render(envelope events.Envelope) (kind, message string, err error) {
	switch envelope.Type {
	case constant.TopicPaymentsSettled:
		var settled events.Settled
		if err := envelope.DecodePayload(&settled); err != nil {
			return "", "", err
		}
		return "SETTLED", fmt.Sprintf("payment %s settled for %d cents", envelope.AggregateID, settled.AmountCents), nil

	case constant.TopicPaymentsFailed:
		var failed events.Failed
		if err := envelope.DecodePayload(&failed); err != nil {
			return "", "", err
		}
		return "FAILED", fmt.Sprintf("payment %s failed (%s)", envelope.AggregateID, failed.Classification), nil

	case constant.TopicPaymentsReversed:
		var reversed events.Reversed
		if err := envelope.DecodePayload(&reversed); err != nil {
			return "", "", err
		}
		return "REVERSED", fmt.Sprintf("payment %s reversed: %s", envelope.AggregateID, reversed.Reason), nil

	default:
		return "", "", fmt.Errorf("unexpected event type %s", envelope.Type)
	}
}
