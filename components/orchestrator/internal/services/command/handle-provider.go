package command

import (
	"context"

	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/attempt"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/events"
	"github.com/UmangBid/SagaPay/pkg/statemachine"
)

// HandleAuthorized records the authorization, auto-captures, and requests
// ledger settlement. AUTHORIZED and CAPTURED are committed in the same
// transaction: auto-capture has no intermediate observer.
func (uc *UseCase) HandleAuthorized(ctx context.Context, envelope events.Envelope) error {
	var authorized events.Authorized
	if err := envelope.DecodePayload(&authorized); err != nil {
		return err
	}

	return uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.InboxRepo.Record(ctx, envelope.EventID, constant.ServiceOrchestrator); err != nil {
			return err
		}
		p, err := uc.loadPayment(ctx, envelope)
		if err != nil || p == nil {
			return err
		}

		if err := uc.applyTransition(ctx, p, statemachine.StatusAuthorized, statemachine.TriggerAuthorized, envelope.EventID); err != nil {
			return err
		}
		if err := uc.applyTransition(ctx, p, statemachine.StatusCaptured, statemachine.TriggerCaptured, envelope.EventID); err != nil {
			return err
		}

		if err := uc.AttemptRepo.Append(ctx, &attempt.Attempt{
			PaymentID:     p.PaymentID,
			AttemptNumber: authorized.AttemptNumber,
			Result:        "AUTHORIZED",
		}); err != nil {
			return err
		}

		next, err := events.New(constant.TopicPaymentsCaptured, p.PaymentID, envelope.CorrelationID, events.Captured{
			CustomerID:  p.CustomerID,
			AmountCents: p.AmountCents,
			Currency:    p.Currency,
		})
		if err != nil {
			return err
		}
		return uc.OutboxRepo.Add(ctx, next, constant.TopicPaymentsCaptured)
	})
}

// HandleFailed settles the failure branch. A retry-exhausted timeout arriving
// after authorization is compensated with a reversal instead of a plain
// failure, because the provider may have taken the money.
func (uc *UseCase) HandleFailed(ctx context.Context, envelope events.Envelope) error {
	var failed events.Failed
	if err := envelope.DecodePayload(&failed); err != nil {
		return err
	}

	return uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.InboxRepo.Record(ctx, envelope.EventID, constant.ServiceOrchestrator); err != nil {
			return err
		}
		p, err := uc.loadPayment(ctx, envelope)
		if err != nil || p == nil {
			return err
		}

		if err := uc.AttemptRepo.Append(ctx, &attempt.Attempt{
			PaymentID:     p.PaymentID,
			AttemptNumber: failed.AttemptNumber,
			Result:        "FAILED",
			ErrorCode:     nullString(failed.Classification),
		}); err != nil {
			return err
		}

		if p.Status == statemachine.StatusAuthorized && failed.Classification == constant.ClassificationRetryExhausted {
			if err := uc.applyTransition(ctx, p, statemachine.StatusReversed, statemachine.TriggerCaptureTimeout, envelope.EventID); err != nil {
				return err
			}

			reversed, err := events.New(constant.TopicPaymentsReversed, p.PaymentID, envelope.CorrelationID, events.Reversed{
				Reason:        string(statemachine.TriggerCaptureTimeout),
				SourceEventID: envelope.EventID,
			})
			if err != nil {
				return err
			}
			if err := uc.OutboxRepo.Add(ctx, reversed, constant.TopicPaymentsReversed); err != nil {
				return err
			}
			uc.observeTerminal(p)
			return nil
		}

		if err := uc.applyTransition(ctx, p, statemachine.StatusFailed, statemachine.TriggerDeclined, envelope.EventID); err != nil {
			return err
		}
		uc.observeTerminal(p)
		return nil
	})
}
