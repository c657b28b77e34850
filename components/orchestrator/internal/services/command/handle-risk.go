package command

import (
	"context"

	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/payment"
	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/events"
	"github.com/UmangBid/SagaPay/pkg/statemachine"
)

// loadPayment fetches the aggregate for an event, translating a missing row
// into a swallowed skip: the inbox row is kept so the event never reprocesses.
func (uc *UseCase) loadPayment(ctx context.Context, envelope events.Envelope) (*payment.Payment, error) {
	p, err := uc.PaymentRepo.Find(ctx, envelope.AggregateID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			uc.Logger.Warnw("event for unknown payment skipped",
				"event_id", envelope.EventID, "payment_id", envelope.AggregateID, "type", envelope.Type)
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// HandleRiskApproved moves the payment to APPROVED and requests provider
// authorization. Covers both the automatic risk outcome and the operator
// approval of a parked review.
func (uc *UseCase) HandleRiskApproved(ctx context.Context, envelope events.Envelope) error {
	return uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.InboxRepo.Record(ctx, envelope.EventID, constant.ServiceOrchestrator); err != nil {
			return err
		}
		p, err := uc.loadPayment(ctx, envelope)
		if err != nil || p == nil {
			return err
		}

		trigger := statemachine.TriggerRiskApproved
		if p.Status == statemachine.StatusRiskReview {
			trigger = statemachine.TriggerOperatorApproved
		}
		if err := uc.applyTransition(ctx, p, statemachine.StatusApproved, trigger, envelope.EventID); err != nil {
			return err
		}

		next, err := events.New(constant.TopicProviderAuthorizeRequest, p.PaymentID, envelope.CorrelationID, events.AuthorizeRequested{
			CustomerID:  p.CustomerID,
			AmountCents: p.AmountCents,
			Currency:    p.Currency,
		})
		if err != nil {
			return err
		}
		return uc.OutboxRepo.Add(ctx, next, constant.TopicProviderAuthorizeRequest)
	})
}

// HandleRiskDenied handles both DENY and REVIEW outcomes. REVIEW parks the
// payment in RISK_REVIEW with no onward event; DENY is terminal FAILED.
func (uc *UseCase) HandleRiskDenied(ctx context.Context, envelope events.Envelope) error {
	var result events.RiskResult
	if err := envelope.DecodePayload(&result); err != nil {
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

		if result.Decision == constant.RiskDecisionReview {
			return uc.applyTransition(ctx, p, statemachine.StatusRiskReview, statemachine.TriggerRiskReview, envelope.EventID)
		}

		trigger := statemachine.TriggerRiskDenied
		if p.Status == statemachine.StatusRiskReview {
			trigger = statemachine.TriggerOperatorDenied
		}
		if err := uc.applyTransition(ctx, p, statemachine.StatusFailed, trigger, envelope.EventID); err != nil {
			return err
		}

		// The terminal event feeds the notification log; the orchestrator's
		// own payments.failed consumer sees the echo as a stale duplicate.
		failed, err := events.New(constant.TopicPaymentsFailed, p.PaymentID, envelope.CorrelationID, events.Failed{
			CustomerID:     p.CustomerID,
			Classification: constant.ClassificationRiskDenied,
			Reason:         result.Reason,
		})
		if err != nil {
			return err
		}
		if err := uc.OutboxRepo.Add(ctx, failed, constant.TopicPaymentsFailed); err != nil {
			return err
		}

		uc.observeTerminal(p)
		return nil
	})
}
