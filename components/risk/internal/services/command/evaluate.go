package command

import (
	"context"
	"time"

	"github.com/UmangBid/SagaPay/components/risk/internal/adapters/postgres/review"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/events"
)

// verdict is the outcome of the automated rule chain.
type verdict struct {
	decision string
	reason   string
}

// evaluate runs the rule chain in fixed order: hard denials first, then the
// review triggers, then approval. Exactly one rule wins.
func (uc *UseCase) evaluate(ctx context.Context, customerID string, amountCents int64) (verdict, error) {
	minuteCount, err := uc.CounterRepo.IncrementWindow(ctx, customerID, time.Minute)
	if err != nil {
		return verdict{}, err
	}
	hourCount, err := uc.CounterRepo.IncrementWindow(ctx, customerID, time.Hour)
	if err != nil {
		return verdict{}, err
	}
	failures, err := uc.CounterRepo.FailureCount(ctx, customerID)
	if err != nil {
		return verdict{}, err
	}

	switch {
	case hourCount > uc.Rules.DenyFrequencyPerHour:
		return verdict{constant.RiskDecisionDeny, "extreme_frequency"}, nil
	case failures >= uc.Rules.FailedAttemptsThreshold:
		return verdict{constant.RiskDecisionDeny, "repeated_failures"}, nil
	case amountCents >= uc.Rules.ReviewAmountCents:
		return verdict{constant.RiskDecisionReview, "high_amount"}, nil
	case minuteCount > uc.Rules.VelocityPerMinute || hourCount > uc.Rules.VelocityPerHour:
		return verdict{constant.RiskDecisionReview, "velocity_exceeded"}, nil
	default:
		return verdict{constant.RiskDecisionApprove, "rules_passed"}, nil
	}
}

// HandlePaymentRequested evaluates a new payment and emits exactly one
// decision event. A REVIEW verdict also inserts the pending review row in the
// same transaction as the outbox write, so the queue entry and the event that
// parks the payment commit or roll back together.
func (uc *UseCase) HandlePaymentRequested(ctx context.Context, envelope events.Envelope) error {
	var requested events.PaymentRequested
	if err := envelope.DecodePayload(&requested); err != nil {
		return err
	}

	// Counters move before the transaction: they are approximate by design
	// and must not be rolled back with it.
	v, err := uc.evaluate(ctx, requested.CustomerID, requested.AmountCents)
	if err != nil {
		return err
	}

	topic := constant.TopicRiskApproved
	if v.decision != constant.RiskDecisionApprove {
		topic = constant.TopicRiskDenied
	}

	decision, err := events.New(topic, envelope.AggregateID, envelope.CorrelationID, events.RiskResult{
		Decision:   v.decision,
		Reason:     v.reason,
		CustomerID: requested.CustomerID,
	})
	if err != nil {
		return err
	}

	err = uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.InboxRepo.Record(ctx, envelope.EventID, constant.ServiceRisk); err != nil {
			return err
		}

		if v.decision == constant.RiskDecisionReview {
			if err := uc.ReviewRepo.Create(ctx, &review.Review{
				PaymentID:   envelope.AggregateID,
				CustomerID:  requested.CustomerID,
				AmountCents: requested.AmountCents,
				Reason:      v.reason,
			}); err != nil {
				return err
			}
		}

		return uc.OutboxRepo.Add(ctx, decision, topic)
	})
	if err != nil {
		return err
	}

	uc.Logger.Infow("payment evaluated",
		"payment_id", envelope.AggregateID, "decision", v.decision, "reason", v.reason)
	return nil
}
