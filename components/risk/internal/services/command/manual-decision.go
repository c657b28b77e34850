package command

import (
	"context"

	"github.com/UmangBid/SagaPay/components/risk/internal/adapters/postgres/review"
	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/events"
	"github.com/UmangBid/SagaPay/pkg/statemachine"
)

// ManualDecisionInput is the validated payload of an operator decision.
type ManualDecisionInput struct {
	PaymentID     string `json:"-"`
	Approve       bool   `json:"-"`
	ReviewedBy    string `json:"reviewed_by" validate:"required,min=1"`
	CorrelationID string `json:"-"`
}

// ManualDecision finalizes a pending review and emits the outcome event.
//
// The orchestrator is consulted first: a decision only makes sense while the
// payment is actually parked in RISK_REVIEW. The review row's PENDING guard
// then makes the finalize itself single-shot, so two racing operators cannot
// both emit a decision.
func (uc *UseCase) ManualDecision(ctx context.Context, input ManualDecisionInput) (*review.Review, error) {
	rev, err := uc.ReviewRepo.FindByPayment(ctx, input.PaymentID)
	if err != nil {
		return nil, err
	}
	if rev.Status != review.StatusPending {
		return nil, apperr.Conflict("REVIEW_FINALIZED", "review for %s already %s", input.PaymentID, rev.Status)
	}

	status, err := uc.Orchestrator.PaymentStatus(ctx, input.PaymentID, input.CorrelationID)
	if err != nil {
		return nil, err
	}
	if status != string(statemachine.StatusRiskReview) {
		return nil, apperr.Conflict("PAYMENT_NOT_IN_REVIEW", "payment %s is %s, not RISK_REVIEW", input.PaymentID, status)
	}

	decision := constant.RiskDecisionDeny
	topic := constant.TopicRiskDenied
	finalStatus := review.StatusDenied
	if input.Approve {
		decision = constant.RiskDecisionApprove
		topic = constant.TopicRiskApproved
		finalStatus = review.StatusApproved
	}

	outcome, err := events.New(topic, input.PaymentID, input.CorrelationID, events.RiskResult{
		Decision:   decision,
		Reason:     "manual_review",
		CustomerID: rev.CustomerID,
		ReviewedBy: input.ReviewedBy,
	})
	if err != nil {
		return nil, err
	}

	err = uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		done, err := uc.ReviewRepo.Finalize(ctx, input.PaymentID, finalStatus, input.ReviewedBy, outcome.EventID)
		if err != nil {
			return err
		}
		if !done {
			return apperr.Conflict("REVIEW_FINALIZED", "review for %s already finalized", input.PaymentID)
		}
		return uc.OutboxRepo.Add(ctx, outcome, topic)
	})
	if err != nil {
		return nil, err
	}

	uc.Logger.Infow("review finalized",
		"payment_id", input.PaymentID, "decision", decision, "reviewed_by", input.ReviewedBy)

	return uc.ReviewRepo.FindByPayment(ctx, input.PaymentID)
}
