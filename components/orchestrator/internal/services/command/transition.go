package command

import (
	"context"

	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/payment"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/timeline"
	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/statemachine"
)

// applyTransition moves p to the target state with a compare-and-swap update
// and appends the timeline row inside the ambient transaction.
//
// A CAS miss is classified by re-reading the row: when the observed state is
// forward-reachable from the target the event already took effect and the
// caller gets an expected-duplicate; anything else is an invariant violation
// that must surface, never be dropped.
func (uc *UseCase) applyTransition(ctx context.Context, p *payment.Payment, to statemachine.Status, trigger statemachine.Trigger, eventID string) error {
	if !statemachine.Can(p.Status, to) {
		return uc.classifyStale(ctx, p.PaymentID, p.Status, to)
	}

	ok, err := uc.PaymentRepo.TransitionState(ctx, p.PaymentID, p.Status, p.StateVersion, to)
	if err != nil {
		return err
	}
	if !ok {
		return uc.classifyStale(ctx, p.PaymentID, p.Status, to)
	}

	from := p.Status
	p.Status = to
	p.StateVersion++

	return uc.TimelineRepo.Append(ctx, &timeline.Entry{
		PaymentID: p.PaymentID,
		FromState: nullString(string(from)),
		ToState:   string(to),
		Reason:    string(trigger),
		EventID:   nullString(eventID),
	})
}

func (uc *UseCase) classifyStale(ctx context.Context, paymentID string, observed, target statemachine.Status) error {
	current, err := uc.PaymentRepo.Find(ctx, paymentID)
	if err != nil {
		return err
	}

	if statemachine.ReachableForward(target, current.Status) {
		return apperr.Duplicate("STALE_TRANSITION",
			"payment %s already at or past %s (current %s)", paymentID, target, current.Status)
	}

	uc.Metrics.InvariantViolations.WithLabelValues("invalid_transition").Inc()
	uc.Logger.Errorw("invalid state transition",
		"payment_id", paymentID, "observed", observed, "current", current.Status, "target", target)
	return apperr.Invariant("INVALID_TRANSITION",
		"invalid transition for payment %s: %s -> %s (current %s)", paymentID, observed, target, current.Status)
}
