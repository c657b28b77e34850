package command

import (
	"context"
	"time"

	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/payment"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/events"
	"github.com/UmangBid/SagaPay/pkg/statemachine"
)

// HandleSettled closes the saga once the ledger acknowledged posting.
func (uc *UseCase) HandleSettled(ctx context.Context, envelope events.Envelope) error {
	return uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.InboxRepo.Record(ctx, envelope.EventID, constant.ServiceOrchestrator); err != nil {
			return err
		}
		p, err := uc.loadPayment(ctx, envelope)
		if err != nil || p == nil {
			return err
		}

		if err := uc.applyTransition(ctx, p, statemachine.StatusSettled, statemachine.TriggerSettled, envelope.EventID); err != nil {
			return err
		}

		uc.observeTerminal(p)
		return nil
	})
}

// observeTerminal records terminal counters and end-to-end latency.
func (uc *UseCase) observeTerminal(p *payment.Payment) {
	if !statemachine.IsTerminal(p.Status) {
		return
	}
	if p.Status == statemachine.StatusSettled {
		uc.Metrics.PaymentSuccessTotal.Inc()
	} else {
		uc.Metrics.PaymentFailureTotal.Inc()
	}
	if !p.CreatedAt.IsZero() {
		uc.Metrics.PaymentE2ESeconds.WithLabelValues(string(p.Status)).Observe(time.Since(p.CreatedAt).Seconds())
	}
}
