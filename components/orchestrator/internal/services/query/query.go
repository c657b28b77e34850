// Package query implements the read side of the orchestrator.
package query

import (
	"context"

	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/payment"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/timeline"
)

// UseCase aggregates the repositories needed for orchestrator reads.
type UseCase struct {
	PaymentRepo  payment.Repository
	TimelineRepo timeline.Repository
}

// PaymentView is the GET /payments/{id} response shape: current state plus
// the timeline summary.
type PaymentView struct {
	Payment  *payment.Payment `json:"payment"`
	Timeline []TimelineStep   `json:"timeline"`
}

// TimelineStep is one summarized audit row.
type TimelineStep struct {
	FromState string `json:"from_state,omitempty"`
	ToState   string `json:"to_state"`
	Reason    string `json:"reason"`
	At        string `json:"at"`
}

// GetPayment returns the payment with its transition history.
func (uc *UseCase) GetPayment(ctx context.Context, paymentID string) (*PaymentView, error) {
	p, err := uc.PaymentRepo.Find(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	entries, err := uc.TimelineRepo.ListByPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	view := &PaymentView{Payment: p, Timeline: make([]TimelineStep, 0, len(entries))}
	for _, e := range entries {
		view.Timeline = append(view.Timeline, TimelineStep{
			FromState: e.FromState.String,
			ToState:   e.ToState,
			Reason:    e.Reason,
			At:        e.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return view, nil
}
