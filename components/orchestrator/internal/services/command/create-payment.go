package command

import (
	"context"
	"database/sql"
	"strings"

	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/payment"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/timeline"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/redis"
	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/events"
	"github.com/UmangBid/SagaPay/pkg/statemachine"
)

// CreatePaymentInput is the validated payload of POST /payments.
type CreatePaymentInput struct {
	CustomerID     string `json:"customer_id" validate:"required,min=1"`
	AmountCents    int64  `json:"amount_cents" validate:"gte=0"`
	Currency       string `json:"currency" validate:"required,len=3,alpha"`
	IdempotencyKey string `json:"idempotency_key" validate:"required,min=5"`
	CorrelationID  string `json:"-"`
}

// CreatePayment creates the payment row exactly once per
// (customer_id, idempotency_key) and stages payments.requested.
//
// Fast path: a cache hit returns the prior result without touching the
// database. Slow path: insert under the unique constraint; a violation means
// a racing or repeated request won, so the existing row is read back and
// returned unchanged.
func (uc *UseCase) CreatePayment(ctx context.Context, input CreatePaymentInput) (*payment.Payment, error) {
	if ref, _ := uc.CacheRepo.Get(ctx, input.CustomerID, input.IdempotencyKey); ref != nil {
		uc.Metrics.DuplicateEventsTotal.WithLabelValues("payments.create").Inc()
		return uc.PaymentRepo.Find(ctx, ref.PaymentID)
	}

	p := &payment.Payment{
		CustomerID:     input.CustomerID,
		AmountCents:    input.AmountCents,
		Currency:       strings.ToUpper(input.Currency),
		IdempotencyKey: input.IdempotencyKey,
		CorrelationID:  input.CorrelationID,
	}

	err := uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.PaymentRepo.Create(ctx, p); err != nil {
			return err
		}

		if err := uc.TimelineRepo.Append(ctx, &timeline.Entry{
			PaymentID: p.PaymentID,
			ToState:   string(statemachine.StatusCreated),
			Reason:    "payment_created",
		}); err != nil {
			return err
		}

		envelope, err := events.New(constant.TopicPaymentsRequested, p.PaymentID, p.CorrelationID, events.PaymentRequested{
			CustomerID:  p.CustomerID,
			AmountCents: p.AmountCents,
			Currency:    p.Currency,
		})
		if err != nil {
			return err
		}
		return uc.OutboxRepo.Add(ctx, envelope, constant.TopicPaymentsRequested)
	})
	if err != nil {
		if apperr.IsDuplicate(err) {
			existing, findErr := uc.PaymentRepo.FindByIdempotencyKey(ctx, input.CustomerID, input.IdempotencyKey)
			if findErr != nil {
				return nil, findErr
			}
			uc.cacheRef(ctx, existing)
			return existing, nil
		}
		return nil, err
	}

	uc.Metrics.PaymentRequestsTotal.Inc()
	uc.cacheRef(ctx, p)
	return p, nil
}

func (uc *UseCase) cacheRef(ctx context.Context, p *payment.Payment) {
	if p == nil {
		return
	}
	if err := uc.CacheRepo.Set(ctx, p.CustomerID, p.IdempotencyKey, redis.PaymentRef{
		PaymentID: p.PaymentID,
		Status:    string(p.Status),
	}); err != nil {
		uc.Logger.Warnw("idempotency cache write failed", "payment_id", p.PaymentID, "error", err)
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
