package command

import (
	"context"
	"database/sql"
	"time"

	"github.com/UmangBid/SagaPay/components/provider/internal/adapters/gateway"
	"github.com/UmangBid/SagaPay/components/provider/internal/adapters/postgres/attempt"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/events"
)

// HandleAuthorizeRequested drives one authorization to a single outcome
// event. The inbox guard sits on the outermost attempt, so a redelivery never
// restarts a retry loop that already ran.
//
// Outcome mapping:
//   - SUCCESS → payments.authorized
//   - DECLINE → payments.failed{DECLINE}, no retry
//   - TIMEOUT → retried on the schedule; exhaustion emits exactly one
//     payments.failed{RETRY_EXHAUSTED} plus one dead-letter carrying the
//     original envelope for replay
//   - malformed payload → payments.failed{NON_RETRYABLE} plus dead-letter
func (uc *UseCase) HandleAuthorizeRequested(ctx context.Context, envelope events.Envelope) error {
	if err := uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return uc.InboxRepo.Record(ctx, envelope.EventID, constant.ServiceProvider)
	}); err != nil {
		return err
	}

	var req events.AuthorizeRequested
	if err := envelope.DecodePayload(&req); err != nil {
		return uc.rejectMalformed(ctx, envelope, "payload does not decode")
	}
	if reason, ok := validateRequest(req); !ok {
		return uc.rejectMalformed(ctx, envelope, reason)
	}

	call := gateway.AuthorizeRequest{
		PaymentID:   envelope.AggregateID,
		CustomerID:  req.CustomerID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
	}

	for attemptNumber := 1; ; attemptNumber++ {
		res, err := uc.Gateway.Authorize(ctx, call)
		if err != nil {
			return err
		}
		uc.recordAttempt(ctx, envelope.AggregateID, attemptNumber, res)

		switch res.Outcome {
		case gateway.OutcomeSuccess:
			return uc.emitAuthorized(ctx, envelope, attemptNumber, res.LatencyMS)

		case gateway.OutcomeDecline:
			return uc.emitFailed(ctx, envelope, req.CustomerID, events.Failed{
				CustomerID:     req.CustomerID,
				Classification: constant.ClassificationDecline,
				AttemptNumber:  attemptNumber,
				Reason:         res.ErrorCode,
			}, false)

		case gateway.OutcomeTimeout:
			uc.Metrics.RetriesTotal.WithLabelValues("processor").Inc()
			if attemptNumber >= uc.maxAttempts() {
				return uc.emitFailed(ctx, envelope, req.CustomerID, events.Failed{
					CustomerID:     req.CustomerID,
					Classification: constant.ClassificationRetryExhausted,
					AttemptNumber:  attemptNumber,
					Reason:         res.ErrorCode,
				}, true)
			}
			if err := sleepCtx(ctx, uc.retryWait(attemptNumber+1)); err != nil {
				return err
			}

		default:
			return uc.rejectMalformed(ctx, envelope, "unknown processor outcome "+res.Outcome)
		}
	}
}

func validateRequest(req events.AuthorizeRequested) (string, bool) {
	switch {
	case req.CustomerID == "":
		return "missing customer_id", false
	case req.AmountCents < 0:
		return "negative amount_cents", false
	case len(req.Currency) != 3:
		return "currency is not three letters", false
	}
	return "", true
}

// recordAttempt writes the audit row outside the outcome transaction so a
// crash mid-loop still leaves the calls it made on record.
func (uc *UseCase) recordAttempt(ctx context.Context, paymentID string, attemptNumber int, res gateway.Result) {
	errorCode := sql.NullString{}
	if res.ErrorCode != "" {
		errorCode = sql.NullString{String: res.ErrorCode, Valid: true}
	}
	if err := uc.AttemptRepo.Append(ctx, &attempt.Attempt{
		PaymentID:     paymentID,
		AttemptNumber: attemptNumber,
		Outcome:       res.Outcome,
		ErrorCode:     errorCode,
		LatencyMS:     res.LatencyMS,
	}); err != nil {
		uc.Logger.Warnw("attempt row write failed",
			"payment_id", paymentID, "attempt", attemptNumber, "error", err)
	}
}

func (uc *UseCase) emitAuthorized(ctx context.Context, envelope events.Envelope, attemptNumber int, latencyMS int64) error {
	authorized, err := events.New(constant.TopicPaymentsAuthorized, envelope.AggregateID, envelope.CorrelationID, events.Authorized{
		AttemptNumber: attemptNumber,
		LatencyMS:     latencyMS,
	})
	if err != nil {
		return err
	}
	return uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return uc.OutboxRepo.Add(ctx, authorized, constant.TopicPaymentsAuthorized)
	})
}

// emitFailed stages the failure event and, when the failure is worth
// replaying, the dead-letter alongside it in the same transaction.
func (uc *UseCase) emitFailed(ctx context.Context, envelope events.Envelope, customerID string, failed events.Failed, deadLetter bool) error {
	failedEvent, err := events.New(constant.TopicPaymentsFailed, envelope.AggregateID, envelope.CorrelationID, failed)
	if err != nil {
		return err
	}

	var dlq events.Envelope
	if deadLetter {
		dlq, err = uc.deadLetter(envelope, failed.Reason, "TIMEOUT", true)
		if err != nil {
			return err
		}
	}

	err = uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.OutboxRepo.Add(ctx, failedEvent, constant.TopicPaymentsFailed); err != nil {
			return err
		}
		if deadLetter {
			return uc.OutboxRepo.Add(ctx, dlq, constant.DLQTopic(constant.TopicProviderAuthorizeRequest))
		}
		return nil
	})
	if err != nil {
		return err
	}

	uc.Logger.Infow("authorization failed",
		"payment_id", envelope.AggregateID, "customer_id", customerID,
		"classification", failed.Classification, "attempts", failed.AttemptNumber)
	return nil
}

// rejectMalformed answers a request the processor must never see: the saga
// gets its failure event and the original lands on the DLQ for inspection.
func (uc *UseCase) rejectMalformed(ctx context.Context, envelope events.Envelope, reason string) error {
	failedEvent, err := events.New(constant.TopicPaymentsFailed, envelope.AggregateID, envelope.CorrelationID, events.Failed{
		Classification: constant.ClassificationNonRetryable,
		AttemptNumber:  0,
		Reason:         reason,
	})
	if err != nil {
		return err
	}
	dlq, err := uc.deadLetter(envelope, reason, "VALIDATION", false)
	if err != nil {
		return err
	}

	err = uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.OutboxRepo.Add(ctx, failedEvent, constant.TopicPaymentsFailed); err != nil {
			return err
		}
		return uc.OutboxRepo.Add(ctx, dlq, constant.DLQTopic(constant.TopicProviderAuthorizeRequest))
	})
	if err != nil {
		return err
	}

	uc.Logger.Warnw("malformed authorization request dead-lettered",
		"event_id", envelope.EventID, "payment_id", envelope.AggregateID, "reason", reason)
	return nil
}

func (uc *UseCase) deadLetter(envelope events.Envelope, reason, errorType string, retryable bool) (events.Envelope, error) {
	topic := constant.DLQTopic(constant.TopicProviderAuthorizeRequest)
	uc.Metrics.DLQPublishedTotal.WithLabelValues(topic, errorType).Inc()
	return events.New(topic, envelope.AggregateID, envelope.CorrelationID, events.DeadLetter{
		Reason:      reason,
		ErrorType:   errorType,
		Retryable:   retryable,
		Source:      constant.ServiceProvider,
		ReplayTopic: constant.TopicProviderAuthorizeRequest,
		FailedEvent: envelope,
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
