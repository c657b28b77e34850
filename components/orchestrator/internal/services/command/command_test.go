package command

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/attempt"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/payment"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/timeline"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/redis"
	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/events"
	"github.com/UmangBid/SagaPay/pkg/inbox"
	"github.com/UmangBid/SagaPay/pkg/mlog"
	"github.com/UmangBid/SagaPay/pkg/outbox"
	"github.com/UmangBid/SagaPay/pkg/statemachine"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingAttempts struct {
	rows []attempt.Attempt
}

func (r *recordingAttempts) Append(_ context.Context, a *attempt.Attempt) error {
	r.rows = append(r.rows, *a)
	return nil
}

type mapCache struct {
	refs map[string]redis.PaymentRef
}

func newMapCache() *mapCache { return &mapCache{refs: map[string]redis.PaymentRef{}} }

func (c *mapCache) key(customerID, idempotencyKey string) string {
	return fmt.Sprintf("%s/%s", customerID, idempotencyKey)
}

func (c *mapCache) Get(_ context.Context, customerID, idempotencyKey string) (*redis.PaymentRef, error) {
	if ref, ok := c.refs[c.key(customerID, idempotencyKey)]; ok {
		return &ref, nil
	}
	return nil, nil
}

func (c *mapCache) Set(_ context.Context, customerID, idempotencyKey string, ref redis.PaymentRef) error {
	c.refs[c.key(customerID, idempotencyKey)] = ref
	return nil
}

type fixture struct {
	uc       *UseCase
	payments *payment.MockRepository
	timeline *timeline.MockRepository
	attempts *recordingAttempts
	outbox   *outbox.MockRepository
	inbox    *inbox.MockRepository
	cache    *mapCache
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		payments: payment.NewMockRepository(ctrl),
		timeline: timeline.NewMockRepository(ctrl),
		attempts: &recordingAttempts{},
		outbox:   outbox.NewMockRepository(ctrl),
		inbox:    inbox.NewMockRepository(ctrl),
		cache:    newMapCache(),
	}
	f.uc = &UseCase{
		PaymentRepo:  f.payments,
		TimelineRepo: f.timeline,
		AttemptRepo:  f.attempts,
		OutboxRepo:   f.outbox,
		InboxRepo:    f.inbox,
		CacheRepo:    f.cache,
		Tx:           passthroughTx{},
		Logger:       mlog.NewNop(),
		Metrics:      telemetry.NewMetrics("test"),
	}
	return f
}

func (f *fixture) expectInbox(eventID string) {
	f.inbox.EXPECT().Record(gomock.Any(), eventID, constant.ServiceOrchestrator).Return(nil)
}

func testPayment(status statemachine.Status, version int64) *payment.Payment {
	return &payment.Payment{
		PaymentID:      "pay-1",
		CustomerID:     "cust-1",
		AmountCents:    2500,
		Currency:       "USD",
		Status:         status,
		StateVersion:   version,
		IdempotencyKey: "key-12345",
	}
}

func envelopeFor(t *testing.T, topic string, payload any) events.Envelope {
	t.Helper()
	envelope, err := events.New(topic, "pay-1", "corr-1", payload)
	require.NoError(t, err)
	return envelope
}

func TestCreatePaymentStagesRequestedEvent(t *testing.T) {
	f := newFixture(t)

	f.payments.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *payment.Payment) error {
			p.PaymentID = "pay-1"
			p.Status = statemachine.StatusCreated
			return nil
		})
	f.timeline.EXPECT().Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e *timeline.Entry) error {
			assert.Equal(t, string(statemachine.StatusCreated), e.ToState)
			return nil
		})
	f.outbox.EXPECT().Add(gomock.Any(), gomock.Any(), constant.TopicPaymentsRequested).
		DoAndReturn(func(_ context.Context, envelope events.Envelope, _ string) error {
			assert.Equal(t, "pay-1", envelope.AggregateID)
			var payload events.PaymentRequested
			require.NoError(t, envelope.DecodePayload(&payload))
			assert.Equal(t, int64(2500), payload.AmountCents)
			return nil
		})

	p, err := f.uc.CreatePayment(context.Background(), CreatePaymentInput{
		CustomerID:     "cust-1",
		AmountCents:    2500,
		Currency:       "usd",
		IdempotencyKey: "key-12345",
		CorrelationID:  "corr-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay-1", p.PaymentID)
	assert.Equal(t, "USD", p.Currency, "currency is normalized to upper case")

	cached, _ := f.cache.Get(context.Background(), "cust-1", "key-12345")
	require.NotNil(t, cached, "successful create primes the cache")
	assert.Equal(t, "pay-1", cached.PaymentID)
}

func TestCreatePaymentDuplicateKeyReturnsExisting(t *testing.T) {
	f := newFixture(t)
	existing := testPayment(statemachine.StatusApproved, 2)

	f.payments.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(apperr.Duplicate("IDEMPOTENCY_KEY_EXISTS", "key exists"))
	f.payments.EXPECT().FindByIdempotencyKey(gomock.Any(), "cust-1", "key-12345").
		Return(existing, nil)

	p, err := f.uc.CreatePayment(context.Background(), CreatePaymentInput{
		CustomerID:     "cust-1",
		AmountCents:    2500,
		Currency:       "USD",
		IdempotencyKey: "key-12345",
	})
	require.NoError(t, err)
	assert.Equal(t, existing.PaymentID, p.PaymentID)
	assert.Equal(t, statemachine.StatusApproved, p.Status, "the original payment comes back untouched")
}

func TestCreatePaymentCacheFastPath(t *testing.T) {
	f := newFixture(t)
	existing := testPayment(statemachine.StatusCaptured, 4)

	require.NoError(t, f.cache.Set(context.Background(), "cust-1", "key-12345", redis.PaymentRef{
		PaymentID: "pay-1", Status: string(existing.Status),
	}))
	f.payments.EXPECT().Find(gomock.Any(), "pay-1").Return(existing, nil)

	p, err := f.uc.CreatePayment(context.Background(), CreatePaymentInput{
		CustomerID:     "cust-1",
		AmountCents:    2500,
		Currency:       "USD",
		IdempotencyKey: "key-12345",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay-1", p.PaymentID)
}

func TestHandleRiskApprovedRequestsAuthorization(t *testing.T) {
	f := newFixture(t)
	envelope := envelopeFor(t, constant.TopicRiskApproved, events.RiskResult{Decision: constant.RiskDecisionApprove})

	f.expectInbox(envelope.EventID)
	f.payments.EXPECT().Find(gomock.Any(), "pay-1").Return(testPayment(statemachine.StatusCreated, 0), nil)
	f.payments.EXPECT().TransitionState(gomock.Any(), "pay-1",
		statemachine.StatusCreated, int64(0), statemachine.StatusApproved).Return(true, nil)
	f.timeline.EXPECT().Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e *timeline.Entry) error {
			assert.Equal(t, string(statemachine.TriggerRiskApproved), e.Reason)
			return nil
		})
	f.outbox.EXPECT().Add(gomock.Any(), gomock.Any(), constant.TopicProviderAuthorizeRequest).Return(nil)

	require.NoError(t, f.uc.HandleRiskApproved(context.Background(), envelope))
}

func TestHandleRiskDeniedReviewParksPayment(t *testing.T) {
	f := newFixture(t)
	envelope := envelopeFor(t, constant.TopicRiskDenied, events.RiskResult{Decision: constant.RiskDecisionReview})

	f.expectInbox(envelope.EventID)
	f.payments.EXPECT().Find(gomock.Any(), "pay-1").Return(testPayment(statemachine.StatusCreated, 0), nil)
	f.payments.EXPECT().TransitionState(gomock.Any(), "pay-1",
		statemachine.StatusCreated, int64(0), statemachine.StatusRiskReview).Return(true, nil)
	f.timeline.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	// No onward event: the payment waits for an operator.

	require.NoError(t, f.uc.HandleRiskDenied(context.Background(), envelope))
}

func TestHandleRiskDeniedDenyFailsPayment(t *testing.T) {
	f := newFixture(t)
	envelope := envelopeFor(t, constant.TopicRiskDenied, events.RiskResult{
		Decision: constant.RiskDecisionDeny,
		Reason:   "repeated_failures",
	})

	f.expectInbox(envelope.EventID)
	f.payments.EXPECT().Find(gomock.Any(), "pay-1").Return(testPayment(statemachine.StatusCreated, 0), nil)
	f.payments.EXPECT().TransitionState(gomock.Any(), "pay-1",
		statemachine.StatusCreated, int64(0), statemachine.StatusFailed).Return(true, nil)
	f.timeline.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	// The denial is terminal, so it must announce payments.failed for the
	// notification log.
	f.outbox.EXPECT().Add(gomock.Any(), gomock.Any(), constant.TopicPaymentsFailed).
		DoAndReturn(func(_ context.Context, e events.Envelope, _ string) error {
			var failed events.Failed
			require.NoError(t, e.DecodePayload(&failed))
			assert.Equal(t, constant.ClassificationRiskDenied, failed.Classification)
			assert.Equal(t, "cust-1", failed.CustomerID)
			assert.Equal(t, "repeated_failures", failed.Reason)
			return nil
		})

	require.NoError(t, f.uc.HandleRiskDenied(context.Background(), envelope))
}

func TestOperatorDenyEmitsTerminalFailure(t *testing.T) {
	f := newFixture(t)
	envelope := envelopeFor(t, constant.TopicRiskDenied, events.RiskResult{
		Decision:   constant.RiskDecisionDeny,
		Reason:     "manual_review",
		ReviewedBy: "ops@sagapay",
	})

	f.expectInbox(envelope.EventID)
	f.payments.EXPECT().Find(gomock.Any(), "pay-1").Return(testPayment(statemachine.StatusRiskReview, 1), nil)
	f.payments.EXPECT().TransitionState(gomock.Any(), "pay-1",
		statemachine.StatusRiskReview, int64(1), statemachine.StatusFailed).Return(true, nil)
	f.timeline.EXPECT().Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e *timeline.Entry) error {
			assert.Equal(t, string(statemachine.TriggerOperatorDenied), e.Reason)
			return nil
		})
	f.outbox.EXPECT().Add(gomock.Any(), gomock.Any(), constant.TopicPaymentsFailed).Return(nil)

	require.NoError(t, f.uc.HandleRiskDenied(context.Background(), envelope))
}

func TestHandleAuthorizedAutoCaptures(t *testing.T) {
	f := newFixture(t)
	envelope := envelopeFor(t, constant.TopicPaymentsAuthorized, events.Authorized{AttemptNumber: 2, LatencyMS: 120})

	f.expectInbox(envelope.EventID)
	f.payments.EXPECT().Find(gomock.Any(), "pay-1").Return(testPayment(statemachine.StatusApproved, 1), nil)
	gomock.InOrder(
		f.payments.EXPECT().TransitionState(gomock.Any(), "pay-1",
			statemachine.StatusApproved, int64(1), statemachine.StatusAuthorized).Return(true, nil),
		f.payments.EXPECT().TransitionState(gomock.Any(), "pay-1",
			statemachine.StatusAuthorized, int64(2), statemachine.StatusCaptured).Return(true, nil),
	)
	f.timeline.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	f.outbox.EXPECT().Add(gomock.Any(), gomock.Any(), constant.TopicPaymentsCaptured).Return(nil)

	require.NoError(t, f.uc.HandleAuthorized(context.Background(), envelope))

	require.Len(t, f.attempts.rows, 1)
	assert.Equal(t, 2, f.attempts.rows[0].AttemptNumber)
	assert.Equal(t, "AUTHORIZED", f.attempts.rows[0].Result)
}

func TestHandleFailedAfterAuthorizationReverses(t *testing.T) {
	f := newFixture(t)
	envelope := envelopeFor(t, constant.TopicPaymentsFailed, events.Failed{
		Classification: constant.ClassificationRetryExhausted,
		AttemptNumber:  3,
	})

	f.expectInbox(envelope.EventID)
	f.payments.EXPECT().Find(gomock.Any(), "pay-1").Return(testPayment(statemachine.StatusAuthorized, 3), nil)
	f.payments.EXPECT().TransitionState(gomock.Any(), "pay-1",
		statemachine.StatusAuthorized, int64(3), statemachine.StatusReversed).Return(true, nil)
	f.timeline.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	f.outbox.EXPECT().Add(gomock.Any(), gomock.Any(), constant.TopicPaymentsReversed).
		DoAndReturn(func(_ context.Context, e events.Envelope, _ string) error {
			var reversed events.Reversed
			require.NoError(t, e.DecodePayload(&reversed))
			assert.Equal(t, envelope.EventID, reversed.SourceEventID)
			return nil
		})

	require.NoError(t, f.uc.HandleFailed(context.Background(), envelope))
}

func TestHandleFailedDeclineFailsPayment(t *testing.T) {
	f := newFixture(t)
	envelope := envelopeFor(t, constant.TopicPaymentsFailed, events.Failed{
		Classification: constant.ClassificationDecline,
		AttemptNumber:  1,
	})

	f.expectInbox(envelope.EventID)
	f.payments.EXPECT().Find(gomock.Any(), "pay-1").Return(testPayment(statemachine.StatusApproved, 1), nil)
	f.payments.EXPECT().TransitionState(gomock.Any(), "pay-1",
		statemachine.StatusApproved, int64(1), statemachine.StatusFailed).Return(true, nil)
	f.timeline.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, f.uc.HandleFailed(context.Background(), envelope))
	require.Len(t, f.attempts.rows, 1)
	assert.Equal(t, "FAILED", f.attempts.rows[0].Result)
}

func TestHandleFailedEchoOfDenialIsDuplicate(t *testing.T) {
	f := newFixture(t)
	envelope := envelopeFor(t, constant.TopicPaymentsFailed, events.Failed{
		CustomerID:     "cust-1",
		Classification: constant.ClassificationRiskDenied,
		Reason:         "repeated_failures",
	})

	// The orchestrator consumes its own denial announcement; the payment is
	// already FAILED, so the event is swallowed as stale.
	f.expectInbox(envelope.EventID)
	f.payments.EXPECT().Find(gomock.Any(), "pay-1").
		Return(testPayment(statemachine.StatusFailed, 1), nil).Times(2)

	err := f.uc.HandleFailed(context.Background(), envelope)
	require.Error(t, err)
	assert.True(t, apperr.IsDuplicate(err))
}

func TestHandleSettledClosesSaga(t *testing.T) {
	f := newFixture(t)
	envelope := envelopeFor(t, constant.TopicPaymentsSettled, events.Settled{TransactionID: "pay-1", AmountCents: 2500})

	f.expectInbox(envelope.EventID)
	f.payments.EXPECT().Find(gomock.Any(), "pay-1").Return(testPayment(statemachine.StatusCaptured, 4), nil)
	f.payments.EXPECT().TransitionState(gomock.Any(), "pay-1",
		statemachine.StatusCaptured, int64(4), statemachine.StatusSettled).Return(true, nil)
	f.timeline.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, f.uc.HandleSettled(context.Background(), envelope))
}

func TestStaleDeliveryIsClassifiedDuplicate(t *testing.T) {
	f := newFixture(t)
	envelope := envelopeFor(t, constant.TopicRiskApproved, events.RiskResult{Decision: constant.RiskDecisionApprove})

	// The payment already moved past APPROVED; the redelivered approval must
	// be swallowed, not applied.
	f.expectInbox(envelope.EventID)
	f.payments.EXPECT().Find(gomock.Any(), "pay-1").
		Return(testPayment(statemachine.StatusCaptured, 4), nil).Times(2)

	err := f.uc.HandleRiskApproved(context.Background(), envelope)
	require.Error(t, err)
	assert.True(t, apperr.IsDuplicate(err))
}

func TestImpossibleTransitionSurfacesInvariant(t *testing.T) {
	f := newFixture(t)
	envelope := envelopeFor(t, constant.TopicPaymentsSettled, events.Settled{TransactionID: "pay-1"})

	// Settling a FAILED payment can never be a harmless duplicate.
	f.expectInbox(envelope.EventID)
	f.payments.EXPECT().Find(gomock.Any(), "pay-1").
		Return(testPayment(statemachine.StatusFailed, 2), nil).Times(2)

	err := f.uc.HandleSettled(context.Background(), envelope)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvariantViolation, apperr.KindOf(err))
}

func TestInboxDuplicateShortCircuits(t *testing.T) {
	f := newFixture(t)
	envelope := envelopeFor(t, constant.TopicRiskApproved, events.RiskResult{Decision: constant.RiskDecisionApprove})

	f.inbox.EXPECT().Record(gomock.Any(), envelope.EventID, constant.ServiceOrchestrator).
		Return(apperr.Duplicate("EVENT_ALREADY_CONSUMED", "seen"))

	err := f.uc.HandleRiskApproved(context.Background(), envelope)
	require.Error(t, err)
	assert.True(t, apperr.IsDuplicate(err), "the payment row is never touched")
}

func TestEventForUnknownPaymentIsSkipped(t *testing.T) {
	f := newFixture(t)
	envelope := envelopeFor(t, constant.TopicRiskApproved, events.RiskResult{Decision: constant.RiskDecisionApprove})

	f.expectInbox(envelope.EventID)
	f.payments.EXPECT().Find(gomock.Any(), "pay-1").
		Return(nil, apperr.NotFound("PAYMENT_NOT_FOUND", "missing"))

	// The inbox row commits so the unknown event never reprocesses.
	require.NoError(t, f.uc.HandleRiskApproved(context.Background(), envelope))
}
