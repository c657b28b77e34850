package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/UmangBid/SagaPay/components/notification/internal/adapters/postgres/notification"
	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/events"
	"github.com/UmangBid/SagaPay/pkg/inbox"
	"github.com/UmangBid/SagaPay/pkg/mlog"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingLog struct {
	rows []notification.Notification
}

func (r *recordingLog) Append(_ context.Context, n *notification.Notification) error {
	r.rows = append(r.rows, *n)
	return nil
}

func (r *recordingLog) ListByPayment(_ context.Context, paymentID string) ([]notification.Notification, error) {
	var out []notification.Notification
	for _, n := range r.rows {
		if n.PaymentID == paymentID {
			out = append(out, n)
		}
	}
	return out, nil
}

func newUseCase(t *testing.T) (*UseCase, *recordingLog, *inbox.MockRepository) {
	ctrl := gomock.NewController(t)
	log := &recordingLog{}
	inboxRepo := inbox.NewMockRepository(ctrl)
	return &UseCase{
		NotificationRepo: log,
		InboxRepo:        inboxRepo,
		Tx:               passthroughTx{},
		Logger:           mlog.NewNop(),
		Metrics:          telemetry.NewMetrics("test"),
	}, log, inboxRepo
}

func TestHandleTerminalSettled(t *testing.T) {
	uc, log, inboxRepo := newUseCase(t)
	envelope, err := events.New(constant.TopicPaymentsSettled, "pay-1", "corr-1", events.Settled{
		TransactionID: "pay-1",
		AmountCents:   2500,
	})
	require.NoError(t, err)
	inboxRepo.EXPECT().Record(gomock.Any(), envelope.EventID, constant.ServiceNotification).Return(nil)

	require.NoError(t, uc.HandleTerminal(context.Background(), envelope))

	require.Len(t, log.rows, 1)
	assert.Equal(t, "SETTLED", log.rows[0].Kind)
	assert.Equal(t, "pay-1", log.rows[0].PaymentID)
	assert.Equal(t, envelope.EventID, log.rows[0].EventID)
	assert.Contains(t, log.rows[0].Message, "2500 cents")
}

func TestHandleTerminalFailed(t *testing.T) {
	uc, log, inboxRepo := newUseCase(t)
	envelope, err := events.New(constant.TopicPaymentsFailed, "pay-1", "corr-1", events.Failed{
		CustomerID:     "cust-1",
		Classification: constant.ClassificationDecline,
		AttemptNumber:  1,
		Reason:         "CARD_DECLINED",
	})
	require.NoError(t, err)
	inboxRepo.EXPECT().Record(gomock.Any(), envelope.EventID, constant.ServiceNotification).Return(nil)

	require.NoError(t, uc.HandleTerminal(context.Background(), envelope))

	require.Len(t, log.rows, 1)
	assert.Equal(t, "FAILED", log.rows[0].Kind)
	assert.Contains(t, log.rows[0].Message, constant.ClassificationDecline)
}

func TestHandleTerminalReversed(t *testing.T) {
	uc, log, inboxRepo := newUseCase(t)
	envelope, err := events.New(constant.TopicPaymentsReversed, "pay-1", "corr-1", events.Reversed{
		Reason:        "authorization failed downstream",
		SourceEventID: "evt-src",
	})
	require.NoError(t, err)
	inboxRepo.EXPECT().Record(gomock.Any(), envelope.EventID, constant.ServiceNotification).Return(nil)

	require.NoError(t, uc.HandleTerminal(context.Background(), envelope))

	require.Len(t, log.rows, 1)
	assert.Equal(t, "REVERSED", log.rows[0].Kind)
	assert.Contains(t, log.rows[0].Message, "authorization failed downstream")
}

func TestHandleTerminalRedeliveryWritesNothing(t *testing.T) {
	uc, log, inboxRepo := newUseCase(t)
	envelope, err := events.New(constant.TopicPaymentsSettled, "pay-1", "corr-1", events.Settled{
		TransactionID: "pay-1",
		AmountCents:   2500,
	})
	require.NoError(t, err)
	inboxRepo.EXPECT().Record(gomock.Any(), envelope.EventID, constant.ServiceNotification).
		Return(apperr.Duplicate("EVENT_ALREADY_CONSUMED", "seen"))

	err = uc.HandleTerminal(context.Background(), envelope)
	require.Error(t, err)
	assert.True(t, apperr.IsDuplicate(err))
	assert.Empty(t, log.rows)
}

func TestHandleTerminalRejectsUnknownType(t *testing.T) {
	uc, log, _ := newUseCase(t)
	envelope, err := events.New(constant.TopicPaymentsCaptured, "pay-1", "corr-1", events.Captured{})
	require.NoError(t, err)

	err = uc.HandleTerminal(context.Background(), envelope)
	require.Error(t, err)
	assert.Empty(t, log.rows)
}
