package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/events"
)

func TestAddStagesPendingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db, time.Minute)
	envelope, err := events.New("payments.requested", "pay-1", "corr-1", events.PaymentRequested{CustomerID: "cust-1"})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(envelope.EventID, "pay-1", "payments.requested", sqlmock.AnyArg(), StatusPending, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Add(context.Background(), envelope, "payments.requested"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimBatchStampsProcessing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db, time.Minute)

	rows := sqlmock.NewRows([]string{
		"event_id", "aggregate_id", "topic", "payload", "status",
		"claim_token", "claimed_at", "created_at", "attempts",
	}).AddRow("evt-1", "pay-1", "payments.requested", []byte(`{"event_id":"evt-1"}`),
		StatusProcessing, "claim-1", time.Now(), time.Now(), 1)

	mock.ExpectQuery("UPDATE outbox_events SET").
		WithArgs(sqlmock.AnyArg(), "1m0s", 10).
		WillReturnRows(rows)

	claimed, err := repo.ClaimBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "evt-1", claimed[0].EventID)
	assert.Equal(t, StatusProcessing, claimed[0].Status)
	assert.Equal(t, 1, claimed[0].Attempts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPublishedLosesStaleClaim(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db, time.Minute)

	// Another worker reclaimed the row; zero rows match the stale token.
	mock.ExpectExec("UPDATE outbox_events SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.MarkPublished(context.Background(), "evt-1", "stale-token")
	require.Error(t, err)
	assert.True(t, apperr.IsDuplicate(err), "a lost claim is an expected duplicate, not a failure")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseClearsClaim(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db, time.Minute)

	mock.ExpectExec("UPDATE outbox_events SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Release(context.Background(), "evt-1", "claim-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBacklogReportsCountAndAge(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db, time.Minute)

	mock.ExpectQuery("SELECT count").
		WillReturnRows(sqlmock.NewRows([]string{"count", "age"}).AddRow(3, 12.5))

	count, oldest, err := repo.Backlog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 12500*time.Millisecond, oldest)
	require.NoError(t, mock.ExpectationsWereMet())
}
