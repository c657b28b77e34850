package review

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UmangBid/SagaPay/pkg/apperr"
)

func newRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreateParksReviewAsPending(t *testing.T) {
	repo, mock := newRepo(t)

	rev := &Review{
		PaymentID:   "pay-1",
		CustomerID:  "cust-1",
		AmountCents: 150000,
		Reason:      "high_amount",
	}

	mock.ExpectExec("INSERT INTO risk_reviews").
		WithArgs(sqlmock.AnyArg(), "pay-1", "cust-1", int64(150000), "high_amount", StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), rev))
	assert.NotEmpty(t, rev.ReviewID)
	assert.Equal(t, StatusPending, rev.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSecondReviewForPaymentIsDuplicate(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec("INSERT INTO risk_reviews").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &Review{PaymentID: "pay-1"})
	require.Error(t, err)
	assert.True(t, apperr.IsDuplicate(err))
}

func TestFindByPaymentMissingIsNotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM risk_reviews").
		WithArgs("pay-missing").
		WillReturnRows(sqlmock.NewRows(reviewColumns))

	_, err := repo.FindByPayment(context.Background(), "pay-missing")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListByStatusScansRows(t *testing.T) {
	repo, mock := newRepo(t)

	now := time.Now()
	rows := sqlmock.NewRows(reviewColumns).
		AddRow("rev-1", "pay-1", "cust-1", int64(150000), "high_amount",
			StatusPending, nil, nil, nil, now).
		AddRow("rev-2", "pay-2", "cust-2", int64(200000), "high_amount",
			StatusPending, nil, nil, nil, now)

	mock.ExpectQuery("SELECT (.+) FROM risk_reviews").
		WithArgs(StatusPending).
		WillReturnRows(rows)

	reviews, err := repo.ListByStatus(context.Background(), StatusPending, 50)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "pay-1", reviews[0].PaymentID)
	assert.False(t, reviews[0].ReviewedBy.Valid)
}

func TestFinalizeIsSingleShot(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec("UPDATE risk_reviews SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Finalize(context.Background(), "pay-1", StatusApproved, "ops@sagapay", "evt-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// A second finalize finds no PENDING row.
	mock.ExpectExec("UPDATE risk_reviews SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.Finalize(context.Background(), "pay-1", StatusDenied, "ops@sagapay", "evt-2")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
