package inbox

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UmangBid/SagaPay/pkg/apperr"
)

func TestRecordInsertsGuardRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)

	mock.ExpectExec("INSERT INTO inbox_events").
		WithArgs("evt-1", "orchestrator").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Record(context.Background(), "evt-1", "orchestrator"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTranslatesUniqueViolationToDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)

	mock.ExpectExec("INSERT INTO inbox_events").
		WithArgs("evt-1", "orchestrator").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = repo.Record(context.Background(), "evt-1", "orchestrator")
	require.Error(t, err)
	assert.True(t, apperr.IsDuplicate(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPropagatesOtherErrorsAsTransient(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)

	mock.ExpectExec("INSERT INTO inbox_events").
		WithArgs("evt-1", "ledger").
		WillReturnError(assert.AnError)

	err = repo.Record(context.Background(), "evt-1", "ledger")
	require.Error(t, err)
	assert.True(t, apperr.IsTransient(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
