package attempt

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/mpostgres"
)

// PostgresRepository implements Repository against the orchestrator database.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository wraps the orchestrator connection pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, a *Attempt) error {
	if a.AttemptID == "" {
		a.AttemptID = uuid.New().String()
	}

	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Insert("payment_attempts").
		Columns("attempt_id", "payment_id", "attempt_number", "result", "error_code", "created_at").
		Values(a.AttemptID, a.PaymentID, a.AttemptNumber, a.Result, a.ErrorCode, sq.Expr("now()")).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := mpostgres.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return apperr.Transient(err, "appending payment attempt for %s", a.PaymentID)
	}
	return nil
}
