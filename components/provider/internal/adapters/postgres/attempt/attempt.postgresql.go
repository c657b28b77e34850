package attempt

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/mpostgres"
)

// PostgresRepository implements Repository against the provider database.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository wraps the provider connection pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (r *PostgresRepository) Append(ctx context.Context, a *Attempt) error {
	if a.AttemptID == "" {
		a.AttemptID = uuid.New().String()
	}

	query, args, err := builder().
		Insert("provider_attempts").
		Columns("attempt_id", "payment_id", "attempt_number", "outcome", "error_code", "latency_ms", "created_at").
		Values(a.AttemptID, a.PaymentID, a.AttemptNumber, a.Outcome, a.ErrorCode, a.LatencyMS, sq.Expr("now()")).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := mpostgres.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return apperr.Transient(err, "appending provider attempt for %s", a.PaymentID)
	}
	return nil
}

func (r *PostgresRepository) ListByPayment(ctx context.Context, paymentID string) ([]Attempt, error) {
	query, args, err := builder().
		Select("attempt_id", "payment_id", "attempt_number", "outcome", "error_code", "latency_ms", "created_at").
		From("provider_attempts").
		Where(sq.Eq{"payment_id": paymentID}).
		OrderBy("attempt_number ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := mpostgres.FromContext(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient(err, "listing attempts for %s", paymentID)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.AttemptID, &a.PaymentID, &a.AttemptNumber, &a.Outcome, &a.ErrorCode, &a.LatencyMS, &a.CreatedAt); err != nil {
			return nil, apperr.Transient(err, "scanning attempt row")
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
