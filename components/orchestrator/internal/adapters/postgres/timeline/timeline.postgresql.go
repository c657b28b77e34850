package timeline

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

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (r *PostgresRepository) Append(ctx context.Context, entry *Entry) error {
	if entry.TimelineID == "" {
		entry.TimelineID = uuid.New().String()
	}

	query, args, err := builder().
		Insert("payment_timeline").
		Columns("timeline_id", "payment_id", "from_state", "to_state", "reason", "event_id", "created_at").
		Values(entry.TimelineID, entry.PaymentID, entry.FromState, entry.ToState,
			entry.Reason, entry.EventID, sq.Expr("now()")).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := mpostgres.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return apperr.Transient(err, "appending timeline row for %s", entry.PaymentID)
	}
	return nil
}

func (r *PostgresRepository) ListByPayment(ctx context.Context, paymentID string) ([]Entry, error) {
	query, args, err := builder().
		Select("timeline_id", "payment_id", "from_state", "to_state", "reason", "event_id", "created_at").
		From("payment_timeline").
		Where(sq.Eq{"payment_id": paymentID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := mpostgres.FromContext(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient(err, "listing timeline for %s", paymentID)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.TimelineID, &e.PaymentID, &e.FromState, &e.ToState,
			&e.Reason, &e.EventID, &e.CreatedAt); err != nil {
			return nil, apperr.Transient(err, "scanning timeline row")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
