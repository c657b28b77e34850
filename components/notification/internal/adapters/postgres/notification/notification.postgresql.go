package notification

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/mpostgres"
)

// PostgresRepository implements Repository against the notification database.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository wraps the notification connection pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (r *PostgresRepository) Append(ctx context.Context, n *Notification) error {
	if n.NotificationID == "" {
		n.NotificationID = uuid.New().String()
	}

	query, args, err := builder().
		Insert("notifications").
		Columns("notification_id", "payment_id", "event_id", "kind", "message", "created_at").
		Values(n.NotificationID, n.PaymentID, n.EventID, n.Kind, n.Message, sq.Expr("now()")).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := mpostgres.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		if mpostgres.IsUniqueViolation(err) {
			return apperr.Duplicate("NOTIFICATION_EXISTS", "notification already logged for event %s", n.EventID)
		}
		return apperr.Transient(err, "appending notification for %s", n.PaymentID)
	}
	return nil
}

func (r *PostgresRepository) ListByPayment(ctx context.Context, paymentID string) ([]Notification, error) {
	query, args, err := builder().
		Select("notification_id", "payment_id", "event_id", "kind", "message", "created_at").
		From("notifications").
		Where(sq.Eq{"payment_id": paymentID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := mpostgres.FromContext(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient(err, "listing notifications for %s", paymentID)
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.NotificationID, &n.PaymentID, &n.EventID, &n.Kind, &n.Message, &n.CreatedAt); err != nil {
			return nil, apperr.Transient(err, "scanning notification row")
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
