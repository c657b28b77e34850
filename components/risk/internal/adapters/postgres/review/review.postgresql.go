package review

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/mpostgres"
)

// PostgresRepository implements Repository against the risk database.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository wraps the risk connection pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

var reviewColumns = []string{
	"review_id", "payment_id", "customer_id", "amount_cents", "reason",
	"status", "reviewed_by", "reviewed_at", "decision_event_id", "created_at",
}

func scanReview(row sq.RowScanner) (*Review, error) {
	var r Review
	err := row.Scan(&r.ReviewID, &r.PaymentID, &r.CustomerID, &r.AmountCents, &r.Reason,
		&r.Status, &r.ReviewedBy, &r.ReviewedAt, &r.DecisionEventID, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("REVIEW_NOT_FOUND", "review not found")
		}
		return nil, apperr.Transient(err, "scanning review row")
	}
	return &r, nil
}

func (r *PostgresRepository) Create(ctx context.Context, rev *Review) error {
	if rev.ReviewID == "" {
		rev.ReviewID = uuid.New().String()
	}
	rev.Status = StatusPending

	query, args, err := builder().
		Insert("risk_reviews").
		Columns("review_id", "payment_id", "customer_id", "amount_cents", "reason", "status", "created_at").
		Values(rev.ReviewID, rev.PaymentID, rev.CustomerID, rev.AmountCents, rev.Reason, rev.Status, sq.Expr("now()")).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := mpostgres.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		if mpostgres.IsUniqueViolation(err) {
			return apperr.Duplicate("REVIEW_EXISTS", "review already exists for payment %s", rev.PaymentID)
		}
		return apperr.Transient(err, "inserting review for %s", rev.PaymentID)
	}
	return nil
}

func (r *PostgresRepository) FindByPayment(ctx context.Context, paymentID string) (*Review, error) {
	query, args, err := builder().
		Select(reviewColumns...).
		From("risk_reviews").
		Where(sq.Eq{"payment_id": paymentID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanReview(mpostgres.FromContext(ctx, r.db).QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, status string, limit int) ([]Review, error) {
	query, args, err := builder().
		Select(reviewColumns...).
		From("risk_reviews").
		Where(sq.Eq{"status": status}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := mpostgres.FromContext(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient(err, "listing %s reviews", status)
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var rev Review
		if err := rows.Scan(&rev.ReviewID, &rev.PaymentID, &rev.CustomerID, &rev.AmountCents, &rev.Reason,
			&rev.Status, &rev.ReviewedBy, &rev.ReviewedAt, &rev.DecisionEventID, &rev.CreatedAt); err != nil {
			return nil, apperr.Transient(err, "scanning review row")
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}

func (r *PostgresRepository) Finalize(ctx context.Context, paymentID, status, reviewedBy, decisionEventID string) (bool, error) {
	query, args, err := builder().
		Update("risk_reviews").
		Set("status", status).
		Set("reviewed_by", reviewedBy).
		Set("reviewed_at", sq.Expr("now()")).
		Set("decision_event_id", decisionEventID).
		Where(sq.Eq{"payment_id": paymentID, "status": StatusPending}).
		ToSql()
	if err != nil {
		return false, err
	}

	result, err := mpostgres.FromContext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperr.Transient(err, "finalizing review for %s", paymentID)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperr.Transient(err, "reading finalize result for %s", paymentID)
	}
	return affected == 1, nil
}
