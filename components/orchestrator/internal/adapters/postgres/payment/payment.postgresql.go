package payment

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/mpostgres"
	"github.com/UmangBid/SagaPay/pkg/statemachine"
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

var paymentColumns = []string{
	"payment_id", "customer_id", "amount_cents", "currency", "status",
	"state_version", "idempotency_key", "correlation_id", "created_at", "updated_at",
}

func scanPayment(row sq.RowScanner) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.PaymentID, &p.CustomerID, &p.AmountCents, &p.Currency, &p.Status,
		&p.StateVersion, &p.IdempotencyKey, &p.CorrelationID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("PAYMENT_NOT_FOUND", "payment not found")
		}
		return nil, apperr.Transient(err, "scanning payment row")
	}
	return &p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *Payment) error {
	if p.PaymentID == "" {
		p.PaymentID = uuid.New().String()
	}
	p.Status = statemachine.StatusCreated
	p.StateVersion = 0

	query, args, err := builder().
		Insert("payments").
		Columns("payment_id", "customer_id", "amount_cents", "currency", "status",
			"state_version", "idempotency_key", "correlation_id", "created_at", "updated_at").
		Values(p.PaymentID, p.CustomerID, p.AmountCents, p.Currency, p.Status,
			p.StateVersion, p.IdempotencyKey, p.CorrelationID, sq.Expr("now()"), sq.Expr("now()")).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := mpostgres.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		if mpostgres.IsUniqueViolation(err) {
			return apperr.Duplicate("IDEMPOTENCY_KEY_EXISTS",
				"payment already exists for customer %s idempotency key %s", p.CustomerID, p.IdempotencyKey)
		}
		return apperr.Transient(err, "inserting payment")
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, paymentID string) (*Payment, error) {
	query, args, err := builder().
		Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"payment_id": paymentID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanPayment(mpostgres.FromContext(ctx, r.db).QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) FindByIdempotencyKey(ctx context.Context, customerID, idempotencyKey string) (*Payment, error) {
	query, args, err := builder().
		Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"customer_id": customerID, "idempotency_key": idempotencyKey}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanPayment(mpostgres.FromContext(ctx, r.db).QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) TransitionState(ctx context.Context, paymentID string, from statemachine.Status, fromVersion int64, to statemachine.Status) (bool, error) {
	query, args, err := builder().
		Update("payments").
		Set("status", to).
		Set("state_version", fromVersion+1).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"payment_id": paymentID, "status": from, "state_version": fromVersion}).
		ToSql()
	if err != nil {
		return false, err
	}

	result, err := mpostgres.FromContext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperr.Transient(err, "transitioning payment %s", paymentID)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperr.Transient(err, "reading transition result for %s", paymentID)
	}
	return affected == 1, nil
}
