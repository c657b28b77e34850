package account

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/mpostgres"
)

// PostgresRepository implements Repository against the ledger database.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository wraps the ledger connection pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Ensure(ctx context.Context, accountID, name string) error {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Insert("accounts").
		Columns("account_id", "name", "created_at").
		Values(accountID, name, sq.Expr("now()")).
		Suffix("ON CONFLICT (account_id) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}

	if _, err := mpostgres.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return apperr.Transient(err, "ensuring account %s", accountID)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, accountID string) (*Account, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("account_id", "name", "created_at").
		From("accounts").
		Where(sq.Eq{"account_id": accountID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var a Account
	err = mpostgres.FromContext(ctx, r.db).QueryRowContext(ctx, query, args...).
		Scan(&a.AccountID, &a.Name, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("ACCOUNT_NOT_FOUND", "account %s not found", accountID)
		}
		return nil, apperr.Transient(err, "scanning account row")
	}
	return &a, nil
}
