package entry

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/constant"
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

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (r *PostgresRepository) Append(ctx context.Context, e *Entry) error {
	if e.EntryID == "" {
		e.EntryID = uuid.New().String()
	}

	query, args, err := builder().
		Insert("ledger_entries").
		Columns("entry_id", "transaction_id", "account_id", "direction", "amount_cents", "created_at").
		Values(e.EntryID, e.TransactionID, e.AccountID, e.Direction, e.AmountCents, sq.Expr("now()")).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := mpostgres.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		if mpostgres.IsUniqueViolation(err) {
			return apperr.Duplicate("ENTRY_EXISTS", "entry already posted for %s/%s", e.TransactionID, e.Direction)
		}
		return apperr.Transient(err, "appending ledger entry for %s", e.TransactionID)
	}
	return nil
}

func (r *PostgresRepository) ListByTransaction(ctx context.Context, transactionID string) ([]Entry, error) {
	query, args, err := builder().
		Select("entry_id", "transaction_id", "account_id", "direction", "amount_cents", "created_at").
		From("ledger_entries").
		Where(sq.Eq{"transaction_id": transactionID}).
		OrderBy("created_at ASC", "entry_id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := mpostgres.FromContext(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient(err, "listing entries for %s", transactionID)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.EntryID, &e.TransactionID, &e.AccountID, &e.Direction, &e.AmountCents, &e.CreatedAt); err != nil {
			return nil, apperr.Transient(err, "scanning ledger entry row")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PostgresRepository) Balance(ctx context.Context, transactionID string) (int64, int64, error) {
	query, args, err := builder().
		Select(
			"COALESCE(SUM(CASE WHEN direction = '"+constant.DirectionDebit+"' THEN amount_cents ELSE 0 END), 0)",
			"COALESCE(SUM(CASE WHEN direction = '"+constant.DirectionCredit+"' THEN amount_cents ELSE 0 END), 0)",
		).
		From("ledger_entries").
		Where(sq.Eq{"transaction_id": transactionID}).
		ToSql()
	if err != nil {
		return 0, 0, err
	}

	var debits, credits int64
	if err := mpostgres.FromContext(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&debits, &credits); err != nil {
		return 0, 0, apperr.Transient(err, "summing entries for %s", transactionID)
	}
	return debits, credits, nil
}

const sweepSQL = `SELECT transaction_id,
       SUM(CASE WHEN direction = 'DEBIT' THEN amount_cents ELSE -amount_cents END) AS delta
FROM ledger_entries
GROUP BY transaction_id
ORDER BY transaction_id`

func (r *PostgresRepository) Sweep(ctx context.Context) (int64, []Imbalance, error) {
	rows, err := mpostgres.FromContext(ctx, r.db).QueryContext(ctx, sweepSQL)
	if err != nil {
		return 0, nil, apperr.Transient(err, "sweeping ledger balances")
	}
	defer rows.Close()

	var checked int64
	var imbalanced []Imbalance
	for rows.Next() {
		var txID string
		var delta int64
		if err := rows.Scan(&txID, &delta); err != nil {
			return 0, nil, apperr.Transient(err, "scanning sweep row")
		}
		checked++
		if delta != 0 {
			imbalanced = append(imbalanced, Imbalance{TransactionID: txID, DeltaCents: delta})
		}
	}
	return checked, imbalanced, rows.Err()
}
