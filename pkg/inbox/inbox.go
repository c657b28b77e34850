// Package inbox gives consumers exactly-once effects on top of at-least-once
// delivery. A consumer inserts (event_id, consumer_service) inside the same
// transaction as its side effects; a unique-constraint hit means the event
// was already processed and the handler short-circuits.
package inbox

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/mpostgres"
)

// Repository guards event consumption for one service database.
//
//go:generate mockgen --destination=inbox.mock.go --package=inbox . Repository
type Repository interface {
	// Record inserts the inbox row inside the ambient transaction. It returns
	// an expected-duplicate error when the event was already consumed.
	Record(ctx context.Context, eventID, consumerService string) error
}

// PostgresRepository is the database/sql implementation of Repository.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository wraps the service database pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Record(ctx context.Context, eventID, consumerService string) error {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Insert("inbox_events").
		Columns("event_id", "consumer_service", "consumed_at").
		Values(eventID, consumerService, sq.Expr("now()")).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := mpostgres.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		if mpostgres.IsUniqueViolation(err) {
			return apperr.Duplicate("EVENT_ALREADY_CONSUMED", "event %s already consumed by %s", eventID, consumerService)
		}
		return apperr.Transient(err, "recording inbox event %s", eventID)
	}
	return nil
}
