// Package outbox implements the transactional outbox runtime shared by all
// services: events are staged in the service database inside the same
// transaction as the business change they describe, then drained to the
// broker by publisher workers.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/events"
	"github.com/UmangBid/SagaPay/pkg/mpostgres"
)

// Status values of an outbox row.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusPublished  = "PUBLISHED"
	StatusFailed     = "FAILED"
)

// Event is one staged outbox row. Payload holds the full envelope so the
// publisher needs no knowledge of per-topic schemas.
type Event struct {
	EventID     string
	AggregateID string
	Topic       string
	Payload     json.RawMessage
	Status      string
	ClaimToken  sql.NullString
	ClaimedAt   sql.NullTime
	CreatedAt   time.Time
	Attempts    int
}

// Repository stages and drains outbox rows for one service database.
//
//go:generate mockgen --destination=outbox.mock.go --package=outbox . Repository
type Repository interface {
	// Add stages an envelope inside the ambient transaction.
	Add(ctx context.Context, envelope events.Envelope, topic string) error
	// ClaimBatch atomically claims up to limit publishable rows: PENDING
	// ones plus PROCESSING rows whose claim went stale.
	ClaimBatch(ctx context.Context, limit int) ([]Event, error)
	// MarkPublished finishes a claimed row. Claim-token guarded.
	MarkPublished(ctx context.Context, eventID, claimToken string) error
	// Release returns a claimed row to PENDING for retry.
	Release(ctx context.Context, eventID, claimToken string) error
	// MarkFailed parks a row after the publish budget is exhausted.
	MarkFailed(ctx context.Context, eventID, claimToken string) error
	// Backlog reports unpublished row count and the oldest row's age.
	Backlog(ctx context.Context) (int, time.Duration, error)
}

// PostgresRepository is the squirrel/database-sql implementation of
// Repository used by every service.
type PostgresRepository struct {
	db             *sql.DB
	reclaimTimeout time.Duration
}

// NewPostgresRepository builds the repository. reclaimTimeout controls when a
// PROCESSING row abandoned by a crashed worker becomes claimable again.
func NewPostgresRepository(db *sql.DB, reclaimTimeout time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, reclaimTimeout: reclaimTimeout}
}

func (r *PostgresRepository) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (r *PostgresRepository) Add(ctx context.Context, envelope events.Envelope, topic string) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return apperr.Terminal("OUTBOX_ENCODE", err, "encoding outbox payload for %s", topic)
	}

	query, args, err := r.builder().
		Insert("outbox_events").
		Columns("event_id", "aggregate_id", "topic", "payload", "status", "created_at", "attempts").
		Values(envelope.EventID, envelope.AggregateID, topic, body, StatusPending, sq.Expr("now()"), 0).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := mpostgres.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return apperr.Transient(err, "staging outbox event %s", envelope.EventID)
	}
	return nil
}

// claimSQL selects publishable rows with skip-locked semantics so concurrent
// workers never claim the same row, then stamps them PROCESSING in one
// statement.
const claimSQL = `
UPDATE outbox_events SET
    status = 'PROCESSING',
    claim_token = $1,
    claimed_at = now(),
    attempts = attempts + 1
WHERE event_id IN (
    SELECT event_id FROM outbox_events
    WHERE status = 'PENDING'
       OR (status = 'PROCESSING' AND claimed_at < now() - $2::interval)
    ORDER BY created_at
    LIMIT $3
    FOR UPDATE SKIP LOCKED
)
RETURNING event_id, aggregate_id, topic, payload, status, claim_token, claimed_at, created_at, attempts`

func (r *PostgresRepository) ClaimBatch(ctx context.Context, limit int) ([]Event, error) {
	claimToken := uuid.New().String()
	interval := r.reclaimTimeout.String()

	rows, err := r.db.QueryContext(ctx, claimSQL, claimToken, interval, limit)
	if err != nil {
		return nil, apperr.Transient(err, "claiming outbox batch")
	}
	defer rows.Close()

	var claimed []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.EventID, &e.AggregateID, &e.Topic, &e.Payload,
			&e.Status, &e.ClaimToken, &e.ClaimedAt, &e.CreatedAt, &e.Attempts); err != nil {
			return nil, apperr.Transient(err, "scanning claimed outbox row")
		}
		claimed = append(claimed, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient(err, "iterating claimed outbox rows")
	}
	return claimed, nil
}

func (r *PostgresRepository) transition(ctx context.Context, eventID, claimToken, toStatus string, clearClaim bool) error {
	update := r.builder().
		Update("outbox_events").
		Set("status", toStatus).
		Where(sq.Eq{"event_id": eventID, "status": StatusProcessing, "claim_token": claimToken})
	if clearClaim {
		update = update.Set("claim_token", nil).Set("claimed_at", nil)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperr.Transient(err, "moving outbox event %s to %s", eventID, toStatus)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		// The claim was reclaimed by another worker after the timeout; that
		// worker now owns the row's fate.
		return apperr.Duplicate("OUTBOX_CLAIM_LOST", "outbox claim lost for %s", eventID)
	}
	return nil
}

func (r *PostgresRepository) MarkPublished(ctx context.Context, eventID, claimToken string) error {
	return r.transition(ctx, eventID, claimToken, StatusPublished, false)
}

func (r *PostgresRepository) Release(ctx context.Context, eventID, claimToken string) error {
	return r.transition(ctx, eventID, claimToken, StatusPending, true)
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, eventID, claimToken string) error {
	return r.transition(ctx, eventID, claimToken, StatusFailed, false)
}

const backlogSQL = `
SELECT count(*), coalesce(extract(epoch FROM now() - min(created_at)), 0)
FROM outbox_events
WHERE status IN ('PENDING', 'PROCESSING')`

func (r *PostgresRepository) Backlog(ctx context.Context) (int, time.Duration, error) {
	var count int
	var ageSeconds float64
	if err := r.db.QueryRowContext(ctx, backlogSQL).Scan(&count, &ageSeconds); err != nil {
		return 0, 0, apperr.Transient(err, "reading outbox backlog")
	}
	return count, time.Duration(ageSeconds * float64(time.Second)), nil
}
