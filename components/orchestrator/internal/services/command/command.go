// Package command implements the write side of the orchestrator: payment
// creation with idempotency, saga progression driven by consumed events, and
// the compare-and-swap transition discipline.
//
// Every event handler runs inside one database transaction containing the
// inbox guard, the state transition, the timeline row, and any staged outbox
// events, so a crash at any point leaves either no effect or the complete
// effect.
package command

import (
	"context"

	"go.uber.org/zap"

	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/attempt"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/payment"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/timeline"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/redis"
	"github.com/UmangBid/SagaPay/pkg/inbox"
	"github.com/UmangBid/SagaPay/pkg/outbox"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

// TransactionManager runs a function inside one database transaction.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UseCase aggregates the repositories needed for orchestrator writes.
type UseCase struct {
	// PaymentRepo provides an abstraction on top of the payment data source.
	PaymentRepo payment.Repository

	// TimelineRepo provides an abstraction on top of the audit timeline.
	TimelineRepo timeline.Repository

	// AttemptRepo provides an abstraction on top of the attempt log.
	AttemptRepo attempt.Repository

	// OutboxRepo stages events in the orchestrator database.
	OutboxRepo outbox.Repository

	// InboxRepo guards consumed events for exactly-once effects.
	InboxRepo inbox.Repository

	// CacheRepo is the short-lived idempotency fast path.
	CacheRepo redis.IdempotencyRepository

	// Tx wraps multi-write operations in one database transaction.
	Tx TransactionManager

	Logger  *zap.SugaredLogger
	Metrics *telemetry.Metrics
}
