// Package command implements the write side of the risk service: automated
// rule evaluation on payments.requested, failure history tracking, and
// operator decisions on the manual review queue.
package command

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/UmangBid/SagaPay/components/risk/internal/adapters/orchestrator"
	"github.com/UmangBid/SagaPay/components/risk/internal/adapters/postgres/review"
	"github.com/UmangBid/SagaPay/components/risk/internal/adapters/redis"
	"github.com/UmangBid/SagaPay/pkg/inbox"
	"github.com/UmangBid/SagaPay/pkg/outbox"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

// TransactionManager runs a function inside one database transaction.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Rules holds the thresholds behind the automated decision.
type Rules struct {
	// ReviewAmountCents parks payments at or above this amount for manual
	// review.
	ReviewAmountCents int64

	// VelocityPerMinute and VelocityPerHour trigger REVIEW when exceeded.
	VelocityPerMinute int64
	VelocityPerHour   int64

	// DenyFrequencyPerHour is the hard ceiling: beyond it the payment is
	// denied outright.
	DenyFrequencyPerHour int64

	// FailedAttemptsThreshold denies customers with this many recent
	// provider failures.
	FailedAttemptsThreshold int64

	// FailureTTL bounds how long failures count against a customer.
	FailureTTL time.Duration
}

// UseCase aggregates the repositories needed for risk writes.
type UseCase struct {
	// ReviewRepo provides an abstraction on top of the review queue.
	ReviewRepo review.Repository

	// CounterRepo tracks velocity and failure counters in Redis.
	CounterRepo redis.CounterRepository

	// OutboxRepo stages decision events in the risk database.
	OutboxRepo outbox.Repository

	// InboxRepo guards consumed events for exactly-once effects.
	InboxRepo inbox.Repository

	// Orchestrator confirms payment state before manual decisions.
	Orchestrator orchestrator.StatusClient

	// Tx wraps multi-write operations in one database transaction.
	Tx TransactionManager

	Rules   Rules
	Logger  *zap.SugaredLogger
	Metrics *telemetry.Metrics
}
