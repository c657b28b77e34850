// Package command implements the provider adapter's single write flow:
// consuming authorization requests, driving the processor with a bounded
// retry budget, and reporting the outcome exactly once.
package command

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/UmangBid/SagaPay/components/provider/internal/adapters/gateway"
	"github.com/UmangBid/SagaPay/components/provider/internal/adapters/postgres/attempt"
	"github.com/UmangBid/SagaPay/pkg/inbox"
	"github.com/UmangBid/SagaPay/pkg/outbox"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

// TransactionManager runs a function inside one database transaction.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DefaultMaxAttempts bounds processor calls per payment. Only TIMEOUT
// consumes the budget; DECLINE is final on the first answer.
const DefaultMaxAttempts = 3

// DefaultRetrySchedule is the wait before each retry. A budget raised past
// the schedule length reuses the last entry.
var DefaultRetrySchedule = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// UseCase aggregates the dependencies of the authorization flow.
type UseCase struct {
	// Gateway is the (breaker-wrapped) processor.
	Gateway gateway.Gateway

	// AttemptRepo records one row per processor call.
	AttemptRepo attempt.Repository

	// OutboxRepo stages outcome events in the provider database.
	OutboxRepo outbox.Repository

	// InboxRepo guards consumed events for exactly-once effects.
	InboxRepo inbox.Repository

	// Tx wraps multi-write operations in one database transaction.
	Tx TransactionManager

	// MaxAttempts overrides DefaultMaxAttempts when positive.
	MaxAttempts int

	// RetrySchedule overrides DefaultRetrySchedule when non-nil (tests use
	// zero-valued waits).
	RetrySchedule []time.Duration

	Logger  *zap.SugaredLogger
	Metrics *telemetry.Metrics
}

func (uc *UseCase) maxAttempts() int {
	if uc.MaxAttempts > 0 {
		return uc.MaxAttempts
	}
	return DefaultMaxAttempts
}

// retryWait returns the pause before the given retry attempt (2-based).
func (uc *UseCase) retryWait(attemptNumber int) time.Duration {
	schedule := uc.RetrySchedule
	if schedule == nil {
		schedule = DefaultRetrySchedule
	}
	if len(schedule) == 0 {
		return 0
	}
	idx := attemptNumber - 2
	if idx >= len(schedule) {
		idx = len(schedule) - 1
	}
	return schedule[idx]
}
