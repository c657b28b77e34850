// Package redis holds the velocity counters behind the automated risk rules.
// Counters are best-effort: a cold cache under-counts briefly, which biases
// the rules toward approval rather than blocking payments on a cache outage.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/UmangBid/SagaPay/pkg/apperr"
)

// CounterRepository tracks per-customer payment velocity and failure history.
type CounterRepository interface {
	// IncrementWindow bumps the customer's counter for the time bucket the
	// given window falls in and returns the new count within that bucket.
	IncrementWindow(ctx context.Context, customerID string, window time.Duration) (int64, error)
	FailureCount(ctx context.Context, customerID string) (int64, error)
	IncrementFailure(ctx context.Context, customerID string) error
}

// VelocityRepository implements CounterRepository on Redis.
type VelocityRepository struct {
	client     *goredis.Client
	failureTTL time.Duration
}

// NewVelocityRepository wraps the shared Redis client. failureTTL bounds how
// long a customer's failure history counts against them.
func NewVelocityRepository(client *goredis.Client, failureTTL time.Duration) *VelocityRepository {
	return &VelocityRepository{client: client, failureTTL: failureTTL}
}

func windowKey(customerID string, window time.Duration, now time.Time) string {
	bucket := now.Truncate(window).Unix()
	return fmt.Sprintf("velocity:%s:%d:%d", customerID, int64(window.Seconds()), bucket)
}

func failureKey(customerID string) string {
	return "failed_attempts:" + customerID
}

func (r *VelocityRepository) IncrementWindow(ctx context.Context, customerID string, window time.Duration) (int64, error) {
	key := windowKey(customerID, window, time.Now())

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// Keep the key around for one extra window so late evaluations still see
	// the previous bucket's pressure.
	pipe.Expire(ctx, key, 2*window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, apperr.Transient(err, "incrementing velocity counter for %s", customerID)
	}
	return incr.Val(), nil
}

func (r *VelocityRepository) FailureCount(ctx context.Context, customerID string) (int64, error) {
	count, err := r.client.Get(ctx, failureKey(customerID)).Int64()
	if err != nil {
		if err == goredis.Nil {
			return 0, nil
		}
		return 0, apperr.Transient(err, "reading failure count for %s", customerID)
	}
	return count, nil
}

func (r *VelocityRepository) IncrementFailure(ctx context.Context, customerID string) error {
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, failureKey(customerID))
	pipe.Expire(ctx, failureKey(customerID), r.failureTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.Transient(err, "incrementing failure count for %s", customerID)
	}
	return nil
}
