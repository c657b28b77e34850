// Package redis implements the short-lived idempotency cache in front of the
// payments table. The cache is a fast path only; the unique constraint on
// (customer_id, idempotency_key) remains the authority.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// PaymentRef is the cached answer for a repeated create request.
type PaymentRef struct {
	PaymentID string `msgpack:"payment_id"`
	Status    string `msgpack:"status"`
}

// IdempotencyRepository caches payment references by customer and key.
type IdempotencyRepository interface {
	Get(ctx context.Context, customerID, idempotencyKey string) (*PaymentRef, error)
	Set(ctx context.Context, customerID, idempotencyKey string, ref PaymentRef) error
}

// CacheRepository is the go-redis implementation of IdempotencyRepository.
type CacheRepository struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewCacheRepository wraps the shared Redis client.
func NewCacheRepository(client *goredis.Client, ttl time.Duration) *CacheRepository {
	return &CacheRepository{client: client, ttl: ttl}
}

func cacheKey(customerID, idempotencyKey string) string {
	return fmt.Sprintf("payment:%s:%s", customerID, idempotencyKey)
}

// Get returns the cached reference, or nil on miss. Cache errors surface as
// misses so the database path stays authoritative.
func (r *CacheRepository) Get(ctx context.Context, customerID, idempotencyKey string) (*PaymentRef, error) {
	raw, err := r.client.Get(ctx, cacheKey(customerID, idempotencyKey)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, nil
	}

	var ref PaymentRef
	if err := msgpack.Unmarshal(raw, &ref); err != nil {
		return nil, nil
	}
	return &ref, nil
}

// Set stores the reference with the configured TTL. Failures are returned
// for logging but callers treat them as best-effort.
func (r *CacheRepository) Set(ctx context.Context, customerID, idempotencyKey string, ref PaymentRef) error {
	raw, err := msgpack.Marshal(ref)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, cacheKey(customerID, idempotencyKey), raw, r.ttl).Err()
}
