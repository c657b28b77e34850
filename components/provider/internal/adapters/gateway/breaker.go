package gateway

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/UmangBid/SagaPay/pkg/apperr"
)

// BreakerGateway wraps a Gateway in a circuit breaker. Timeouts count as
// failures; an open breaker reports TIMEOUT immediately so the caller's retry
// budget still governs, without hammering a struggling processor.
type BreakerGateway struct {
	inner Gateway
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerGateway wraps inner with processor-tuned breaker settings.
func NewBreakerGateway(inner Gateway) *BreakerGateway {
	return &BreakerGateway{
		inner: inner,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "processor",
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

func (g *BreakerGateway) Authorize(ctx context.Context, req AuthorizeRequest) (Result, error) {
	out, err := g.cb.Execute(func() (any, error) {
		res, err := g.inner.Authorize(ctx, req)
		if err != nil {
			return res, err
		}
		if res.Outcome == OutcomeTimeout {
			// Feed the breaker, but hand the result back unchanged.
			return res, errTimeout{res}
		}
		return res, nil
	})
	if err != nil {
		if te, ok := err.(errTimeout); ok {
			return te.result, nil
		}
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return Result{Outcome: OutcomeTimeout, ErrorCode: "BREAKER_OPEN"}, nil
		}
		return Result{}, apperr.Transient(err, "processor call failed")
	}
	return out.(Result), nil
}

type errTimeout struct{ result Result }

func (errTimeout) Error() string { return "processor timeout" }
