// Package gateway models the upstream card processor. The real dependency is
// hidden behind the Gateway interface; the process ships with a simulator
// that produces deterministic outcomes for designated test customers and
// weighted random outcomes for everyone else.
package gateway

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"
)

// Authorization outcomes.
const (
	OutcomeSuccess = "SUCCESS"
	OutcomeTimeout = "TIMEOUT"
	OutcomeDecline = "DECLINE"
)

// AuthorizeRequest is one authorization call to the processor.
type AuthorizeRequest struct {
	PaymentID   string
	CustomerID  string
	AmountCents int64
	Currency    string
}

// Result is the processor's answer to one call.
type Result struct {
	Outcome   string
	ErrorCode string
	LatencyMS int64
}

// Gateway authorizes payments against the upstream processor.
type Gateway interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (Result, error)
}

// Customer id prefixes that force a deterministic outcome.
const (
	forceTimeoutPrefix = "force-timeout"
	forceDeclinePrefix = "force-decline"
)

// Simulator is a stand-in processor. Outcome weights are normalized against
// their sum; the zero value of rng falls back to the shared source.
type Simulator struct {
	SuccessWeight float64
	TimeoutWeight float64
	DeclineWeight float64

	// BaseLatency is reported (not slept) per call, with jitter.
	BaseLatency time.Duration

	rng func() float64
}

// NewSimulator returns a simulator with production-like weights.
func NewSimulator() *Simulator {
	return &Simulator{
		SuccessWeight: 0.80,
		TimeoutWeight: 0.15,
		DeclineWeight: 0.05,
		BaseLatency:   80 * time.Millisecond,
		rng:           rand.Float64,
	}
}

// NewSeededSimulator fixes the random source, for reproducible runs.
func NewSeededSimulator(seed uint64) *Simulator {
	r := rand.New(rand.NewPCG(seed, seed))
	s := NewSimulator()
	s.rng = r.Float64
	return s
}

func (s *Simulator) Authorize(_ context.Context, req AuthorizeRequest) (Result, error) {
	latency := s.BaseLatency + time.Duration(s.rng()*float64(s.BaseLatency))

	switch {
	case strings.HasPrefix(req.CustomerID, forceTimeoutPrefix):
		return Result{Outcome: OutcomeTimeout, ErrorCode: "GATEWAY_TIMEOUT", LatencyMS: latency.Milliseconds()}, nil
	case strings.HasPrefix(req.CustomerID, forceDeclinePrefix):
		return Result{Outcome: OutcomeDecline, ErrorCode: "CARD_DECLINED", LatencyMS: latency.Milliseconds()}, nil
	}

	total := s.SuccessWeight + s.TimeoutWeight + s.DeclineWeight
	roll := s.rng() * total
	switch {
	case roll < s.SuccessWeight:
		return Result{Outcome: OutcomeSuccess, LatencyMS: latency.Milliseconds()}, nil
	case roll < s.SuccessWeight+s.TimeoutWeight:
		return Result{Outcome: OutcomeTimeout, ErrorCode: "GATEWAY_TIMEOUT", LatencyMS: latency.Milliseconds()}, nil
	default:
		return Result{Outcome: OutcomeDecline, ErrorCode: "CARD_DECLINED", LatencyMS: latency.Milliseconds()}, nil
	}
}
