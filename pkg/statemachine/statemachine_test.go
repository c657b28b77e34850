package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UmangBid/SagaPay/pkg/apperr"
)

func TestCanFollowsTheTable(t *testing.T) {
	for _, rule := range Rules {
		assert.True(t, Can(rule.From, rule.To), "%s -> %s should be allowed", rule.From, rule.To)
	}

	invalid := []struct{ from, to Status }{
		{StatusCreated, StatusAuthorized},
		{StatusCreated, StatusSettled},
		{StatusSettled, StatusCreated},
		{StatusFailed, StatusApproved},
		{StatusCaptured, StatusReversed},
		{StatusReversed, StatusSettled},
	}
	for _, tc := range invalid {
		assert.False(t, Can(tc.from, tc.to), "%s -> %s should be rejected", tc.from, tc.to)
	}
}

func TestValidateClassifiesInvalidTransitionAsInvariant(t *testing.T) {
	require.NoError(t, Validate(StatusCreated, StatusApproved))

	err := Validate(StatusSettled, StatusFailed)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvariantViolation, apperr.KindOf(err))
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusSettled, StatusFailed, StatusReversed} {
		assert.True(t, IsTerminal(s), "%s should be terminal", s)
	}
	for _, s := range []Status{StatusCreated, StatusRiskReview, StatusApproved, StatusAuthorized, StatusCaptured} {
		assert.False(t, IsTerminal(s), "%s should not be terminal", s)
	}
}

func TestReachableForward(t *testing.T) {
	assert.True(t, ReachableForward(StatusCreated, StatusSettled))
	assert.True(t, ReachableForward(StatusApproved, StatusReversed))
	assert.True(t, ReachableForward(StatusRiskReview, StatusFailed))
	assert.True(t, ReachableForward(StatusCaptured, StatusCaptured), "a state reaches itself")

	assert.False(t, ReachableForward(StatusSettled, StatusFailed))
	assert.False(t, ReachableForward(StatusCaptured, StatusReversed))
	assert.False(t, ReachableForward(StatusFailed, StatusCreated))
}

// A CAS miss is droppable exactly when the observed state is downstream of
// the intended target. This mirrors how the orchestrator classifies stale
// deliveries.
func TestStaleTransitionClassification(t *testing.T) {
	// Intended CREATED -> APPROVED, but the payment is already CAPTURED:
	// the approval clearly happened, the retry is a duplicate.
	assert.True(t, ReachableForward(StatusApproved, StatusCaptured))

	// Intended AUTHORIZED -> CAPTURED, but the payment is FAILED: capture
	// cannot have happened, so this miss must surface as an invariant.
	assert.False(t, ReachableForward(StatusCaptured, StatusFailed))
}
