// Package statemachine declares the payment lifecycle graph and the
// transition rules the orchestrator enforces with compare-and-swap updates.
package statemachine

import "github.com/UmangBid/SagaPay/pkg/apperr"

// Status is one of the named payment lifecycle states.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusRiskReview Status = "RISK_REVIEW"
	StatusApproved   Status = "APPROVED"
	StatusAuthorized Status = "AUTHORIZED"
	StatusCaptured   Status = "CAPTURED"
	StatusSettled    Status = "SETTLED"
	StatusFailed     Status = "FAILED"
	StatusReversed   Status = "REVERSED"
)

// Trigger names the business event that causes a transition.
type Trigger string

const (
	TriggerRiskApproved     Trigger = "risk_approved"
	TriggerRiskReview       Trigger = "risk_review_required"
	TriggerRiskDenied       Trigger = "risk_denied"
	TriggerOperatorApproved Trigger = "operator_approved"
	TriggerOperatorDenied   Trigger = "operator_denied"
	TriggerAuthorized       Trigger = "provider_authorized"
	TriggerDeclined         Trigger = "provider_declined"
	TriggerCaptured         Trigger = "capture_requested"
	TriggerCaptureTimeout   Trigger = "provider_timeout_compensation"
	TriggerSettled          Trigger = "ledger_settled"
)

// Rule is one row of the declarative transition table.
type Rule struct {
	From    Status
	Trigger Trigger
	To      Status
}

// Rules is the full transition table. Any (from, trigger) pair missing here
// is an invalid transition.
var Rules = []Rule{
	{StatusCreated, TriggerRiskApproved, StatusApproved},
	{StatusCreated, TriggerRiskReview, StatusRiskReview},
	{StatusCreated, TriggerRiskDenied, StatusFailed},
	{StatusRiskReview, TriggerOperatorApproved, StatusApproved},
	{StatusRiskReview, TriggerOperatorDenied, StatusFailed},
	{StatusApproved, TriggerAuthorized, StatusAuthorized},
	{StatusApproved, TriggerDeclined, StatusFailed},
	{StatusAuthorized, TriggerCaptured, StatusCaptured},
	{StatusAuthorized, TriggerCaptureTimeout, StatusReversed},
	{StatusCaptured, TriggerSettled, StatusSettled},
}

var successors = func() map[Status]map[Status]struct{} {
	m := make(map[Status]map[Status]struct{})
	for _, r := range Rules {
		if m[r.From] == nil {
			m[r.From] = make(map[Status]struct{})
		}
		m[r.From][r.To] = struct{}{}
	}
	return m
}()

// Can reports whether from -> to is a single valid transition.
func Can(from, to Status) bool {
	_, ok := successors[from][to]
	return ok
}

// Validate returns a deterministic error when from -> to is not allowed.
func Validate(from, to Status) error {
	if !Can(from, to) {
		return apperr.Invariant("INVALID_TRANSITION", "invalid transition: %s -> %s", from, to)
	}
	return nil
}

// IsTerminal reports whether the state has no outgoing transitions.
func IsTerminal(s Status) bool {
	return len(successors[s]) == 0
}

// ReachableForward reports whether target is reachable from start by
// following zero or more transitions. A CAS miss where the observed state is
// forward-reachable from the intended target means the event already took
// effect and the retry can be dropped.
func ReachableForward(start, target Status) bool {
	if start == target {
		return true
	}
	seen := map[Status]struct{}{start: {}}
	frontier := []Status{start}
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		for to := range successors[next] {
			if to == target {
				return true
			}
			if _, ok := seen[to]; !ok {
				seen[to] = struct{}{}
				frontier = append(frontier, to)
			}
		}
	}
	return false
}
