// Package constant holds wire-level names shared by every SagaPay service:
// broker topics, event classifications, and HTTP header keys.
package constant

// Logical broker topics. Queue names are derived per consumer as
// "<service>.<topic>".
const (
	TopicPaymentsRequested        = "payments.requested"
	TopicRiskApproved             = "risk.approved"
	TopicRiskDenied               = "risk.denied"
	TopicProviderAuthorizeRequest = "provider.authorize.requested"
	TopicPaymentsAuthorized       = "payments.authorized"
	TopicPaymentsFailed           = "payments.failed"
	TopicPaymentsCaptured         = "payments.captured"
	TopicPaymentsSettled          = "payments.settled"
	TopicPaymentsReversed         = "payments.reversed"
)

// DLQSuffix is appended to a topic to form its dead-letter destination.
const DLQSuffix = ".dlq"

// DLQTopic returns the dead-letter topic for the given source topic.
func DLQTopic(topic string) string {
	return topic + DLQSuffix
}

// Service identities used as inbox consumer keys and metric labels.
const (
	ServiceOrchestrator = "orchestrator"
	ServiceRisk         = "risk"
	ServiceProvider     = "provider-adapter"
	ServiceLedger       = "ledger"
	ServiceNotification = "notification"
)

// Risk decisions carried in risk.approved / risk.denied payloads.
const (
	RiskDecisionApprove = "APPROVE"
	RiskDecisionDeny    = "DENY"
	RiskDecisionReview  = "REVIEW"
)

// Failure classifications carried in payments.failed payloads.
const (
	ClassificationDecline        = "DECLINE"
	ClassificationRetryExhausted = "RETRY_EXHAUSTED"
	ClassificationNonRetryable   = "NON_RETRYABLE"
	ClassificationRiskDenied     = "RISK_DENIED"
)

// Ledger entry directions.
const (
	DirectionDebit  = "DEBIT"
	DirectionCredit = "CREDIT"
)

// HTTP headers recognized at service boundaries.
const (
	HeaderAPIKey        = "x-api-key"
	HeaderCorrelationID = "x-correlation-id"
)
