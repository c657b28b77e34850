// Package events defines the canonical envelope carried on every broker
// topic plus the per-topic payload schemas.
//
// The envelope's event_id is the idempotency anchor end to end: it is the
// outbox primary key in the producer and the inbox key in every consumer.
// aggregate_id always equals the payment_id so routing stays per payment.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/UmangBid/SagaPay/pkg/apperr"
)

// Envelope is the canonical event shape published to every topic.
type Envelope struct {
	EventID       string          `json:"event_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id"`
	AggregateID   string          `json:"aggregate_id"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload"`
}

// New builds an envelope with a fresh event id and timestamp. The payload is
// marshaled immediately so an unserializable payload fails at emit time, not
// at publish time.
func New(eventType, aggregateID, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, apperr.Terminal("PAYLOAD_ENCODE", err, "encoding %s payload", eventType)
	}
	return Envelope{
		EventID:       uuid.New().String(),
		OccurredAt:    time.Now().UTC(),
		CorrelationID: correlationID,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       raw,
	}, nil
}

// Encode serializes the envelope for broker transport.
func (e Envelope) Encode() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, apperr.Terminal("ENVELOPE_ENCODE", err, "encoding envelope %s", e.EventID)
	}
	return body, nil
}

// Decode parses a raw broker message. A message that cannot be parsed or
// lacks its idempotency anchor is classified terminal so the consumer
// dead-letters it instead of retrying forever.
func Decode(body []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return Envelope{}, apperr.Terminal("ENVELOPE_DECODE", err, "malformed event envelope")
	}
	if e.EventID == "" || e.Type == "" {
		return Envelope{}, apperr.Terminal("ENVELOPE_DECODE", nil, "envelope missing event_id or type")
	}
	return e, nil
}

// DecodePayload unmarshals the payload into the topic's schema struct.
func (e Envelope) DecodePayload(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return apperr.Terminal("PAYLOAD_DECODE", err, "malformed %s payload", e.Type)
	}
	return nil
}

// PaymentRequested is the payload of payments.requested.
type PaymentRequested struct {
	CustomerID  string `json:"customer_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// RiskResult is the payload of risk.approved and risk.denied.
type RiskResult struct {
	Decision   string `json:"decision"`
	Reason     string `json:"reason"`
	CustomerID string `json:"customer_id"`
	ReviewedBy string `json:"reviewed_by,omitempty"`
}

// AuthorizeRequested is the payload of provider.authorize.requested.
type AuthorizeRequested struct {
	CustomerID  string `json:"customer_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// Authorized is the payload of payments.authorized.
type Authorized struct {
	AttemptNumber int   `json:"attempt_number"`
	LatencyMS     int64 `json:"latency_ms"`
}

// Failed is the payload of payments.failed. CustomerID lets the risk service
// attribute the failure to the customer's history.
type Failed struct {
	CustomerID     string `json:"customer_id"`
	Classification string `json:"classification"`
	AttemptNumber  int    `json:"attempt_number"`
	Reason         string `json:"reason"`
}

// Captured is the payload of payments.captured.
type Captured struct {
	CustomerID  string `json:"customer_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// Settled is the payload of payments.settled.
type Settled struct {
	TransactionID string `json:"transaction_id"`
	AmountCents   int64  `json:"amount_cents"`
}

// Reversed is the payload of payments.reversed.
type Reversed struct {
	Reason        string `json:"reason"`
	SourceEventID string `json:"source_event_id"`
}

// DeadLetter is the payload published to <topic>.dlq. It carries the original
// envelope so the replay tool can publish it back to ReplayTopic unchanged;
// the preserved event_id lets downstream inboxes suppress already-processed
// work.
type DeadLetter struct {
	Reason      string   `json:"reason"`
	ErrorType   string   `json:"error_type"`
	Retryable   bool     `json:"retryable"`
	Source      string   `json:"source"`
	ReplayTopic string   `json:"replay_topic,omitempty"`
	FailedEvent Envelope `json:"failed_event"`
}
