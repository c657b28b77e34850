// Package orchestrator is the HTTP client the risk service uses to confirm a
// payment's current state before finalizing a manual review.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/constant"
)

// StatusClient reports the orchestrator's current view of a payment.
type StatusClient interface {
	PaymentStatus(ctx context.Context, paymentID, correlationID string) (string, error)
}

// Client implements StatusClient against the orchestrator's read API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a client for the given orchestrator base URL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) PaymentStatus(ctx context.Context, paymentID, correlationID string) (string, error) {
	url := fmt.Sprintf("%s/payments/%s", c.baseURL, paymentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set(constant.HeaderAPIKey, c.apiKey)
	req.Header.Set(constant.HeaderCorrelationID, correlationID)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.Transient(err, "querying orchestrator for %s", paymentID)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", apperr.NotFound("PAYMENT_NOT_FOUND", "payment %s not found at orchestrator", paymentID)
	case resp.StatusCode != http.StatusOK:
		return "", apperr.Transient(fmt.Errorf("orchestrator returned %d", resp.StatusCode), "querying orchestrator for %s", paymentID)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", apperr.Transient(err, "decoding orchestrator response for %s", paymentID)
	}
	return body.Status, nil
}
