package in

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

func TestPaymentRoutesRequireAPIKey(t *testing.T) {
	app := NewRouter(&PaymentHandler{}, "secret", telemetry.NewMetrics("test"))

	tests := []struct {
		method string
		path   string
	}{
		{"POST", "/payments"},
		{"GET", "/payments/pay-1"},
	}
	for _, tc := range tests {
		resp, err := app.Test(httptest.NewRequest(tc.method, tc.path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode,
			"%s %s must be rejected without the key", tc.method, tc.path)
	}
}

func TestHealthStaysOpen(t *testing.T) {
	app := NewRouter(&PaymentHandler{}, "secret", telemetry.NewMetrics("test"))

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
