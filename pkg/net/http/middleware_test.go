package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UmangBid/SagaPay/pkg/apperr"
	"github.com/UmangBid/SagaPay/pkg/constant"
)

func newApp() *fiber.App {
	return fiber.New(fiber.Config{DisableStartupMessage: true})
}

func TestWithCorrelationIDMintsWhenAbsent(t *testing.T) {
	app := newApp()
	app.Use(WithCorrelationID())
	var seen string
	app.Get("/", func(c *fiber.Ctx) error {
		seen = CorrelationID(c)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, resp.Header.Get(constant.HeaderCorrelationID))
}

func TestWithCorrelationIDPropagatesHeader(t *testing.T) {
	app := newApp()
	app.Use(WithCorrelationID())
	var seen string
	app.Get("/", func(c *fiber.Ctx) error {
		seen = CorrelationID(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(constant.HeaderCorrelationID, "corr-42")
	_, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "corr-42", seen)
}

func TestWithAPIKey(t *testing.T) {
	app := newApp()
	app.Get("/", WithAPIKey("secret"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(constant.HeaderAPIKey, "wrong")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(constant.HeaderAPIKey, "secret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestWithTracingPassesRequestsThrough(t *testing.T) {
	app := newApp()
	app.Use(WithCorrelationID())
	app.Use(WithTracing("test"))
	app.Get("/", func(c *fiber.Ctx) error {
		// The span context must reach the handler even with the no-op global
		// tracer installed.
		require.NotNil(t, c.UserContext())
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestErrorMapsKindsToStatuses(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperr.Validation("BAD", "bad"), fiber.StatusBadRequest},
		{apperr.Unauthorized("no"), fiber.StatusUnauthorized},
		{apperr.RateLimited("slow"), fiber.StatusTooManyRequests},
		{apperr.NotFound("MISSING", "gone"), fiber.StatusNotFound},
		{apperr.Conflict("RACED", "raced"), fiber.StatusConflict},
		{apperr.Duplicate("DUP", "done"), fiber.StatusConflict},
		{apperr.Transient(assert.AnError, "db down"), fiber.StatusInternalServerError},
		{assert.AnError, fiber.StatusInternalServerError},
	}

	for _, tc := range tests {
		app := newApp()
		app.Get("/", func(c *fiber.Ctx) error {
			return Error(c, tc.err)
		})
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.NotEmpty(t, payload["code"])
	}
}

func TestRateLimiterExhaustsBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewRateLimiter(client, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Allow(ctx, "cust-1"), "request %d should pass", i+1)
	}

	err := limiter.Allow(ctx, "cust-1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))

	// A different customer has their own bucket.
	assert.NoError(t, limiter.Allow(ctx, "cust-2"))
}

func TestRateLimiterFailsOpenWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	limiter := NewRateLimiter(client, 1)
	assert.NoError(t, limiter.Allow(context.Background(), "cust-1"))
}
