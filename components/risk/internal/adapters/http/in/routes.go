package in

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/UmangBid/SagaPay/pkg/constant"
	libhttp "github.com/UmangBid/SagaPay/pkg/net/http"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

// NewRouter assembles the risk fiber app. The whole /ops surface is API-key
// gated.
func NewRouter(handler *ReviewHandler, apiKey string, metrics *telemetry.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(libhttp.WithCorrelationID())
	app.Use(libhttp.WithTracing(constant.ServiceRisk))
	app.Use(libhttp.WithMetrics(metrics))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	ops := app.Group("/ops", libhttp.WithAPIKey(apiKey))
	ops.Get("/reviews", handler.ListReviews)
	ops.Post("/reviews/:payment_id/approve", handler.Approve)
	ops.Post("/reviews/:payment_id/deny", handler.Deny)

	return app
}
