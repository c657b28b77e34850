package in

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/UmangBid/SagaPay/pkg/constant"
	libhttp "github.com/UmangBid/SagaPay/pkg/net/http"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

// NewRouter assembles the orchestrator fiber app. Both payment routes sit
// behind the API key; only health and metrics are open.
func NewRouter(handler *PaymentHandler, apiKey string, metrics *telemetry.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(libhttp.WithCorrelationID())
	app.Use(libhttp.WithTracing(constant.ServiceOrchestrator))
	app.Use(libhttp.WithMetrics(metrics))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	app.Post("/payments", libhttp.WithAPIKey(apiKey), handler.CreatePayment)
	app.Get("/payments/:payment_id", libhttp.WithAPIKey(apiKey), handler.GetPayment)

	return app
}
