package in

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/UmangBid/SagaPay/pkg/constant"
	libhttp "github.com/UmangBid/SagaPay/pkg/net/http"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

// NewRouter assembles the ledger fiber app.
func NewRouter(handler *ReconciliationHandler, metrics *telemetry.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(libhttp.WithCorrelationID())
	app.Use(libhttp.WithTracing(constant.ServiceLedger))
	app.Use(libhttp.WithMetrics(metrics))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	app.Get("/reconciliation", handler.Sweep)
	app.Get("/reconciliation/:transaction_id", handler.Reconcile)

	return app
}
