package bootstrap

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/UmangBid/SagaPay/components/notification/internal/adapters/postgres/notification"
	"github.com/UmangBid/SagaPay/components/notification/internal/services/command"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/inbox"
	"github.com/UmangBid/SagaPay/pkg/mlog"
	"github.com/UmangBid/SagaPay/pkg/mpostgres"
	"github.com/UmangBid/SagaPay/pkg/mrabbitmq"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

// Run starts the notification sink and blocks until shutdown.
func Run() error {
	cfg := LoadConfig()

	logger, err := mlog.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.NewMetrics(cfg.ServiceName)

	db, err := mpostgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	broker, err := mrabbitmq.Connect(cfg.RabbitURL)
	if err != nil {
		return err
	}
	defer broker.Close()

	cmd := &command.UseCase{
		NotificationRepo: notification.NewPostgresRepository(db),
		InboxRepo:        inbox.NewPostgresRepository(db),
		Tx:               mpostgres.NewManager(db),
		Logger:           logger,
		Metrics:          metrics,
	}

	consumer := broker.NewConsumer(constant.ServiceNotification, logger, metrics, mrabbitmq.ConsumerOptions{})
	topics := []string{
		constant.TopicPaymentsSettled,
		constant.TopicPaymentsFailed,
		constant.TopicPaymentsReversed,
	}
	for _, topic := range topics {
		go func(topic string) {
			if err := consumer.Subscribe(ctx, topic, cmd.HandleTerminal); err != nil && ctx.Err() == nil {
				logger.Errorw("consumer stopped", "topic", topic, "error", err)
			}
		}(topic)
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	logger.Infow("notification starting", "address", cfg.ServerAddress)
	return app.Listen(cfg.ServerAddress)
}
