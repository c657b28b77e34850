package bootstrap

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/UmangBid/SagaPay/components/provider/internal/adapters/gateway"
	"github.com/UmangBid/SagaPay/components/provider/internal/adapters/postgres/attempt"
	"github.com/UmangBid/SagaPay/components/provider/internal/services/command"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/inbox"
	"github.com/UmangBid/SagaPay/pkg/mlog"
	"github.com/UmangBid/SagaPay/pkg/mpostgres"
	"github.com/UmangBid/SagaPay/pkg/mrabbitmq"
	"github.com/UmangBid/SagaPay/pkg/outbox"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

// Run starts the provider adapter and blocks until shutdown.
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

	producer, err := broker.NewProducer()
	if err != nil {
		return err
	}
	defer producer.Close()

	var processor gateway.Gateway
	if cfg.SimulatorSeed != 0 {
		processor = gateway.NewSeededSimulator(uint64(cfg.SimulatorSeed))
	} else {
		processor = gateway.NewSimulator()
	}

	outboxRepo := outbox.NewPostgresRepository(db, cfg.OutboxReclaim)

	cmd := &command.UseCase{
		Gateway:       gateway.NewBreakerGateway(processor),
		AttemptRepo:   attempt.NewPostgresRepository(db),
		OutboxRepo:    outboxRepo,
		InboxRepo:     inbox.NewPostgresRepository(db),
		Tx:            mpostgres.NewManager(db),
		MaxAttempts:   cfg.MaxAttempts,
		RetrySchedule: cfg.RetrySchedule,
		Logger:        logger,
		Metrics:       metrics,
	}

	publisher := outbox.NewPublisher(outboxRepo, producer, logger, metrics, outbox.PublisherOptions{
		Workers: cfg.OutboxWorkers,
	})
	go publisher.Run(ctx)

	consumer := broker.NewConsumer(constant.ServiceProvider, logger, metrics, mrabbitmq.ConsumerOptions{})
	go func() {
		if err := consumer.Subscribe(ctx, constant.TopicProviderAuthorizeRequest, cmd.HandleAuthorizeRequested); err != nil && ctx.Err() == nil {
			logger.Errorw("consumer stopped", "topic", constant.TopicProviderAuthorizeRequest, "error", err)
		}
	}()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	logger.Infow("provider adapter starting", "address", cfg.ServerAddress)
	return app.Listen(cfg.ServerAddress)
}
