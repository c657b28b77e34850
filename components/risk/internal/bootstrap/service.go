package bootstrap

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/UmangBid/SagaPay/components/risk/internal/adapters/http/in"
	"github.com/UmangBid/SagaPay/components/risk/internal/adapters/orchestrator"
	"github.com/UmangBid/SagaPay/components/risk/internal/adapters/postgres/review"
	"github.com/UmangBid/SagaPay/components/risk/internal/adapters/redis"
	"github.com/UmangBid/SagaPay/components/risk/internal/services/command"
	"github.com/UmangBid/SagaPay/components/risk/internal/services/query"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/inbox"
	"github.com/UmangBid/SagaPay/pkg/mlog"
	"github.com/UmangBid/SagaPay/pkg/mpostgres"
	"github.com/UmangBid/SagaPay/pkg/mrabbitmq"
	"github.com/UmangBid/SagaPay/pkg/mredis"
	"github.com/UmangBid/SagaPay/pkg/outbox"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

// Run starts the risk service and blocks until shutdown.
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

	redisClient, err := mredis.Connect(ctx, cfg.RedisAddress)
	if err != nil {
		return err
	}
	defer redisClient.Close()

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

	outboxRepo := outbox.NewPostgresRepository(db, cfg.OutboxReclaim)

	cmd := &command.UseCase{
		ReviewRepo:   review.NewPostgresRepository(db),
		CounterRepo:  redis.NewVelocityRepository(redisClient, cfg.FailureTTL),
		OutboxRepo:   outboxRepo,
		InboxRepo:    inbox.NewPostgresRepository(db),
		Orchestrator: orchestrator.NewClient(cfg.OrchestratorURL, cfg.APIKey),
		Tx:           mpostgres.NewManager(db),
		Rules: command.Rules{
			ReviewAmountCents:       cfg.ReviewAmountCents,
			VelocityPerMinute:       cfg.VelocityPerMinute,
			VelocityPerHour:         cfg.VelocityPerHour,
			DenyFrequencyPerHour:    cfg.DenyFrequencyPerHour,
			FailedAttemptsThreshold: cfg.FailedAttemptsThreshold,
			FailureTTL:              cfg.FailureTTL,
		},
		Logger:  logger,
		Metrics: metrics,
	}
	qry := &query.UseCase{ReviewRepo: review.NewPostgresRepository(db)}

	publisher := outbox.NewPublisher(outboxRepo, producer, logger, metrics, outbox.PublisherOptions{
		Workers: cfg.OutboxWorkers,
	})
	go publisher.Run(ctx)

	consumer := broker.NewConsumer(constant.ServiceRisk, logger, metrics, mrabbitmq.ConsumerOptions{})
	subscriptions := map[string]mrabbitmq.Handler{
		constant.TopicPaymentsRequested: cmd.HandlePaymentRequested,
		constant.TopicPaymentsFailed:    cmd.HandleFailed,
	}
	for topic, handler := range subscriptions {
		go func(topic string, handler mrabbitmq.Handler) {
			if err := consumer.Subscribe(ctx, topic, handler); err != nil && ctx.Err() == nil {
				logger.Errorw("consumer stopped", "topic", topic, "error", err)
			}
		}(topic, handler)
	}

	app := in.NewRouter(in.NewReviewHandler(cmd, qry), cfg.APIKey, metrics)

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	logger.Infow("risk starting", "address", cfg.ServerAddress)
	return app.Listen(cfg.ServerAddress)
}
