package bootstrap

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/http/in"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/attempt"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/payment"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/postgres/timeline"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/adapters/redis"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/services/command"
	"github.com/UmangBid/SagaPay/components/orchestrator/internal/services/query"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/inbox"
	"github.com/UmangBid/SagaPay/pkg/mlog"
	"github.com/UmangBid/SagaPay/pkg/mpostgres"
	"github.com/UmangBid/SagaPay/pkg/mrabbitmq"
	"github.com/UmangBid/SagaPay/pkg/mredis"
	libhttp "github.com/UmangBid/SagaPay/pkg/net/http"
	"github.com/UmangBid/SagaPay/pkg/outbox"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

// Run starts the orchestrator and blocks until shutdown.
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
		PaymentRepo:  payment.NewPostgresRepository(db),
		TimelineRepo: timeline.NewPostgresRepository(db),
		AttemptRepo:  attempt.NewPostgresRepository(db),
		OutboxRepo:   outboxRepo,
		InboxRepo:    inbox.NewPostgresRepository(db),
		CacheRepo:    redis.NewCacheRepository(redisClient, cfg.IdempotencyTTL),
		Tx:           mpostgres.NewManager(db),
		Logger:       logger,
		Metrics:      metrics,
	}
	qry := &query.UseCase{
		PaymentRepo:  payment.NewPostgresRepository(db),
		TimelineRepo: timeline.NewPostgresRepository(db),
	}

	publisher := outbox.NewPublisher(outboxRepo, producer, logger, metrics, outbox.PublisherOptions{
		Workers: cfg.OutboxWorkers,
	})
	go publisher.Run(ctx)

	consumer := broker.NewConsumer(constant.ServiceOrchestrator, logger, metrics, mrabbitmq.ConsumerOptions{})
	subscriptions := map[string]mrabbitmq.Handler{
		constant.TopicRiskApproved:       cmd.HandleRiskApproved,
		constant.TopicRiskDenied:         cmd.HandleRiskDenied,
		constant.TopicPaymentsAuthorized: cmd.HandleAuthorized,
		constant.TopicPaymentsFailed:     cmd.HandleFailed,
		constant.TopicPaymentsSettled:    cmd.HandleSettled,
	}
	for topic, handler := range subscriptions {
		go func(topic string, handler mrabbitmq.Handler) {
			if err := consumer.Subscribe(ctx, topic, handler); err != nil && ctx.Err() == nil {
				logger.Errorw("consumer stopped", "topic", topic, "error", err)
			}
		}(topic, handler)
	}

	limiter := libhttp.NewRateLimiter(redisClient, cfg.RateLimitPerMinute)
	app := in.NewRouter(in.NewPaymentHandler(cmd, qry, limiter), cfg.APIKey, metrics)

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	logger.Infow("orchestrator starting", "address", cfg.ServerAddress)
	return app.Listen(cfg.ServerAddress)
}
