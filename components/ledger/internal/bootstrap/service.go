package bootstrap

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/UmangBid/SagaPay/components/ledger/internal/adapters/http/in"
	"github.com/UmangBid/SagaPay/components/ledger/internal/adapters/postgres/account"
	"github.com/UmangBid/SagaPay/components/ledger/internal/adapters/postgres/entry"
	"github.com/UmangBid/SagaPay/components/ledger/internal/services/command"
	"github.com/UmangBid/SagaPay/components/ledger/internal/services/query"
	"github.com/UmangBid/SagaPay/pkg/constant"
	"github.com/UmangBid/SagaPay/pkg/inbox"
	"github.com/UmangBid/SagaPay/pkg/mlog"
	"github.com/UmangBid/SagaPay/pkg/mpostgres"
	"github.com/UmangBid/SagaPay/pkg/mrabbitmq"
	"github.com/UmangBid/SagaPay/pkg/outbox"
	"github.com/UmangBid/SagaPay/pkg/telemetry"
)

// Run starts the ledger and blocks until shutdown.
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

	outboxRepo := outbox.NewPostgresRepository(db, cfg.OutboxReclaim)

	cmd := &command.UseCase{
		AccountRepo: account.NewPostgresRepository(db),
		EntryRepo:   entry.NewPostgresRepository(db),
		OutboxRepo:  outboxRepo,
		InboxRepo:   inbox.NewPostgresRepository(db),
		Tx:          mpostgres.NewManager(db),
		Chart: command.Chart{
			CustomerAccountID: cfg.CustomerAccountID,
			MerchantAccountID: cfg.MerchantAccountID,
		},
		Logger:  logger,
		Metrics: metrics,
	}
	if err := cmd.EnsureChart(ctx); err != nil {
		return err
	}

	qry := &query.UseCase{EntryRepo: entry.NewPostgresRepository(db)}

	publisher := outbox.NewPublisher(outboxRepo, producer, logger, metrics, outbox.PublisherOptions{
		Workers: cfg.OutboxWorkers,
	})
	go publisher.Run(ctx)

	consumer := broker.NewConsumer(constant.ServiceLedger, logger, metrics, mrabbitmq.ConsumerOptions{})
	go func() {
		if err := consumer.Subscribe(ctx, constant.TopicPaymentsCaptured, cmd.HandleCaptured); err != nil && ctx.Err() == nil {
			logger.Errorw("consumer stopped", "topic", constant.TopicPaymentsCaptured, "error", err)
		}
	}()

	app := in.NewRouter(in.NewReconciliationHandler(qry), metrics)

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	logger.Infow("ledger starting", "address", cfg.ServerAddress)
	return app.Listen(cfg.ServerAddress)
}
