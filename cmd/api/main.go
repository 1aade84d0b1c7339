package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kursadbilgin/infobip-dispatch/internal/config"
	"github.com/kursadbilgin/infobip-dispatch/internal/delivery"
	"github.com/kursadbilgin/infobip-dispatch/internal/handler"
	"github.com/kursadbilgin/infobip-dispatch/internal/infobip"
	"github.com/kursadbilgin/infobip-dispatch/internal/infra/postgresql"
	"github.com/kursadbilgin/infobip-dispatch/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/infobip-dispatch/internal/infra/redis"
	"github.com/kursadbilgin/infobip-dispatch/internal/observability"
	"github.com/kursadbilgin/infobip-dispatch/internal/queue"
	"github.com/kursadbilgin/infobip-dispatch/internal/repository"
	"github.com/kursadbilgin/infobip-dispatch/internal/service"
	"github.com/kursadbilgin/infobip-dispatch/internal/template"
	"github.com/kursadbilgin/infobip-dispatch/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("infobip-dispatch stopped with error", zap.Error(err))
	}
	logger.Info("infobip-dispatch stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics := observability.NewMetrics()

	db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN, logger)
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}
	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimits())
	if err != nil {
		return err
	}
	dedupe, err := infraredis.NewReportDeduplicator(rdb, cfg.ReportDedupeTTL)
	if err != nil {
		return err
	}

	broker, err := queue.NewRabbitMQ(ctx, cfg.RabbitMQURL, logger)
	if err != nil {
		return fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	defer broker.Close()

	publisher := queue.NewRabbitMQPublisher(broker)
	consumer := queue.NewRabbitMQConsumer(broker, cfg.WorkerConcurrency, logger)

	dispatchers, err := newDispatchers(cfg, logger, limiter, metrics)
	if err != nil {
		return err
	}

	records := repository.NewGormDispatchRepo(db)
	reports := repository.NewGormReportRepo(db)

	dispatchService, err := service.NewDispatchService(
		dispatchers,
		records,
		reports,
		publisher,
		template.NewMustacheEngine(logger),
		logger,
	)
	if err != nil {
		return err
	}
	dispatchService.SetMetrics(metrics)

	deliveryService, err := service.NewDeliveryService(
		delivery.NewInfobipRouter(logger),
		dedupe,
		records,
		reports,
		publisher,
		logger,
	)
	if err != nil {
		return err
	}
	deliveryService.SetMetrics(metrics)

	workerService, err := service.NewWorkerService(consumer, dispatchService, cfg.WorkerConcurrency, logger)
	if err != nil {
		return err
	}
	workerService.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		AppName:               "infobip-dispatch",
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app,
		handler.PostgresCheck(sqlDB),
		handler.RedisCheck(rdb),
		handler.RabbitMQCheck(broker),
	)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if err := handler.RegisterDispatchRoutes(app, dispatchService); err != nil {
		return err
	}
	if err := handler.RegisterDeliveryRoutes(app, deliveryService); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("infobip-dispatch api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})
	g.Go(func() error {
		<-gctx.Done()
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	g.Go(func() error {
		return workerService.Start(gctx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func newDispatchers(
	cfg *config.Config,
	logger *zap.Logger,
	limiter *infraredis.RedisRateLimiter,
	metrics *observability.Metrics,
) (service.Dispatchers, error) {
	client, err := infobip.NewClient(cfg.Infobip())
	if err != nil {
		return service.Dispatchers{}, fmt.Errorf("infobip client initialization failed: %w", err)
	}

	opts := []infobip.Option{
		infobip.WithLogger(logger),
		infobip.WithRateLimiter(limiter),
		infobip.WithConcurrency(cfg.DispatchConcurrency),
		infobip.WithNotifyURL(cfg.InfobipNotifyURL),
		infobip.WithMetrics(metrics),
	}

	sms, err := infobip.NewSMSDispatcher(client, opts...)
	if err != nil {
		return service.Dispatchers{}, err
	}
	email, err := infobip.NewEmailDispatcher(client, opts...)
	if err != nil {
		return service.Dispatchers{}, err
	}
	voice, err := infobip.NewVoiceDispatcher(client, opts...)
	if err != nil {
		return service.Dispatchers{}, err
	}

	return service.Dispatchers{SMS: sms, Email: email, Voice: voice}, nil
}
