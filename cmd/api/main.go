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
	"github.com/tradepulse/push-pipeline/internal/config"
	"github.com/tradepulse/push-pipeline/internal/handler"
	"github.com/tradepulse/push-pipeline/internal/infra/postgresql"
	"github.com/tradepulse/push-pipeline/internal/infra/postgresql/migrations"
	infraredis "github.com/tradepulse/push-pipeline/internal/infra/redis"
	"github.com/tradepulse/push-pipeline/internal/observability"
	"github.com/tradepulse/push-pipeline/internal/provider"
	"github.com/tradepulse/push-pipeline/internal/repository"
	"github.com/tradepulse/push-pipeline/internal/service"
	"github.com/tradepulse/push-pipeline/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	pushProvider, err := provider.NewExpoPushProvider(cfg.PushAPIURL, cfg.PushAccessToken)
	if err != nil {
		logger.Fatal("push provider initialization failed", zap.Error(err))
	}

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	unreadCache, err := infraredis.NewUnreadCache(rdb)
	if err != nil {
		logger.Fatal("unread cache initialization failed", zap.Error(err))
	}

	intentRepo := repository.NewGormIntentRepo(db)
	endpointRepo := repository.NewGormEndpointRepo(db)
	preferenceRepo := repository.NewGormPreferenceRepo(db)
	followRepo := repository.NewGormFollowRepo(db)
	recordRepo := repository.NewGormDeliveryRecordRepo(db)

	resolver, err := service.NewResolver(followRepo, preferenceRepo, endpointRepo, logger)
	if err != nil {
		logger.Fatal("resolver initialization failed", zap.Error(err))
	}

	filter, err := service.NewEligibilityFilter(preferenceRepo, logger)
	if err != nil {
		logger.Fatal("eligibility filter initialization failed", zap.Error(err))
	}
	filter.SetMetrics(metrics)

	dispatcher, err := service.NewDispatcher(pushProvider, limiter, cfg.DispatchConcurrency, logger)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}
	dispatcher.SetMetrics(metrics)

	reconciler, err := service.NewReconciler(recordRepo, endpointRepo, unreadCache, logger)
	if err != nil {
		logger.Fatal("reconciler initialization failed", zap.Error(err))
	}
	reconciler.SetMetrics(metrics)

	drainer, err := service.NewDrainer(intentRepo, endpointRepo, resolver, filter, dispatcher, reconciler, logger)
	if err != nil {
		logger.Fatal("drainer initialization failed", zap.Error(err))
	}
	drainer.SetMetrics(metrics)

	intentService, err := service.NewIntentService(intentRepo, logger)
	if err != nil {
		logger.Fatal("intent service initialization failed", zap.Error(err))
	}

	inboxService, err := service.NewInboxService(recordRepo, unreadCache, logger)
	if err != nil {
		logger.Fatal("inbox service initialization failed", zap.Error(err))
	}

	scheduler, err := service.NewDrainScheduler(
		drainer,
		time.Duration(cfg.DrainIntervalSec)*time.Second,
		cfg.DrainBatchSize,
		logger,
	)
	if err != nil {
		logger.Fatal("drain scheduler initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterIntentRoutes(app, intentService, drainer); err != nil {
		logger.Fatal("intent route registration failed", zap.Error(err))
	}
	if err := handler.RegisterInboxRoutes(app, inboxService); err != nil {
		logger.Fatal("inbox route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("push-pipeline api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		return scheduler.Start(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", zap.Error(err))
	}
	logger.Info("push-pipeline api stopped")
}
