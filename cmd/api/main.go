package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/farmer-dashboard/internal/api/http"
	"github.com/spec-kit/farmer-dashboard/internal/api/http/handlers"
	"github.com/spec-kit/farmer-dashboard/internal/auth"
	"github.com/spec-kit/farmer-dashboard/internal/config"
	"github.com/spec-kit/farmer-dashboard/internal/events"
	"github.com/spec-kit/farmer-dashboard/internal/observability"
	"github.com/spec-kit/farmer-dashboard/internal/persistence"
	"github.com/spec-kit/farmer-dashboard/internal/repository"
	"github.com/spec-kit/farmer-dashboard/internal/service"
	"github.com/spec-kit/farmer-dashboard/internal/worker"
)

const shutdownDrainTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLMinutes)
	if err != nil {
		logger.Fatal("invalid auth configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	audit := events.NewQueue(events.NewInMemoryDispatcher(), cfg.Audit.QueueSize, logger.Named("audit"))
	var stream *worker.RedisAuditSink
	if redis.Reachable() {
		stream = worker.NewRedisAuditSink(redis.Client(), cfg.Audit.Stream, cfg.Audit.StreamMaxLen)
	}
	worker.StartAuditWorker(audit, logger.Named("audit"), stream)

	gate, err := auth.NewGate(tokens, auth.GateOptions{
		CookieName: cfg.Auth.CookieName,
		Audit:      audit,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("invalid gate configuration", zap.Error(err))
	}

	profileService := service.NewProfileService(repository.NewProfileRepository(pg.Pool()))

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(handlers.HealthOptions{
			Service: cfg.App.Name,
			Version: cfg.App.Version,
			Dependencies: map[string]handlers.Pinger{
				"postgres": pg,
				"redis":    redis,
			},
			Metrics: metrics,
		}),
		Auth:    handlers.NewAuthHandler(cfg.Auth.CookieName),
		Profile: handlers.NewProfileHandler(profileService),
		Gate:    gate,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
	drainCtx, drainCancel := context.WithTimeout(context.Background(), shutdownDrainTimeout)
	defer drainCancel()
	if err := audit.Close(drainCtx); err != nil {
		logger.Warn("audit queue not drained", zap.Int64("dropped", audit.Dropped()), zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
