package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/taxdesk/taxdesk/cmd/taxdesk/cli"
	"github.com/taxdesk/taxdesk/internal/app"
	"github.com/taxdesk/taxdesk/internal/observability"
	"github.com/taxdesk/taxdesk/internal/periods"
	"github.com/taxdesk/taxdesk/internal/platform/cache"
	"github.com/taxdesk/taxdesk/internal/platform/db"
	"github.com/taxdesk/taxdesk/internal/posting"
	postinghttp "github.com/taxdesk/taxdesk/internal/posting/http"
	"github.com/taxdesk/taxdesk/internal/setup"
	setuphttp "github.com/taxdesk/taxdesk/internal/setup/http"
	"github.com/taxdesk/taxdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(serve).ExecuteContext(ctx); err != nil {
		slog.Default().Error("taxdesk", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	setupCache := cache.NewCache(redisClient, cfg.SetupCacheTTL).WithLogger(logger)

	setupRepo := setup.NewRepository(pool)
	setupService := setup.NewService(setupRepo, setupRepo, setupCache, logger)

	postingRepo := posting.NewRepository(pool)
	orchestrator := posting.NewOrchestrator(
		postingRepo,
		posting.NewRedisSessionStore(redisClient, cfg.PostingSessionTTL),
		posting.NewCacheInvalidator(setupCache),
		observability.NewPostingMetrics(metrics.Registerer()),
		logger,
		posting.Config{
			DefaultCap:        cfg.PostingBatchCap,
			AssignConcurrency: cfg.PostingAssignConcurrency,
		},
	)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer inspector.Close()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SetupHandler:   setuphttp.NewHandler(logger, setupService),
		PostingHandler: postinghttp.NewHandler(logger, posting.NewService(postingRepo, periods.NewRepository(pool), nil), orchestrator),
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
