package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/taxdesk/taxdesk/internal/app"
	"github.com/taxdesk/taxdesk/internal/observability"
	"github.com/taxdesk/taxdesk/internal/platform/cache"
	"github.com/taxdesk/taxdesk/internal/platform/db"
	"github.com/taxdesk/taxdesk/internal/posting"
	"github.com/taxdesk/taxdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	client, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer client.Close()

	postingRepo := posting.NewRepository(pool)
	orchestrator := posting.NewOrchestrator(
		postingRepo,
		posting.NewRedisSessionStore(redisClient, cfg.PostingSessionTTL),
		posting.NewCacheInvalidator(cache.NewCache(redisClient, cfg.SetupCacheTTL).WithLogger(logger)),
		observability.NewPostingMetrics(nil),
		logger,
		posting.Config{
			DefaultCap:        cfg.PostingBatchCap,
			AssignConcurrency: cfg.PostingAssignConcurrency,
		},
	)
	autoPost := jobs.NewAutoPostJob(orchestrator, postingRepo, client, logger, nil)

	sweepTask, err := jobs.NewAutoPostSweepTask(jobs.PeriodPrevious, cfg.PostingBatchCap)
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAutoPostBatch, Handler: autoPost.HandleBatch},
			{Type: jobs.TaskAutoPostSweep, Handler: autoPost.HandleSweep},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.AutoPostCron, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
