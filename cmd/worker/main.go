package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/eltaworks/workshop-suite/internal/app"
	"github.com/eltaworks/workshop-suite/internal/gauges"
	"github.com/eltaworks/workshop-suite/internal/maintenance"
	"github.com/eltaworks/workshop-suite/internal/platform/cache"
	"github.com/eltaworks/workshop-suite/internal/platform/db"
	"github.com/eltaworks/workshop-suite/internal/toolcrib"
	"github.com/eltaworks/workshop-suite/jobs"
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

	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("redis connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		_ = redisClient.Close()
	}()
	store := cache.NewStore(redisClient, cfg.CacheTTL)

	gaugeService := gauges.NewService(gauges.NewRepository(pool), nil)
	maintenanceService := maintenance.NewService(maintenance.NewRepository(pool), nil)
	toolcribService := toolcrib.NewService(toolcrib.NewRepository(pool), nil)

	gaugeJob := jobs.NewGaugeRefreshJob(gaugeService, logger)
	pmJob := jobs.NewPMRefreshJob(maintenanceService, logger)
	reorderJob := jobs.NewReorderScanJob(toolcribService, store, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskGaugeStatusRefresh, Handler: gaugeJob.Handle},
			{Type: jobs.TaskPMStatusRefresh, Handler: pmJob.Handle},
			{Type: jobs.TaskReorderScan, Handler: reorderJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: jobs.NewGaugeStatusRefreshTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: jobs.NewPMStatusRefreshTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 * * * *", Task: jobs.NewReorderScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
