package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/eltaworks/workshop-suite/internal/app"
	"github.com/eltaworks/workshop-suite/internal/complaints"
	"github.com/eltaworks/workshop-suite/internal/gauges"
	"github.com/eltaworks/workshop-suite/internal/maintenance"
	"github.com/eltaworks/workshop-suite/internal/masterdata"
	"github.com/eltaworks/workshop-suite/internal/material"
	"github.com/eltaworks/workshop-suite/internal/platform/cache"
	"github.com/eltaworks/workshop-suite/internal/platform/db"
	"github.com/eltaworks/workshop-suite/internal/production"
	"github.com/eltaworks/workshop-suite/internal/shared"
	"github.com/eltaworks/workshop-suite/internal/toolcrib"
	"github.com/eltaworks/workshop-suite/jobs"
	"github.com/eltaworks/workshop-suite/report"
)

func main() {
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

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis connect", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		_ = redisClient.Close()
	}()
	store := cache.NewStore(redisClient, cfg.CacheTTL)

	validate := validator.New()
	pins := shared.NewPinGuard(cfg.AdminPin, cfg.AdminPin1, cfg.AdminPin2)
	audit := shared.NewAuditRecorder(pool)

	toolcribService := toolcrib.NewService(toolcrib.NewRepository(pool), audit)
	toolcribHandler := toolcrib.NewHandler(logger, toolcribService, validate, store)

	gaugeService := gauges.NewService(gauges.NewRepository(pool), audit)
	gaugeHandler := gauges.NewHandler(logger, gaugeService, validate)

	materialService := material.NewService(material.NewRepository(pool), audit)
	materialHandler := material.NewHandler(logger, materialService, validate, pins)

	productionService := production.NewService(production.NewRepository(pool), audit)
	productionHandler := production.NewHandler(logger, productionService, validate)

	maintenanceService := maintenance.NewService(maintenance.NewRepository(pool), audit)
	maintenanceHandler := maintenance.NewHandler(logger, maintenanceService, validate, pins)

	complaintService := complaints.NewService(complaints.NewRepository(pool), audit)
	complaintHandler := complaints.NewHandler(logger, complaintService, validate, pins)

	masterdataService := masterdata.NewService(masterdata.NewRepository(pool), cfg.UploadDir, cfg.UploadMaxBytes)
	masterdataHandler := masterdata.NewHandler(logger, masterdataService, validate, pins)

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, logger, materialService, complaintService, maintenanceService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		_ = jobClient.Close()
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, pins, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		ToolCribHandler:    toolcribHandler,
		GaugeHandler:       gaugeHandler,
		MaterialHandler:    materialHandler,
		ProductionHandler:  productionHandler,
		MaintenanceHandler: maintenanceHandler,
		ComplaintHandler:   complaintHandler,
		MasterDataHandler:  masterdataHandler,
		ReportHandler:      reportHandler,
		JobHandler:         jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
