package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/eltaworks/workshop-suite/internal/gauges"
	"github.com/eltaworks/workshop-suite/internal/maintenance"
	"github.com/eltaworks/workshop-suite/internal/platform/cache"
	"github.com/eltaworks/workshop-suite/internal/toolcrib"
)

// GaugeRefreshJob re-derives gauge calibration statuses.
type GaugeRefreshJob struct {
	service *gauges.Service
	logger  *slog.Logger
}

func NewGaugeRefreshJob(service *gauges.Service, logger *slog.Logger) *GaugeRefreshJob {
	return &GaugeRefreshJob{service: service, logger: logger}
}

// Handle processes TaskGaugeStatusRefresh tasks.
func (j *GaugeRefreshJob) Handle(ctx context.Context, _ *asynq.Task) error {
	changed, err := j.service.RefreshStatuses(ctx)
	if err != nil {
		j.logger.Error("gauge status refresh", slog.Any("error", err))
		return err
	}
	j.logger.Info("gauge status refresh complete", slog.Int("changed", changed))
	return nil
}

// PMRefreshJob re-derives preventive maintenance due statuses.
type PMRefreshJob struct {
	service *maintenance.Service
	logger  *slog.Logger
}

func NewPMRefreshJob(service *maintenance.Service, logger *slog.Logger) *PMRefreshJob {
	return &PMRefreshJob{service: service, logger: logger}
}

// Handle processes TaskPMStatusRefresh tasks.
func (j *PMRefreshJob) Handle(ctx context.Context, _ *asynq.Task) error {
	changed, err := j.service.RefreshStatuses(ctx)
	if err != nil {
		j.logger.Error("pm status refresh", slog.Any("error", err))
		return err
	}
	j.logger.Info("pm status refresh complete", slog.Int("changed", changed))
	return nil
}

// ReorderScanJob snapshots reorder alerts into Redis for the dashboard.
type ReorderScanJob struct {
	service *toolcrib.Service
	store   *cache.Store
	logger  *slog.Logger
}

func NewReorderScanJob(service *toolcrib.Service, store *cache.Store, logger *slog.Logger) *ReorderScanJob {
	return &ReorderScanJob{service: service, store: store, logger: logger}
}

// Handle processes TaskReorderScan tasks.
func (j *ReorderScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	alerts, err := j.service.ReorderAlerts(ctx)
	if err != nil {
		j.logger.Error("reorder scan", slog.Any("error", err))
		return err
	}
	if err := j.store.SetJSON(ctx, ReorderSummaryKey, alerts); err != nil {
		j.logger.Error("reorder summary cache", slog.Any("error", err))
		return err
	}
	j.logger.Info("reorder scan complete", slog.Int("alerts", len(alerts)))
	return nil
}
