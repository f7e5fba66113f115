package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/eltaworks/workshop-suite/internal/complaints"
	"github.com/eltaworks/workshop-suite/internal/gauges"
	"github.com/eltaworks/workshop-suite/internal/maintenance"
	"github.com/eltaworks/workshop-suite/internal/masterdata"
	"github.com/eltaworks/workshop-suite/internal/material"
	"github.com/eltaworks/workshop-suite/internal/production"
	"github.com/eltaworks/workshop-suite/internal/toolcrib"
	"github.com/eltaworks/workshop-suite/jobs"
	"github.com/eltaworks/workshop-suite/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	ToolCribHandler    *toolcrib.Handler
	GaugeHandler       *gauges.Handler
	MaterialHandler    *material.Handler
	ProductionHandler  *production.Handler
	MaintenanceHandler *maintenance.Handler
	ComplaintHandler   *complaints.Handler
	MasterDataHandler  *masterdata.Handler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with workshop defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	params.ToolCribHandler.MountRoutes(r)
	params.GaugeHandler.MountRoutes(r)
	params.MaterialHandler.MountRoutes(r)
	params.ProductionHandler.MountRoutes(r)
	params.MaintenanceHandler.MountRoutes(r)
	params.ComplaintHandler.MountRoutes(r)
	params.MasterDataHandler.MountRoutes(r)

	r.Get("/dashboard/reorder-alerts", params.ToolCribHandler.HandleReorderAlerts)

	if params.ReportHandler != nil {
		params.ReportHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
