package report

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eltaworks/workshop-suite/internal/complaints"
	"github.com/eltaworks/workshop-suite/internal/maintenance"
	"github.com/eltaworks/workshop-suite/internal/material"
	"github.com/eltaworks/workshop-suite/internal/platform/httpx"
)

// Handler serves PDF exports rendered through Gotenberg.
type Handler struct {
	client      *Client
	logger      *slog.Logger
	materials   *material.Service
	complaints  *complaints.Service
	maintenance *maintenance.Service
}

func NewHandler(client *Client, logger *slog.Logger, materials *material.Service, comp *complaints.Service, maint *maintenance.Service) *Handler {
	return &Handler{client: client, logger: logger, materials: materials, complaints: comp, maintenance: maint}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/ping", h.handlePing)
		r.Get("/material-inventory", h.handleMaterialInventory)
		r.Get("/complaints/{id}", h.handleComplaint)
		r.Get("/pm-schedule", h.handlePMSchedule)
	})
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, complaints.ErrComplaintNotFound),
		errors.Is(err, material.ErrChallanNotFound),
		errors.Is(err, maintenance.ErrMachineNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not found", err.Error())
	default:
		h.logger.Error("report request failed", "error", err)
		httpx.RespondError(w, err)
	}
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", "error", err)
		httpx.Problem(w, http.StatusServiceUnavailable, "Renderer unavailable", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) handleMaterialInventory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := material.ListFilter{
		ItemCode: q.Get("item_code"),
		Status:   q.Get("status"),
	}
	if v := q.Get("customer_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.CustomerID = id
		}
	}
	if v := q.Get("dispatch_from"); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			filter.DispatchFrom = d
		}
	}
	if v := q.Get("dispatch_to"); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			filter.DispatchTo = d
		}
	}

	challans, err := h.materials.Challans(r.Context(), filter)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	html, err := MaterialInventoryHTML(challans, time.Now())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.renderPDF(w, r, html, "material-inventory.pdf")
}

func (h *Handler) handleComplaint(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "complaint id must be numeric")
		return
	}
	c, logs, err := h.complaints.Detail(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	html, err := ComplaintHTML(c, logs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.renderPDF(w, r, html, c.ComplaintNo+".pdf")
}

func (h *Handler) handlePMSchedule(w http.ResponseWriter, r *http.Request) {
	entries, err := h.maintenance.Schedule(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	html, err := PMScheduleHTML(entries, time.Now())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.renderPDF(w, r, html, "pm-schedule.pdf")
}

func (h *Handler) renderPDF(w http.ResponseWriter, r *http.Request, html, filename string) {
	pdf, err := h.client.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("pdf render failed", "error", err, "report", filename)
		httpx.Problem(w, http.StatusBadGateway, "Render failed", err.Error())
		return
	}
	httpx.PDF(w, filename, pdf)
}
