package maintenance

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eltaworks/workshop-suite/internal/platform/httpx"
	"github.com/eltaworks/workshop-suite/internal/shared"
)

// Handler wires HTTP endpoints for machines, PM and breakdowns. Mutations
// that change the maintenance record need the admin PIN.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	pins     *shared.PinGuard
}

func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, pins *shared.PinGuard) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, pins: pins}
}

// MountRoutes registers maintenance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/machines", func(r chi.Router) {
		r.Get("/", h.handleListMachines)
		r.Post("/", h.handleAddMachine)
		r.Put("/{code}", h.handleEditMachine)
		r.Get("/{code}/history", h.handleMachineHistory)
	})
	r.Route("/maintenance", func(r chi.Router) {
		r.Get("/schedule", h.handleSchedule)
		r.Post("/plans", h.handleAddPlan)
		r.Post("/plans/{id}/done", h.handleMarkDone)
		r.Get("/plans/{id}/history", h.handlePlanHistory)
	})
	r.Route("/breakdowns", func(r chi.Router) {
		r.Get("/", h.handleListBreakdowns)
		r.Post("/", h.handleReportBreakdown)
		r.Post("/{id}/close", h.handleCloseBreakdown)
	})
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMachineNotFound), errors.Is(err, ErrPlanNotFound), errors.Is(err, ErrBreakdownNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, ErrDuplicateMachine):
		httpx.Problem(w, http.StatusBadRequest, "Duplicate machine", err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidTime), errors.Is(err, ErrAlreadyClosed):
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, httpx.ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		h.logger.Error("maintenance request failed", "error", err)
		httpx.RespondError(w, err)
	}
}

// ---------------- machines ----------------

type machinePayload struct {
	MachineCode string `json:"machine_code" validate:"required"`
	MachineName string `json:"machine_name" validate:"required"`
	MachineType string `json:"machine_type" validate:"required"`
	Controller  string `json:"controller"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	InstallDate string `json:"install_date"`
	Notes       string `json:"notes"`
	Pin         string `json:"pin" validate:"required"`
}

func (h *Handler) handleAddMachine(w http.ResponseWriter, r *http.Request) {
	var payload machinePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	if err := h.pins.CheckAdmin(payload.Pin); err != nil {
		h.respondDomainError(w, err)
		return
	}
	var install time.Time
	if payload.InstallDate != "" {
		var err error
		if install, err = time.Parse("2006-01-02", payload.InstallDate); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid date", "install_date must be YYYY-MM-DD")
			return
		}
	}
	m, err := h.service.AddMachine(r.Context(), Machine{
		MachineCode: payload.MachineCode,
		MachineName: payload.MachineName,
		MachineType: payload.MachineType,
		Controller:  payload.Controller,
		Location:    payload.Location,
		Status:      payload.Status,
		InstallDate: install,
		Notes:       payload.Notes,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) handleEditMachine(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var payload machinePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.pins.CheckAdmin(payload.Pin); err != nil {
		h.respondDomainError(w, err)
		return
	}
	err := h.service.EditMachine(r.Context(), Machine{
		MachineCode: code,
		MachineName: payload.MachineName,
		MachineType: payload.MachineType,
		Controller:  payload.Controller,
		Location:    payload.Location,
		Status:      payload.Status,
		Notes:       payload.Notes,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) handleListMachines(w http.ResponseWriter, r *http.Request) {
	machines, err := h.service.Machines(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, machines)
}

func (h *Handler) handleMachineHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := h.service.MachineHistory(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, hist)
}

// ---------------- preventive maintenance ----------------

type planPayload struct {
	MachineCode    string `json:"machine_code" validate:"required"`
	PMName         string `json:"pm_name" validate:"required"`
	FrequencyDays  int    `json:"frequency_days" validate:"required,gt=0"`
	Responsibility string `json:"responsibility"`
	Checklist      string `json:"checklist"`
}

func (h *Handler) handleAddPlan(w http.ResponseWriter, r *http.Request) {
	var payload planPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	id, err := h.service.AddPlan(r.Context(), PMPlan{
		MachineCode:    payload.MachineCode,
		PMName:         payload.PMName,
		FrequencyDays:  payload.FrequencyDays,
		Responsibility: payload.Responsibility,
		Checklist:      payload.Checklist,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Schedule(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

type markDonePayload struct {
	DoneDate string `json:"done_date"`
	DoneBy   string `json:"done_by" validate:"required"`
	Remarks  string `json:"remarks"`
	Pin      string `json:"pin" validate:"required"`
}

func (h *Handler) handleMarkDone(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "plan id must be numeric")
		return
	}
	var payload markDonePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	if err := h.pins.CheckAdmin(payload.Pin); err != nil {
		h.respondDomainError(w, err)
		return
	}
	var doneDate time.Time
	if payload.DoneDate != "" {
		if doneDate, err = time.Parse("2006-01-02", payload.DoneDate); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid date", "done_date must be YYYY-MM-DD")
			return
		}
	}
	if err := h.service.MarkDone(r.Context(), id, doneDate, payload.DoneBy, payload.Remarks); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "done"})
}

func (h *Handler) handlePlanHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "plan id must be numeric")
		return
	}
	entries, err := h.service.PlanHistory(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

// ---------------- breakdowns ----------------

type breakdownPayload struct {
	MachineCode   string `json:"machine_code" validate:"required"`
	BreakdownDate string `json:"breakdown_date"`
	StartTime     string `json:"start_time" validate:"required"`
	Problem       string `json:"problem" validate:"required"`
	HandledBy     string `json:"handled_by"`
}

func (h *Handler) handleReportBreakdown(w http.ResponseWriter, r *http.Request) {
	var payload breakdownPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	var date time.Time
	if payload.BreakdownDate != "" {
		var err error
		if date, err = time.Parse("2006-01-02", payload.BreakdownDate); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid date", "breakdown_date must be YYYY-MM-DD")
			return
		}
	}
	id, err := h.service.ReportBreakdown(r.Context(), Breakdown{
		MachineCode:   payload.MachineCode,
		BreakdownDate: date,
		StartTime:     payload.StartTime,
		Problem:       payload.Problem,
		HandledBy:     payload.HandledBy,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type closeBreakdownPayload struct {
	EndTime     string `json:"end_time" validate:"required"`
	RootCause   string `json:"root_cause"`
	ActionTaken string `json:"action_taken"`
	Pin         string `json:"pin" validate:"required"`
}

func (h *Handler) handleCloseBreakdown(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "breakdown id must be numeric")
		return
	}
	var payload closeBreakdownPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	if err := h.pins.CheckAdmin(payload.Pin); err != nil {
		h.respondDomainError(w, err)
		return
	}
	if err := h.service.CloseBreakdown(r.Context(), id, payload.EndTime, payload.RootCause, payload.ActionTaken); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (h *Handler) handleListBreakdowns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := BreakdownFilter{
		MachineCode: q.Get("machine"),
		Status:      q.Get("status"),
	}
	if v := q.Get("from"); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = d
		}
	}
	if v := q.Get("to"); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			filter.To = d
		}
	}
	breakdowns, counts, err := h.service.Breakdowns(r.Context(), filter)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"breakdowns": breakdowns, "counts": counts})
}
