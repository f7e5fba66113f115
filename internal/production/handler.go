package production

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eltaworks/workshop-suite/internal/platform/httpx"
)

// Handler wires HTTP endpoints for shift production logs.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers shift routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/shifts", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
	})
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrShiftNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusBadRequest, "Duplicate shift", err.Error())
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", err.Error())
	default:
		h.logger.Error("production request failed", "error", err)
		httpx.RespondError(w, err)
	}
}

type shiftPayload struct {
	ShiftDate     string `json:"shift_date" validate:"required"`
	Shift         string `json:"shift" validate:"required"`
	ShiftIncharge string `json:"shift_incharge" validate:"required"`
	Remarks       string `json:"remarks"`
	Production    []struct {
		ItemCode string `json:"item_code"`
		Machine  string `json:"machine"`
		Operator string `json:"operator"`
		OkQty    int    `json:"ok_qty"`
		RejQty   int    `json:"rej_qty"`
		Remarks  string `json:"remarks"`
	} `json:"production"`
	Setups []struct {
		Machine    string `json:"machine"`
		JobName    string `json:"job_name"`
		ChangeTime string `json:"change_time"`
		StartTime  string `json:"start_time"`
	} `json:"setups"`
	Attendance []struct {
		Operator string `json:"operator"`
		Status   string `json:"status"`
	} `json:"attendance"`
	Downtime []struct {
		Machine string `json:"machine"`
		Reason  string `json:"reason"`
		Minutes int    `json:"minutes"`
	} `json:"downtime"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload shiftPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", payload.ShiftDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid date", "shift_date must be YYYY-MM-DD")
		return
	}

	log := ShiftLog{Header: ShiftHeader{
		ShiftDate:     date,
		Shift:         payload.Shift,
		ShiftIncharge: payload.ShiftIncharge,
		Remarks:       payload.Remarks,
	}}
	for _, p := range payload.Production {
		log.Production = append(log.Production, ProductionRow{
			ItemCode: p.ItemCode, Machine: p.Machine, Operator: p.Operator,
			OkQty: p.OkQty, RejQty: p.RejQty, Remarks: p.Remarks,
		})
	}
	for _, s := range payload.Setups {
		log.Setups = append(log.Setups, SetupRow{
			Machine: s.Machine, JobName: s.JobName, ChangeTime: s.ChangeTime, StartTime: s.StartTime,
		})
	}
	for _, a := range payload.Attendance {
		log.Attendance = append(log.Attendance, AttendanceRow{Operator: a.Operator, Status: a.Status})
	}
	for _, d := range payload.Downtime {
		log.Downtime = append(log.Downtime, DowntimeRow{Machine: d.Machine, Reason: d.Reason, Minutes: d.Minutes})
	}

	id, err := h.service.CreateShift(r.Context(), log)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Shift: q.Get("shift")}
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
	shifts, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shifts)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "shift id must be numeric")
		return
	}
	log, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, log)
}
