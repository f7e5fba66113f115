package complaints

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

// Handler serves the complaint register. Updates and timeline entries are
// gated behind the dual-control PIN pair.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	pins     *shared.PinGuard
}

func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, pins *shared.PinGuard) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, pins: pins}
}

// MountRoutes registers complaint routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/complaints", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleRegister)
		r.Get("/{id}", h.handleDetail)
		r.Put("/{id}", h.handleUpdate)
		r.Post("/{id}/logs", h.handleAddLog)
	})
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrComplaintNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, ErrInvalidVocab), errors.Is(err, ErrClosureDate), errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, httpx.ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		h.logger.Error("complaint request failed", "error", err)
		httpx.RespondError(w, err)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ListFilter{
		Status:   q.Get("status"),
		Severity: q.Get("severity"),
	}
	if v := q.Get("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid parameter", "customer_id must be numeric")
			return
		}
		f.CustomerID = id
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid parameter", "from must be YYYY-MM-DD")
			return
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid parameter", "to must be YYYY-MM-DD")
			return
		}
		f.To = t
	}
	list, err := h.service.Complaints(r.Context(), f)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

type registerPayload struct {
	ComplaintDate    string `json:"complaint_date"`
	CustomerID       int64  `json:"customer_id" validate:"required"`
	CustomerRefNo    string `json:"customer_ref_no"`
	ItemCode         string `json:"item_code" validate:"required"`
	BatchNo          string `json:"batch_no"`
	QtyAffected      int    `json:"qty_affected" validate:"min=0"`
	IssueCategory    string `json:"issue_category" validate:"required"`
	IssueDescription string `json:"issue_description" validate:"required"`
	Severity         string `json:"severity"`
	MachineCode      string `json:"machine_code"`
	JobNo            string `json:"job_no"`
	ShiftDate        string `json:"shift_date"`
	Shift            string `json:"shift"`
	AssignedTo       string `json:"assigned_to"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	c := Complaint{
		CustomerID:       payload.CustomerID,
		CustomerRefNo:    payload.CustomerRefNo,
		ItemCode:         payload.ItemCode,
		BatchNo:          payload.BatchNo,
		QtyAffected:      payload.QtyAffected,
		IssueCategory:    payload.IssueCategory,
		IssueDescription: payload.IssueDescription,
		Severity:         payload.Severity,
		MachineCode:      payload.MachineCode,
		JobNo:            payload.JobNo,
		ShiftDate:        payload.ShiftDate,
		Shift:            payload.Shift,
		AssignedTo:       payload.AssignedTo,
	}
	if payload.ComplaintDate != "" {
		t, err := time.Parse("2006-01-02", payload.ComplaintDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid date", "complaint_date must be YYYY-MM-DD")
			return
		}
		c.ComplaintDate = t
	}
	created, err := h.service.Register(r.Context(), c)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "complaint id must be numeric")
		return
	}
	c, logs, err := h.service.Detail(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"complaint": c, "logs": logs})
}

type updatePayload struct {
	Status            string `json:"status" validate:"required"`
	Severity          string `json:"severity" validate:"required"`
	AssignedTo        string `json:"assigned_to"`
	ContainmentAction string `json:"containment_action"`
	RootCause5Why     string `json:"root_cause_5why"`
	CorrectiveAction  string `json:"corrective_action"`
	PreventiveAction  string `json:"preventive_action"`
	ClosureDate       string `json:"closure_date"`
	ClosureRemarks    string `json:"closure_remarks"`
	By                string `json:"by"`
	Pin1              string `json:"pin1" validate:"required"`
	Pin2              string `json:"pin2" validate:"required"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "complaint id must be numeric")
		return
	}
	var payload updatePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	if err := h.pins.CheckDual(payload.Pin1, payload.Pin2); err != nil {
		h.respondDomainError(w, err)
		return
	}
	if payload.ClosureDate != "" {
		if _, err := time.Parse("2006-01-02", payload.ClosureDate); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid date", "closure_date must be YYYY-MM-DD")
			return
		}
	}
	updated, err := h.service.UpdateComplaint(r.Context(), id, Update{
		Status:            payload.Status,
		Severity:          payload.Severity,
		AssignedTo:        payload.AssignedTo,
		ContainmentAction: payload.ContainmentAction,
		RootCause5Why:     payload.RootCause5Why,
		CorrectiveAction:  payload.CorrectiveAction,
		PreventiveAction:  payload.PreventiveAction,
		ClosureDate:       payload.ClosureDate,
		ClosureRemarks:    payload.ClosureRemarks,
		By:                payload.By,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

type logPayload struct {
	ActionType string `json:"action_type" validate:"required"`
	Notes      string `json:"notes" validate:"required"`
	By         string `json:"by"`
	Pin1       string `json:"pin1" validate:"required"`
	Pin2       string `json:"pin2" validate:"required"`
}

func (h *Handler) handleAddLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "complaint id must be numeric")
		return
	}
	var payload logPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	if err := h.pins.CheckDual(payload.Pin1, payload.Pin2); err != nil {
		h.respondDomainError(w, err)
		return
	}
	created, err := h.service.AddLog(r.Context(), id, payload.ActionType, payload.Notes, payload.By)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}
