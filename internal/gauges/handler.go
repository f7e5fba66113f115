package gauges

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

// Handler wires HTTP endpoints for the gauge register.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers gauge routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/gauges", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleRegister)
		r.Get("/{id}", h.handleGet)
		r.Post("/{id}/issue", h.handleIssue)
		r.Post("/{id}/return", h.handleReturn)
		r.Post("/{id}/calibrate", h.handleCalibrate)
		r.Get("/{id}/history", h.handleHistory)
	})
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrGaugeNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, ErrNotIssuable), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidResult):
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", err.Error())
	default:
		h.logger.Error("gauges request failed", "error", err)
		httpx.RespondError(w, err)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", v)
}

type registerPayload struct {
	Category        string `json:"category" validate:"required"`
	Subtype         string `json:"subtype"`
	Mechanism       string `json:"mechanism"`
	MeasuringRange  string `json:"measuring_range"`
	LeastCount      string `json:"least_count"`
	Make            string `json:"make"`
	SerialNo        string `json:"serial_no"`
	Location        string `json:"location"`
	CalibrationFreq int    `json:"calibration_freq" validate:"gte=0"`
	LastCalibration string `json:"last_calibration"`
	Remarks         string `json:"remarks"`
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
	last, err := parseDate(payload.LastCalibration)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid date", "last_calibration must be YYYY-MM-DD")
		return
	}
	g, err := h.service.Register(r.Context(), Gauge{
		Category:        payload.Category,
		Subtype:         payload.Subtype,
		Mechanism:       payload.Mechanism,
		MeasuringRange:  payload.MeasuringRange,
		LeastCount:      payload.LeastCount,
		Make:            payload.Make,
		SerialNo:        payload.SerialNo,
		Location:        payload.Location,
		CalibrationFreq: payload.CalibrationFreq,
		LastCalibration: last,
		Remarks:         payload.Remarks,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, g)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	gauges, err := h.service.List(r.Context(), ListFilter{
		Category: q.Get("category"),
		Status:   Status(q.Get("status")),
		Search:   q.Get("q"),
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, gauges)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "gauge id must be numeric")
		return
	}
	g, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

type issuePayload struct {
	Operator  string `json:"operator" validate:"required"`
	Machine   string `json:"machine"`
	JobName   string `json:"job_name"`
	Shift     string `json:"shift"`
	Condition string `json:"condition"`
	Remarks   string `json:"remarks"`
	Date      string `json:"date"`
}

func (h *Handler) decodeIssue(w http.ResponseWriter, r *http.Request) (int64, IssueTxn, bool) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "gauge id must be numeric")
		return 0, IssueTxn{}, false
	}
	var payload issuePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return 0, IssueTxn{}, false
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return 0, IssueTxn{}, false
	}
	date, err := parseDate(payload.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid date", "date must be YYYY-MM-DD")
		return 0, IssueTxn{}, false
	}
	return id, IssueTxn{
		Operator:          payload.Operator,
		Machine:           payload.Machine,
		JobName:           payload.JobName,
		Shift:             payload.Shift,
		ConditionOnReturn: payload.Condition,
		Remarks:           payload.Remarks,
		TxnDate:           date,
	}, true
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	id, txn, ok := h.decodeIssue(w, r)
	if !ok {
		return
	}
	if err := h.service.Issue(r.Context(), id, txn); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "issued"})
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	id, txn, ok := h.decodeIssue(w, r)
	if !ok {
		return
	}
	if err := h.service.Return(r.Context(), id, txn); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "returned"})
}

type calibratePayload struct {
	Date          string `json:"date"`
	CalibratedBy  string `json:"calibrated_by" validate:"required"`
	Result        string `json:"result" validate:"required,oneof=PASS FAIL"`
	CertificateNo string `json:"certificate_no"`
	Remarks       string `json:"remarks"`
}

func (h *Handler) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "gauge id must be numeric")
		return
	}
	var payload calibratePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	date, err := parseDate(payload.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid date", "date must be YYYY-MM-DD")
		return
	}
	err = h.service.Calibrate(r.Context(), id, CalibrationTxn{
		CalibrationDate: date,
		CalibratedBy:    payload.CalibratedBy,
		Result:          payload.Result,
		CertificateNo:   payload.CertificateNo,
		Remarks:         payload.Remarks,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "calibration recorded"})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "gauge id must be numeric")
		return
	}
	issues, err := h.service.IssueHistory(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	calibrations, err := h.service.CalibrationHistory(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"issues":       issues,
		"calibrations": calibrations,
	})
}
