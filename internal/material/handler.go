package material

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

// Handler wires HTTP endpoints for the material tracker. Destructive
// operations are gated behind the dual-control PIN pair.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	pins     *shared.PinGuard
}

func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, pins *shared.PinGuard) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, pins: pins}
}

// MountRoutes registers material routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/materials", func(r chi.Router) {
		r.Get("/challans", h.handleListChallans)
		r.Get("/challans/{id}", h.handleChallanDetail)
		r.Post("/inward", h.handleInward)
		r.Put("/inward/{id}", h.handleEditInward)
		r.Delete("/inward/{id}", h.handleDeleteInward)
		r.Post("/dispatch", h.handleDispatch)
		r.Put("/dispatch/{id}", h.handleEditDispatch)
		r.Delete("/dispatch/{id}", h.handleDeleteDispatch)
		r.Get("/dispatch", h.handleDispatchesByNo)
	})
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrChallanNotFound), errors.Is(err, ErrLineNotFound), errors.Is(err, ErrDispatchNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, ErrExceedsAvailable), errors.Is(err, ErrEmptyDispatch), errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, ErrLineInUse):
		httpx.Problem(w, http.StatusConflict, "Line in use", err.Error())
	case errors.Is(err, httpx.ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		h.logger.Error("material request failed", "error", err)
		httpx.RespondError(w, err)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

type inwardPayload struct {
	CustomerID  int64  `json:"customer_id" validate:"required"`
	ChallanNo   string `json:"challan_no" validate:"required"`
	ChallanDate string `json:"challan_date" validate:"required"`
	Remarks     string `json:"remarks"`
	Rows        []struct {
		ItemCode string `json:"item_code"`
		Process  string `json:"process"`
		Qty      int    `json:"qty"`
		BoxTray  string `json:"box_tray"`
		Remarks  string `json:"remarks"`
	} `json:"rows" validate:"required,min=1"`
}

func (h *Handler) handleInward(w http.ResponseWriter, r *http.Request) {
	var payload inwardPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	if _, err := time.Parse("2006-01-02", payload.ChallanDate); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid date", "challan_date must be YYYY-MM-DD")
		return
	}
	rows := make([]InwardRow, 0, len(payload.Rows))
	for _, row := range payload.Rows {
		rows = append(rows, InwardRow{
			ItemCode: row.ItemCode,
			Process:  row.Process,
			Qty:      row.Qty,
			BoxTray:  row.BoxTray,
			Remarks:  row.Remarks,
		})
	}
	challan, lines, err := h.service.RecordInward(r.Context(), payload.CustomerID, payload.ChallanNo, payload.ChallanDate, payload.Remarks, rows)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"challan": challan, "lines": lines})
}

type dispatchPayload struct {
	InwardID          int64  `json:"inward_id" validate:"required"`
	DispatchChallanNo string `json:"dispatch_challan_no" validate:"required"`
	DispatchDate      string `json:"dispatch_date" validate:"required"`
	OkQty             int    `json:"ok_qty" validate:"gte=0"`
	RejQty            int    `json:"rej_qty" validate:"gte=0"`
	CdQty             int    `json:"cd_qty" validate:"gte=0"`
	NdQty             int    `json:"nd_qty" validate:"gte=0"`
	NdPwQty           int    `json:"nd_pw_qty" validate:"gte=0"`
	Remarks           string `json:"remarks"`
}

func (p dispatchPayload) dispatch() (Dispatch, error) {
	date, err := time.Parse("2006-01-02", p.DispatchDate)
	if err != nil {
		return Dispatch{}, err
	}
	return Dispatch{
		InwardID:          p.InwardID,
		DispatchChallanNo: p.DispatchChallanNo,
		DispatchDate:      date,
		OkQty:             p.OkQty,
		RejQty:            p.RejQty,
		CdQty:             p.CdQty,
		NdQty:             p.NdQty,
		NdPwQty:           p.NdPwQty,
		Remarks:           p.Remarks,
	}, nil
}

func (h *Handler) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var payload dispatchPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	d, err := payload.dispatch()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid date", "dispatch_date must be YYYY-MM-DD")
		return
	}
	created, err := h.service.RecordDispatch(r.Context(), d)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

type editDispatchPayload struct {
	dispatchPayload
	Pin1 string `json:"pin1" validate:"required"`
	Pin2 string `json:"pin2" validate:"required"`
}

func (h *Handler) handleEditDispatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "dispatch id must be numeric")
		return
	}
	var payload editDispatchPayload
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
	d, err := payload.dispatch()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid date", "dispatch_date must be YYYY-MM-DD")
		return
	}
	d.ID = id
	if err := h.service.EditDispatch(r.Context(), d); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type pinPayload struct {
	Pin1 string `json:"pin1" validate:"required"`
	Pin2 string `json:"pin2" validate:"required"`
}

func (h *Handler) handleDeleteDispatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "dispatch id must be numeric")
		return
	}
	var payload pinPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.pins.CheckDual(payload.Pin1, payload.Pin2); err != nil {
		h.respondDomainError(w, err)
		return
	}
	if err := h.service.DeleteDispatch(r.Context(), id); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type editInwardPayload struct {
	InwardQty int    `json:"inward_qty" validate:"required,gt=0"`
	BoxTray   string `json:"box_tray"`
	Remarks   string `json:"remarks"`
	Pin1      string `json:"pin1" validate:"required"`
	Pin2      string `json:"pin2" validate:"required"`
}

func (h *Handler) handleEditInward(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "line id must be numeric")
		return
	}
	var payload editInwardPayload
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
	if err := h.service.EditInward(r.Context(), id, payload.InwardQty, payload.BoxTray, payload.Remarks); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) handleDeleteInward(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "line id must be numeric")
		return
	}
	var payload pinPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.pins.CheckDual(payload.Pin1, payload.Pin2); err != nil {
		h.respondDomainError(w, err)
		return
	}
	if err := h.service.DeleteInward(r.Context(), id); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleListChallans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
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
	challans, err := h.service.Challans(r.Context(), filter)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, challans)
}

func (h *Handler) handleChallanDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "challan id must be numeric")
		return
	}
	challan, lines, dispatches, err := h.service.ChallanDetail(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"challan":    challan,
		"lines":      lines,
		"dispatches": dispatches,
	})
}

func (h *Handler) handleDispatchesByNo(w http.ResponseWriter, r *http.Request) {
	no := r.URL.Query().Get("challan_no")
	if no == "" {
		httpx.Problem(w, http.StatusBadRequest, "Missing parameter", "challan_no query parameter required")
		return
	}
	dispatches, err := h.service.DispatchesByChallanNo(r.Context(), no)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dispatches)
}
