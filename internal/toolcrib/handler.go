package toolcrib

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eltaworks/workshop-suite/internal/platform/cache"
	"github.com/eltaworks/workshop-suite/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the tool crib module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	alerts   *cache.Store
}

// NewHandler constructs the crib handler. alerts may be nil; the reorder
// endpoint then always computes live counts.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, alerts *cache.Store) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, alerts: alerts}
}

// MountRoutes registers crib routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/tools", func(r chi.Router) {
		r.Get("/", h.handleListTools)
		r.Post("/", h.handleAddTool)
		r.Get("/history", h.handleToolHistory)
		r.Post("/{id}/issue", h.handleIssueTool)
		r.Post("/{id}/return", h.handleReturnTool)
		r.Post("/{id}/regrind", h.handleRegrindTool)
	})
	r.Route("/holders", func(r chi.Router) {
		r.Get("/", h.handleListHolders)
		r.Post("/", h.handleAddHolder)
		r.Get("/history", h.handleHolderHistory)
		r.Post("/{id}/issue", h.handleIssueHolder)
		r.Post("/{id}/return", h.handleReturnHolder)
	})
	r.Route("/inserts", func(r chi.Router) {
		r.Get("/", h.handleListInserts)
		r.Post("/", h.handleAddInsert)
		r.Get("/history", h.handleInsertHistory)
		r.Post("/{id}/issue", h.handleIssueInsert)
		r.Post("/{id}/scrap", h.handleScrapInsert)
		r.Post("/{id}/edge-use", h.handleEdgeUse)
	})
	r.Route("/collets", func(r chi.Router) {
		r.Get("/", h.handleListCollets)
		r.Post("/", h.handleAddCollet)
		r.Get("/history", h.handleColletHistory)
		r.Post("/{id}/issue", h.handleIssueCollet)
		r.Post("/{id}/return", h.handleReturnCollet)
	})
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusBadRequest, "Insufficient stock", err.Error())
	case errors.Is(err, ErrReturnExceedsIssued):
		httpx.Problem(w, http.StatusBadRequest, "Return exceeds issued quantity", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidCondition):
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, ErrItemNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not found", err.Error())
	default:
		h.logger.Error("toolcrib request failed", "error", err)
		httpx.RespondError(w, err)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

type movePayload struct {
	Qty       int    `json:"qty" validate:"required,gt=0"`
	Operator  string `json:"operator" validate:"required"`
	Machine   string `json:"machine"`
	Shift     string `json:"shift"`
	JobName   string `json:"job_name"`
	Condition string `json:"condition"`
	Remarks   string `json:"remarks"`
	Date      string `json:"date"`
}

func (p movePayload) moveContext() (MoveContext, error) {
	mc := MoveContext{
		Operator: p.Operator,
		Machine:  p.Machine,
		Shift:    p.Shift,
		JobName:  p.JobName,
		Remarks:  p.Remarks,
	}
	if p.Date != "" {
		d, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return MoveContext{}, err
		}
		mc.Date = d
	}
	return mc, nil
}

func (h *Handler) decodeMove(w http.ResponseWriter, r *http.Request) (int64, movePayload, MoveContext, bool) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "item id must be numeric")
		return 0, movePayload{}, MoveContext{}, false
	}
	var payload movePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return 0, movePayload{}, MoveContext{}, false
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return 0, movePayload{}, MoveContext{}, false
	}
	mc, err := payload.moveContext()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid date", "date must be YYYY-MM-DD")
		return 0, movePayload{}, MoveContext{}, false
	}
	return id, payload, mc, true
}

func historyFilter(r *http.Request) HistoryFilter {
	q := r.URL.Query()
	var filter HistoryFilter
	if v := q.Get("item_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.ItemID = id
		}
	}
	if v := q.Get("action"); v != "" {
		filter.Action = Action(v)
	}
	if v := q.Get("from"); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = d
		}
	}
	if v := q.Get("to"); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			// include the whole closing day
			filter.To = d.Add(24*time.Hour - time.Second)
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	return filter
}

// ---------------- tools ----------------

type toolPayload struct {
	ToolType        string  `json:"tool_type" validate:"required"`
	ToolSubtype     string  `json:"tool_subtype"`
	CuttingDiameter float64 `json:"cutting_diameter"`
	CuttingLength   float64 `json:"cutting_length"`
	OverallLength   float64 `json:"overall_length"`
	ShankType       string  `json:"shank_type"`
	ShankDiameter   float64 `json:"shank_diameter"`
	Material        string  `json:"material"`
	Location        string  `json:"location"`
	Remarks         string  `json:"remarks"`
	Qty             int     `json:"qty" validate:"required,gt=0"`
	ReorderLevel    int     `json:"reorder_level" validate:"gte=0"`
}

func (h *Handler) handleAddTool(w http.ResponseWriter, r *http.Request) {
	var payload toolPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	tool, err := h.service.AddTool(r.Context(), Tool{
		ToolType:        payload.ToolType,
		ToolSubtype:     payload.ToolSubtype,
		CuttingDiameter: payload.CuttingDiameter,
		CuttingLength:   payload.CuttingLength,
		OverallLength:   payload.OverallLength,
		ShankType:       payload.ShankType,
		ShankDiameter:   payload.ShankDiameter,
		Material:        payload.Material,
		Location:        payload.Location,
		Remarks:         payload.Remarks,
		TotalQty:        payload.Qty,
		ReorderLevel:    payload.ReorderLevel,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tool)
}

func (h *Handler) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := h.service.Tools(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tools)
}

func (h *Handler) handleToolHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ToolHistory(r.Context(), historyFilter(r))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handleIssueTool(w http.ResponseWriter, r *http.Request) {
	id, payload, mc, ok := h.decodeMove(w, r)
	if !ok {
		return
	}
	if err := h.service.IssueTool(r.Context(), id, payload.Qty, mc); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "issued"})
}

func (h *Handler) handleReturnTool(w http.ResponseWriter, r *http.Request) {
	id, payload, mc, ok := h.decodeMove(w, r)
	if !ok {
		return
	}
	if err := h.service.ReturnTool(r.Context(), id, payload.Qty, Condition(payload.Condition), mc); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "returned"})
}

func (h *Handler) handleRegrindTool(w http.ResponseWriter, r *http.Request) {
	id, payload, mc, ok := h.decodeMove(w, r)
	if !ok {
		return
	}
	if err := h.service.RegrindTool(r.Context(), id, payload.Qty, mc); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "regrind recorded"})
}

// ---------------- holders ----------------

type holderPayload struct {
	HolderType   string  `json:"holder_type" validate:"required"`
	Interface    string  `json:"interface"`
	Size         string  `json:"size"`
	Projection   float64 `json:"projection"`
	Location     string  `json:"location"`
	Remarks      string  `json:"remarks"`
	Qty          int     `json:"qty" validate:"required,gt=0"`
	ReorderLevel int     `json:"reorder_level" validate:"gte=0"`
}

func (h *Handler) handleAddHolder(w http.ResponseWriter, r *http.Request) {
	var payload holderPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	holder, err := h.service.AddHolder(r.Context(), Holder{
		HolderType:   payload.HolderType,
		Interface:    payload.Interface,
		Size:         payload.Size,
		Projection:   payload.Projection,
		Location:     payload.Location,
		Remarks:      payload.Remarks,
		TotalQty:     payload.Qty,
		ReorderLevel: payload.ReorderLevel,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, holder)
}

func (h *Handler) handleListHolders(w http.ResponseWriter, r *http.Request) {
	holders, err := h.service.Holders(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, holders)
}

func (h *Handler) handleHolderHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.HolderHistory(r.Context(), historyFilter(r))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handleIssueHolder(w http.ResponseWriter, r *http.Request) {
	id, payload, mc, ok := h.decodeMove(w, r)
	if !ok {
		return
	}
	if err := h.service.IssueHolder(r.Context(), id, payload.Qty, mc); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "issued"})
}

func (h *Handler) handleReturnHolder(w http.ResponseWriter, r *http.Request) {
	id, payload, mc, ok := h.decodeMove(w, r)
	if !ok {
		return
	}
	if err := h.service.ReturnHolder(r.Context(), id, payload.Qty, mc); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "returned"})
}

// ---------------- inserts ----------------

type insertPayload struct {
	InsertType   string `json:"insert_type" validate:"required"`
	Size         string `json:"size"`
	Grade        string `json:"grade"`
	Edges        int    `json:"edges" validate:"gte=0"`
	Qty          int    `json:"qty" validate:"required,gt=0"`
	ReorderLevel int    `json:"reorder_level" validate:"gte=0"`
	Remarks      string `json:"remarks"`
}

func (h *Handler) handleAddInsert(w http.ResponseWriter, r *http.Request) {
	var payload insertPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	ins, err := h.service.AddInsert(r.Context(), Insert{
		InsertType:   payload.InsertType,
		Size:         payload.Size,
		Grade:        payload.Grade,
		Edges:        payload.Edges,
		TotalQty:     payload.Qty,
		ReorderLevel: payload.ReorderLevel,
		Remarks:      payload.Remarks,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ins)
}

func (h *Handler) handleListInserts(w http.ResponseWriter, r *http.Request) {
	inserts, err := h.service.Inserts(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inserts)
}

func (h *Handler) handleInsertHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.InsertHistory(r.Context(), historyFilter(r))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handleIssueInsert(w http.ResponseWriter, r *http.Request) {
	id, payload, mc, ok := h.decodeMove(w, r)
	if !ok {
		return
	}
	if err := h.service.IssueInsert(r.Context(), id, payload.Qty, mc); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "issued"})
}

func (h *Handler) handleScrapInsert(w http.ResponseWriter, r *http.Request) {
	id, payload, mc, ok := h.decodeMove(w, r)
	if !ok {
		return
	}
	if err := h.service.ScrapInsert(r.Context(), id, payload.Qty, mc); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "scrapped"})
}

type edgeUsePayload struct {
	Edges    int    `json:"edges" validate:"required,gt=0"`
	Operator string `json:"operator" validate:"required"`
	Machine  string `json:"machine"`
	Shift    string `json:"shift"`
	JobName  string `json:"job_name"`
	Date     string `json:"date"`
}

func (h *Handler) handleEdgeUse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "item id must be numeric")
		return
	}
	var payload edgeUsePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	mc := MoveContext{Operator: payload.Operator, Machine: payload.Machine, Shift: payload.Shift, JobName: payload.JobName}
	if payload.Date != "" {
		d, derr := time.Parse("2006-01-02", payload.Date)
		if derr != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid date", "date must be YYYY-MM-DD")
			return
		}
		mc.Date = d
	}
	if err := h.service.RecordEdgeUse(r.Context(), id, payload.Edges, mc); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "edge use recorded"})
}

// ---------------- collets ----------------

type colletPayload struct {
	ColletType   string `json:"collet_type" validate:"required"`
	Interface    string `json:"interface"`
	SizeRange    string `json:"size_range"`
	Location     string `json:"location"`
	Qty          int    `json:"qty" validate:"required,gt=0"`
	ReorderLevel int    `json:"reorder_level" validate:"gte=0"`
	Remarks      string `json:"remarks"`
}

func (h *Handler) handleAddCollet(w http.ResponseWriter, r *http.Request) {
	var payload colletPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	collet, err := h.service.AddCollet(r.Context(), Collet{
		ColletType:   payload.ColletType,
		Interface:    payload.Interface,
		SizeRange:    payload.SizeRange,
		Location:     payload.Location,
		TotalQty:     payload.Qty,
		ReorderLevel: payload.ReorderLevel,
		Remarks:      payload.Remarks,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, collet)
}

func (h *Handler) handleListCollets(w http.ResponseWriter, r *http.Request) {
	collets, err := h.service.Collets(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, collets)
}

func (h *Handler) handleColletHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ColletHistory(r.Context(), historyFilter(r))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handleIssueCollet(w http.ResponseWriter, r *http.Request) {
	id, payload, mc, ok := h.decodeMove(w, r)
	if !ok {
		return
	}
	if err := h.service.IssueCollet(r.Context(), id, payload.Qty, mc); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "issued"})
}

func (h *Handler) handleReturnCollet(w http.ResponseWriter, r *http.Request) {
	id, payload, mc, ok := h.decodeMove(w, r)
	if !ok {
		return
	}
	if err := h.service.ReturnCollet(r.Context(), id, payload.Qty, mc); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "returned"})
}

// HandleReorderAlerts serves the dashboard counter. The worker caches the
// summary in Redis; cache misses fall back to a live query.
func (h *Handler) HandleReorderAlerts(w http.ResponseWriter, r *http.Request) {
	if h.alerts != nil {
		var cached []ReorderAlert
		if ok, err := h.alerts.GetJSON(r.Context(), "reorder:summary", &cached); err == nil && ok {
			httpx.JSON(w, http.StatusOK, cached)
			return
		}
	}
	alerts, err := h.service.ReorderAlerts(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, alerts)
}
