package masterdata

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eltaworks/workshop-suite/internal/platform/httpx"
	"github.com/eltaworks/workshop-suite/internal/shared"
)

// Handler serves master data endpoints. Item code edits and document
// deletion require the admin PIN.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	pins     *shared.PinGuard
}

func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, pins *shared.PinGuard) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, pins: pins}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/masters", func(r chi.Router) {
		r.Get("/customers", h.handleListCustomers)
		r.Post("/customers", h.handleAddCustomer)
		r.Get("/item-codes", h.handleListItemCodes)
		r.Post("/item-codes", h.handleAddItemCode)
		r.Put("/item-codes/{id}", h.handleEditItemCode)
		r.Get("/item-codes/{id}/docs", h.handleListDocs)
		r.Post("/item-codes/{id}/docs", h.handleUploadDoc)
		r.Get("/docs/{id}/download", h.handleDownloadDoc)
		r.Delete("/docs/{id}", h.handleDeleteDoc)
	})
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCustomerNotFound), errors.Is(err, ErrItemCodeNotFound), errors.Is(err, ErrDocNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, ErrDuplicateCustomer), errors.Is(err, ErrDuplicateItemCode):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrBadExtension), errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, httpx.ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		h.logger.Error("master data request failed", "error", err)
		httpx.RespondError(w, err)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.Customers(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customers)
}

type customerPayload struct {
	CustomerName string `json:"customer_name" validate:"required"`
	ShortCode    string `json:"short_code"`
	Remarks      string `json:"remarks"`
}

func (h *Handler) handleAddCustomer(w http.ResponseWriter, r *http.Request) {
	var payload customerPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	created, err := h.service.AddCustomer(r.Context(), Customer{
		CustomerName: payload.CustomerName,
		ShortCode:    payload.ShortCode,
		Remarks:      payload.Remarks,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListItemCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.service.ItemCodes(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, codes)
}

type itemCodePayload struct {
	ItemCode    string `json:"item_code" validate:"required"`
	Description string `json:"description"`
	Remarks     string `json:"remarks"`
}

func (h *Handler) handleAddItemCode(w http.ResponseWriter, r *http.Request) {
	var payload itemCodePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	created, err := h.service.AddItemCode(r.Context(), ItemCode{
		ItemCode:    payload.ItemCode,
		Description: payload.Description,
		Remarks:     payload.Remarks,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

type editItemCodePayload struct {
	itemCodePayload
	Pin string `json:"pin" validate:"required"`
}

func (h *Handler) handleEditItemCode(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "item code id must be numeric")
		return
	}
	var payload editItemCodePayload
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
	err = h.service.EditItemCode(r.Context(), ItemCode{
		ID:          id,
		ItemCode:    payload.ItemCode,
		Description: payload.Description,
		Remarks:     payload.Remarks,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (h *Handler) handleListDocs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "item code id must be numeric")
		return
	}
	ic, docs, err := h.service.ItemCodeDocs(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item_code": ic, "docs": docs})
}

func (h *Handler) handleUploadDoc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "item code id must be numeric")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.service.MaxUploadBytes())
	if err := r.ParseMultipartForm(h.service.MaxUploadBytes()); err != nil {
		httpx.Problem(w, http.StatusRequestEntityTooLarge, "Upload too large", err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid upload", "file field required")
		return
	}
	defer file.Close()

	doc, err := h.service.UploadDoc(r.Context(), id,
		r.FormValue("doc_category"), header.Filename, r.FormValue("notes"), file)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleDownloadDoc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "document id must be numeric")
		return
	}
	doc, path, err := h.service.DocPath(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.DocName+`"`)
	http.ServeFile(w, r, path)
}

type pinPayload struct {
	Pin string `json:"pin" validate:"required"`
}

func (h *Handler) handleDeleteDoc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "document id must be numeric")
		return
	}
	var payload pinPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.pins.CheckAdmin(payload.Pin); err != nil {
		h.respondDomainError(w, err)
		return
	}
	if err := h.service.DeleteDoc(r.Context(), id); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}
