package quotation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/egx-lab/backend-cotacao/internal/common"
)

// Handler exposes the admin quotation endpoints.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
	Logger   zerolog.Logger
}

type createRequest struct {
	Title           string  `json:"title" validate:"required"`
	Description     *string `json:"description"`
	DaysUntilExpiry int     `json:"daysUntilExpiry" validate:"gte=0,lte=365"`
	UseTemplate     *bool   `json:"useTemplate"`
}

// Create handles POST /admin/quotations.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "title is required", nil)
		return
	}
	useTemplate := true
	if req.UseTemplate != nil {
		useTemplate = *req.UseTemplate
	}
	q, err := h.Service.Create(r.Context(), CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		DaysUntilExpiry: req.DaysUntilExpiry,
		UseTemplate:     useTemplate,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"quotationId": q.ID, "quotation": q})
}

// List handles GET /admin/quotations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	quotations, err := h.Service.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if quotations == nil {
		quotations = []Quotation{}
	}
	common.JSON(w, http.StatusOK, quotations)
}

// Get handles GET /admin/quotations/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	q, items, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"quotation": q, "items": items})
}

// Summary handles GET /admin/quotations/{id}/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	summary, err := h.Service.Summary(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, summary)
}

type updateRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	Status          *string `json:"status"`
	DaysUntilExpiry *int    `json:"daysUntilExpiry"`
}

// Update handles PATCH /admin/quotations/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	err := h.Service.Update(r.Context(), id, UpdateInput{
		Title:           req.Title,
		Description:     req.Description,
		Status:          req.Status,
		DaysUntilExpiry: req.DaysUntilExpiry,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Delete handles DELETE /admin/quotations/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type targetRequest struct {
	TargetPrice *float64 `json:"targetPrice" validate:"required"`
	ItemName    *string  `json:"itemName"`
}

// SetTarget handles PATCH /admin/items/{id}/target.
func (h *Handler) SetTarget(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "targetPrice is required", nil)
		return
	}
	if err := h.Service.SetItemTarget(r.Context(), id, *req.TargetPrice, req.ItemName); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type quantitiesRequest struct {
	Quantity      *int `json:"quantity" validate:"omitempty,gte=0"`
	QuantityToBuy *int `json:"quantityToBuy" validate:"omitempty,gte=0"`
}

// SetQuantities handles PATCH /admin/items/{id}/quantities.
func (h *Handler) SetQuantities(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req quantitiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "quantities must be non-negative", nil)
		return
	}
	if err := h.Service.SetItemQuantities(r.Context(), id, req.Quantity, req.QuantityToBuy); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "identifier must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "quotation or item not found", nil)
		return
	}
	common.WriteError(w, err)
}
