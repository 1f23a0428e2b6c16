package supplier

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/egx-lab/backend-cotacao/internal/auth"
	"github.com/egx-lab/backend-cotacao/internal/common"
)

// Handler exposes the supplier-facing endpoints and the admin credential
// management endpoints.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// Preview handles GET /supplier/preview?quotationId=N. It is public: the
// supplier sees the item list before logging in.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	quotationID, err := strconv.ParseInt(r.URL.Query().Get("quotationId"), 10, 64)
	if err != nil || quotationID <= 0 {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "quotationId is required", nil)
		return
	}
	q, items, err := h.Service.Preview(r.Context(), quotationID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"quotation": q, "items": items})
}

type loginRequest struct {
	QuotationID *int64 `json:"quotationId"`
	CNPJ        string `json:"cnpj" validate:"required"`
	CompanyName string `json:"companyName" validate:"required"`
	Password    string `json:"password" validate:"required"`
}

// Login handles POST /supplier/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "cnpj, companyName and password are required", nil)
		return
	}
	result, err := h.Service.Login(r.Context(), LoginInput{
		QuotationID: req.QuotationID,
		CNPJ:        req.CNPJ,
		CompanyName: req.CompanyName,
		Password:    req.Password,
	})
	if err != nil {
		h.Logger.Warn().Err(err).Str("cnpj", req.CNPJ).Str("ip", common.ClientIP(r)).Msg("supplier_login_failed")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

// Quotation handles GET /supplier/quotation for the authenticated supplier.
func (h *Handler) Quotation(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := h.supplierID(w, r)
	if !ok {
		return
	}
	view, err := h.Service.QuotationView(r.Context(), supplierID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

type priceRequest struct {
	QuotationItemID int64   `json:"quotationItemId" validate:"required,gt=0"`
	PriceInReal     float64 `json:"priceInReal" validate:"gte=0"`
	PriceInDollar   float64 `json:"priceInDollar" validate:"gte=0"`
	IPIPercentage   float64 `json:"ipiPercentage" validate:"gte=0,lte=100"`
	ICMSPercentage  float64 `json:"icmsPercentage" validate:"gte=0,lte=100"`
}

// Price handles POST /supplier/price.
func (h *Handler) Price(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := h.supplierID(w, r)
	if !ok {
		return
	}
	var req priceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "quotationItemId is required and amounts must be non-negative", nil)
		return
	}
	breakdown, err := h.Service.SubmitPrice(r.Context(), supplierID, PriceInput{
		QuotationItemID: req.QuotationItemID,
		PriceInReal:     req.PriceInReal,
		PriceInDollar:   req.PriceInDollar,
		IPIPercentage:   req.IPIPercentage,
		ICMSPercentage:  req.ICMSPercentage,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"ok": true, "finalPrice": breakdown.FinalPrice, "breakdown": breakdown})
}

type observationRequest struct {
	QuotationItemID int64  `json:"quotationItemId" validate:"required,gt=0"`
	Observation     string `json:"observation" validate:"required"`
}

// Observation handles POST /supplier/observation.
func (h *Handler) Observation(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := h.supplierID(w, r)
	if !ok {
		return
	}
	var req observationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "quotationItemId and observation are required", nil)
		return
	}
	if err := h.Service.SaveObservation(r.Context(), supplierID, req.QuotationItemID, req.Observation); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Submit handles POST /supplier/submit, finalizing the supplier's entry.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := h.supplierID(w, r)
	if !ok {
		return
	}
	submittedAt, err := h.Service.Finalize(r.Context(), supplierID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"ok": true, "submittedAt": submittedAt})
}

type accessRequest struct {
	QuotationID int64  `json:"quotationId" validate:"required,gt=0"`
	CNPJ        string `json:"cnpj" validate:"required"`
	CompanyName string `json:"companyName" validate:"required"`
	DaysValid   int    `json:"daysValid" validate:"gte=0,lte=365"`
}

// CreateAccess handles POST /admin/access.
func (h *Handler) CreateAccess(w http.ResponseWriter, r *http.Request) {
	var req accessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "quotationId, cnpj and companyName are required", nil)
		return
	}
	grant, err := h.Service.IssueAccess(r.Context(), AccessInput{
		QuotationID: req.QuotationID,
		CNPJ:        req.CNPJ,
		CompanyName: req.CompanyName,
		DaysValid:   req.DaysValid,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, grant)
}

// ListAccess handles GET /admin/access?quotationId=N.
func (h *Handler) ListAccess(w http.ResponseWriter, r *http.Request) {
	quotationID, err := strconv.ParseInt(r.URL.Query().Get("quotationId"), 10, 64)
	if err != nil || quotationID <= 0 {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "quotationId is required", nil)
		return
	}
	entries, err := h.Service.ListAccess(r.Context(), quotationID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []AccessEntry{}
	}
	common.JSON(w, http.StatusOK, entries)
}

// DeleteAccess handles DELETE /admin/access/{supplierId}.
func (h *Handler) DeleteAccess(w http.ResponseWriter, r *http.Request) {
	supplierID, err := strconv.ParseInt(chi.URLParam(r, "supplierId"), 10, 64)
	if err != nil || supplierID <= 0 {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "supplierId must be a positive integer", nil)
		return
	}
	if err := h.Service.RevokeAccess(r.Context(), supplierID); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) supplierID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok || identity.Role != auth.RoleSupplier {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "supplier session required", nil)
		return 0, false
	}
	return identity.ID, true
}
