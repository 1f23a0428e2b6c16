package supplier

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/egx-lab/backend-cotacao/internal/auth"
	"github.com/egx-lab/backend-cotacao/internal/common"
	"github.com/egx-lab/backend-cotacao/internal/obs"
	"github.com/egx-lab/backend-cotacao/internal/pricing"
	"github.com/egx-lab/backend-cotacao/internal/quotation"
	"github.com/egx-lab/backend-cotacao/internal/sequence"
)

const defaultPasswordDays = 14

// Service implements credential issuance and the supplier-facing quoting
// workflow.
type Service struct {
	repo         Repo
	quotations   *quotation.Service
	engine       *pricing.Engine
	allocator    *sequence.Allocator
	tokens       *auth.Service
	clientOrigin string
	passwordDays int
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(repo Repo, quotations *quotation.Service, engine *pricing.Engine, allocator *sequence.Allocator, tokens *auth.Service, clientOrigin string, passwordDays int, logger zerolog.Logger) *Service {
	if passwordDays <= 0 {
		passwordDays = defaultPasswordDays
	}
	return &Service{
		repo:         repo,
		quotations:   quotations,
		engine:       engine,
		allocator:    allocator,
		tokens:       tokens,
		clientOrigin: strings.TrimRight(clientOrigin, "/"),
		passwordDays: passwordDays,
		logger:       logger,
		now:          time.Now,
	}
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// AccessInput is an admin request to invite a supplier to a quotation.
type AccessInput struct {
	QuotationID int64
	CNPJ        string
	CompanyName string
	DaysValid   int
}

// AccessGrant is the issued credential set, including the direct link the
// admin forwards to the supplier.
type AccessGrant struct {
	Supplier  Supplier  `json:"supplier"`
	Password  string    `json:"password"`
	ExpiresAt time.Time `json:"expiresAt"`
	AccessURL string    `json:"accessUrl"`
}

// IssueAccess creates or refreshes a supplier's temporary credentials for a
// quotation. Re-issuing for an existing CNPJ rotates the password and
// extends the deadline.
func (s *Service) IssueAccess(ctx context.Context, in AccessInput) (AccessGrant, error) {
	cnpj := strings.TrimSpace(in.CNPJ)
	companyName := strings.TrimSpace(in.CompanyName)
	if cnpj == "" || companyName == "" {
		return AccessGrant{}, common.NewAppError("VALIDATION_ERROR", "cnpj and companyName are required", http.StatusBadRequest, nil)
	}
	if _, err := s.quotations.Quotation(ctx, in.QuotationID); err != nil {
		return AccessGrant{}, s.mapQuotationErr(err)
	}

	password, err := randomPassword()
	if err != nil {
		return AccessGrant{}, err
	}
	days := in.DaysValid
	if days <= 0 {
		days = s.passwordDays
	}
	expiresAt := s.now().AddDate(0, 0, days)

	existing, err := s.repo.GetByCNPJForQuotation(ctx, cnpj, in.QuotationID)
	switch {
	case errors.Is(err, ErrNotFound):
		id, allocErr := s.allocator.NextID(ctx, sequence.EntitySupplier)
		if allocErr != nil {
			return AccessGrant{}, allocErr
		}
		quotationID := in.QuotationID
		created := Supplier{
			ID:                id,
			CNPJ:              cnpj,
			CompanyName:       companyName,
			TemporaryPassword: password,
			PasswordExpiresAt: expiresAt,
			IsActive:          true,
			QuotationID:       &quotationID,
		}
		if err := s.repo.Insert(ctx, created); err != nil {
			return AccessGrant{}, err
		}
		existing = created
	case err != nil:
		return AccessGrant{}, err
	default:
		if err := s.repo.UpdateCredentials(ctx, existing.ID, password, expiresAt, companyName); err != nil {
			return AccessGrant{}, err
		}
		existing, err = s.repo.GetByID(ctx, existing.ID)
		if err != nil {
			return AccessGrant{}, err
		}
	}

	s.logger.Info().
		Int64("supplier_id", existing.ID).
		Int64("quotation_id", in.QuotationID).
		Time("password_expires_at", expiresAt).
		Msg("supplier_access_issued")
	return AccessGrant{
		Supplier:  existing,
		Password:  password,
		ExpiresAt: expiresAt,
		AccessURL: s.accessURL(existing, password),
	}, nil
}

// AccessEntry is one row of the admin credentials listing.
type AccessEntry struct {
	ID          int64      `json:"id"`
	CNPJ        string     `json:"cnpj"`
	CompanyName string     `json:"companyName"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	Password    string     `json:"password"`
	AccessURL   string     `json:"accessUrl"`
	SubmittedAt *time.Time `json:"submittedAt"`
}

// ListAccess returns every supplier invited to a quotation, with their
// current credentials and access links.
func (s *Service) ListAccess(ctx context.Context, quotationID int64) ([]AccessEntry, error) {
	suppliers, err := s.repo.ListByQuotation(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	out := make([]AccessEntry, 0, len(suppliers))
	for _, sup := range suppliers {
		out = append(out, AccessEntry{
			ID:          sup.ID,
			CNPJ:        sup.CNPJ,
			CompanyName: sup.CompanyName,
			ExpiresAt:   sup.PasswordExpiresAt,
			Password:    sup.TemporaryPassword,
			AccessURL:   s.accessURL(sup, sup.TemporaryPassword),
			SubmittedAt: sup.SubmittedAt,
		})
	}
	return out, nil
}

// RevokeAccess removes a supplier together with everything it entered.
func (s *Service) RevokeAccess(ctx context.Context, supplierID int64) error {
	sup, err := s.repo.GetByID(ctx, supplierID)
	if err != nil {
		return s.mapNotFound(err)
	}
	if err := s.repo.Delete(ctx, supplierID); err != nil {
		return s.mapNotFound(err)
	}
	if sup.QuotationID != nil {
		s.quotations.InvalidateSummary(ctx, *sup.QuotationID)
	}
	s.logger.Info().Int64("supplier_id", supplierID).Msg("supplier_access_revoked")
	return nil
}

// LoginInput are the credentials a supplier presents.
type LoginInput struct {
	QuotationID *int64
	CNPJ        string
	CompanyName string
	Password    string
}

// LoginResult carries the session token and the supplier's quoting context.
type LoginResult struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
	SupplierID  int64     `json:"supplierId"`
	CompanyName string    `json:"companyName"`
	QuotationID int64     `json:"quotationId"`
}

// Login authenticates a supplier against its temporary credentials. The
// quotation id is optional; without it the supplier is located by CNPJ and
// password alone.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	var sup Supplier
	var err error
	found := false

	if in.QuotationID != nil && *in.QuotationID > 0 {
		sup, err = s.repo.GetByCNPJForQuotation(ctx, strings.TrimSpace(in.CNPJ), *in.QuotationID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return LoginResult{}, err
		}
		found = err == nil
	}
	if !found {
		sup, err = s.repo.GetByCNPJAndPassword(ctx, strings.TrimSpace(in.CNPJ), in.Password)
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, common.NewAppError("NOT_FOUND", "supplier not found", http.StatusNotFound, nil)
		}
		if err != nil {
			return LoginResult{}, err
		}
	}
	if sup.QuotationID == nil {
		return LoginResult{}, common.NewAppError("NOT_FOUND", "supplier not found", http.StatusNotFound, nil)
	}
	if in.QuotationID != nil && *in.QuotationID > 0 && *sup.QuotationID != *in.QuotationID {
		return LoginResult{}, common.NewAppError("FORBIDDEN", "supplier not authorized for this quotation", http.StatusUnauthorized, nil)
	}
	if !strings.EqualFold(strings.TrimSpace(sup.CompanyName), strings.TrimSpace(in.CompanyName)) {
		return LoginResult{}, common.NewAppError("COMPANY_MISMATCH", "company name does not match", http.StatusUnauthorized, nil)
	}
	if s.now().After(sup.PasswordExpiresAt) {
		return LoginResult{}, common.NewAppError("PASSWORD_EXPIRED", "temporary password expired", http.StatusUnauthorized, nil)
	}
	if sup.TemporaryPassword != in.Password {
		return LoginResult{}, common.NewAppError("INVALID_CREDENTIALS", "invalid password", http.StatusUnauthorized, nil)
	}

	token, expiresAt, err := s.tokens.SignToken(sup.ID, auth.RoleSupplier)
	if err != nil {
		return LoginResult{}, err
	}
	s.logger.Info().Int64("supplier_id", sup.ID).Int64("quotation_id", *sup.QuotationID).Msg("supplier_login")
	return LoginResult{
		Token:       token,
		ExpiresAt:   expiresAt,
		SupplierID:  sup.ID,
		CompanyName: sup.CompanyName,
		QuotationID: *sup.QuotationID,
	}, nil
}

// Preview returns the public view of a quotation, shown before login.
func (s *Service) Preview(ctx context.Context, quotationID int64) (quotation.Quotation, []quotation.Item, error) {
	q, items, err := s.quotations.Get(ctx, quotationID)
	if err != nil {
		return quotation.Quotation{}, nil, s.mapQuotationErr(err)
	}
	return q, items, nil
}

// View is everything a logged-in supplier needs to fill in its prices.
type View struct {
	Quotation      quotation.Quotation `json:"quotation"`
	Items          []quotation.Item    `json:"items"`
	ExistingQuotes []Quote             `json:"existingQuotes"`
	Supplier       ViewSupplier        `json:"supplier"`
	Observations   []Observation       `json:"observations"`
}

// ViewSupplier is the supplier slice exposed on the quoting screen.
type ViewSupplier struct {
	ID          int64      `json:"id"`
	CompanyName string     `json:"companyName"`
	SubmittedAt *time.Time `json:"submittedAt"`
}

// QuotationView loads the quoting screen for the authenticated supplier.
// The quotation must still be active and before its deadline.
func (s *Service) QuotationView(ctx context.Context, supplierID int64) (View, error) {
	sup, q, err := s.supplierAndQuotation(ctx, supplierID)
	if err != nil {
		return View{}, err
	}
	now := s.now()
	if q.Status != quotation.StatusActive {
		return View{}, common.NewAppError("QUOTATION_CLOSED", "quotation is not active", http.StatusBadRequest, nil)
	}
	if q.Expired(now) {
		return View{}, common.NewAppError("QUOTATION_EXPIRED", "quotation deadline has passed", http.StatusBadRequest, nil)
	}

	items, err := s.quotations.Items(ctx, q.ID)
	if err != nil {
		return View{}, err
	}
	quotes, err := s.repo.QuotesBySupplier(ctx, q.ID, sup.ID)
	if err != nil {
		return View{}, err
	}
	observations, err := s.repo.ObservationsBySupplier(ctx, q.ID, sup.ID)
	if err != nil {
		return View{}, err
	}
	if quotes == nil {
		quotes = []Quote{}
	}
	if observations == nil {
		observations = []Observation{}
	}
	return View{
		Quotation:      q,
		Items:          items,
		ExistingQuotes: quotes,
		Supplier: ViewSupplier{
			ID:          sup.ID,
			CompanyName: sup.CompanyName,
			SubmittedAt: sup.SubmittedAt,
		},
		Observations: observations,
	}, nil
}

// PriceInput is one per-item price entry. Zero prices mean "not filled in".
type PriceInput struct {
	QuotationItemID int64
	PriceInReal     float64
	PriceInDollar   float64
	IPIPercentage   float64
	ICMSPercentage  float64
}

// SubmitPrice computes and stores the price for one item. Writes for the
// same item overwrite each other: the last write wins.
func (s *Service) SubmitPrice(ctx context.Context, supplierID int64, in PriceInput) (pricing.Breakdown, error) {
	sup, q, err := s.supplierAndQuotation(ctx, supplierID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	if sup.SubmittedAt != nil {
		return pricing.Breakdown{}, common.NewAppError("ALREADY_SUBMITTED", "quotation already finalized", http.StatusBadRequest, nil)
	}
	item, err := s.quotations.Item(ctx, in.QuotationItemID)
	if err != nil {
		if errors.Is(err, quotation.ErrNotFound) {
			return pricing.Breakdown{}, common.NewAppError("NOT_FOUND", "quotation item not found", http.StatusNotFound, nil)
		}
		return pricing.Breakdown{}, err
	}
	if item.QuotationID != q.ID {
		return pricing.Breakdown{}, common.NewAppError("FORBIDDEN", "item does not belong to this quotation", http.StatusForbidden, nil)
	}

	breakdown, err := s.engine.Process(ctx, pricing.Submission{
		PriceInReal:    in.PriceInReal,
		PriceInDollar:  in.PriceInDollar,
		IPIPercentage:  in.IPIPercentage,
		ICMSPercentage: in.ICMSPercentage,
	})
	if err != nil {
		countSubmission("rejected")
		if errors.Is(err, pricing.ErrPriceRequired) {
			return pricing.Breakdown{}, common.NewAppError("PRICE_REQUIRED", "price in real or dollar is required", http.StatusBadRequest, err)
		}
		return pricing.Breakdown{}, err
	}

	quoteID, err := s.allocator.NextID(ctx, sequence.EntitySupplierQuote)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	quote := Quote{
		ID:              quoteID,
		QuotationID:     q.ID,
		SupplierID:      sup.ID,
		QuotationItemID: item.ID,
		ExchangeRate:    &breakdown.ExchangeRate,
		FinalPrice:      breakdown.FinalPrice,
	}
	if in.PriceInReal > 0 {
		quote.PriceInReal = &in.PriceInReal
	}
	if in.PriceInDollar > 0 {
		quote.PriceInDollar = &in.PriceInDollar
	}
	if in.IPIPercentage > 0 {
		quote.IPIPercentage = &in.IPIPercentage
	}
	if in.ICMSPercentage > 0 {
		quote.ICMSPercentage = &in.ICMSPercentage
	}
	if err := s.repo.UpsertQuote(ctx, quote); err != nil {
		countSubmission("error")
		return pricing.Breakdown{}, err
	}
	countSubmission("ok")
	s.quotations.InvalidateSummary(ctx, q.ID)
	return breakdown, nil
}

// SaveObservation stores a note for one item.
func (s *Service) SaveObservation(ctx context.Context, supplierID, itemID int64, note string) error {
	sup, q, err := s.supplierAndQuotation(ctx, supplierID)
	if err != nil {
		return err
	}
	if sup.SubmittedAt != nil {
		return common.NewAppError("ALREADY_SUBMITTED", "quotation already finalized", http.StatusBadRequest, nil)
	}
	trimmed := strings.TrimSpace(note)
	if trimmed == "" {
		return common.NewAppError("VALIDATION_ERROR", "observation is required", http.StatusBadRequest, nil)
	}

	id, err := s.allocator.NextID(ctx, sequence.EntitySupplierObservation)
	if err != nil {
		return err
	}
	if err := s.repo.UpsertObservation(ctx, Observation{
		ID:              id,
		QuotationID:     q.ID,
		SupplierID:      sup.ID,
		QuotationItemID: itemID,
		Note:            trimmed,
	}); err != nil {
		return err
	}
	s.quotations.InvalidateSummary(ctx, q.ID)
	return nil
}

// Finalize closes the supplier's participation. At least one price must be
// entered; the stored quotes are archived into the history ledger.
func (s *Service) Finalize(ctx context.Context, supplierID int64) (time.Time, error) {
	sup, q, err := s.supplierAndQuotation(ctx, supplierID)
	if err != nil {
		return time.Time{}, err
	}
	if sup.SubmittedAt != nil {
		return time.Time{}, common.NewAppError("ALREADY_SUBMITTED", "quotation already finalized", http.StatusBadRequest, nil)
	}
	quotes, err := s.repo.QuotesBySupplier(ctx, q.ID, sup.ID)
	if err != nil {
		return time.Time{}, err
	}
	if len(quotes) == 0 {
		return time.Time{}, common.NewAppError("NO_QUOTES", "at least one price is required", http.StatusBadRequest, nil)
	}

	submittedAt := s.now()
	if err := s.repo.MarkSubmitted(ctx, sup.ID, submittedAt); err != nil {
		return time.Time{}, err
	}

	historyIDs := make([]int64, len(quotes))
	for i := range historyIDs {
		id, err := s.allocator.NextID(ctx, sequence.EntityQuoteHistory)
		if err != nil {
			return time.Time{}, err
		}
		historyIDs[i] = id
	}
	if err := s.repo.ArchiveQuotes(ctx, q.ID, sup.ID, historyIDs); err != nil {
		// The submission itself succeeded, the archive is best effort.
		s.logger.Error().Err(err).Int64("supplier_id", sup.ID).Msg("quote_archive_failed")
	}

	s.quotations.InvalidateSummary(ctx, q.ID)
	s.logger.Info().Int64("supplier_id", sup.ID).Int64("quotation_id", q.ID).Msg("supplier_submitted")
	return submittedAt, nil
}

func (s *Service) supplierAndQuotation(ctx context.Context, supplierID int64) (Supplier, quotation.Quotation, error) {
	sup, err := s.repo.GetByID(ctx, supplierID)
	if err != nil {
		return Supplier{}, quotation.Quotation{}, s.mapNotFound(err)
	}
	if sup.QuotationID == nil {
		return Supplier{}, quotation.Quotation{}, common.NewAppError("FORBIDDEN", "supplier has no quotation", http.StatusForbidden, nil)
	}
	q, err := s.quotations.Quotation(ctx, *sup.QuotationID)
	if err != nil {
		return Supplier{}, quotation.Quotation{}, s.mapQuotationErr(err)
	}
	return sup, q, nil
}

func (s *Service) accessURL(sup Supplier, password string) string {
	params := url.Values{}
	if sup.QuotationID != nil {
		params.Set("quotationId", strconv.FormatInt(*sup.QuotationID, 10))
	}
	if sup.CNPJ != "" {
		params.Set("cnpj", sup.CNPJ)
	}
	if sup.CompanyName != "" {
		params.Set("companyName", sup.CompanyName)
	}
	params.Set("password", password)
	return fmt.Sprintf("%s/supplier/access?%s", s.clientOrigin, params.Encode())
}

func (s *Service) mapQuotationErr(err error) error {
	if errors.Is(err, quotation.ErrNotFound) {
		return common.NewAppError("NOT_FOUND", "quotation not found", http.StatusNotFound, nil)
	}
	return err
}

func (s *Service) mapNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return common.NewAppError("NOT_FOUND", "supplier not found", http.StatusNotFound, nil)
	}
	return err
}

func countSubmission(result string) {
	if obs.QuoteSubmissionsTotal != nil {
		obs.QuoteSubmissionsTotal.WithLabelValues(result).Inc()
	}
}

func randomPassword() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate supplier password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
