package quotation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/egx-lab/backend-cotacao/internal/cache"
	"github.com/egx-lab/backend-cotacao/internal/common"
	"github.com/egx-lab/backend-cotacao/internal/sequence"
)

const defaultExpiryDays = 14

// Service implements the admin-facing quotation workflow.
type Service struct {
	repo       Repo
	allocator  *sequence.Allocator
	cache      *cache.Cache
	logger     zerolog.Logger
	expiryDays int
	summaryTTL time.Duration
	now        func() time.Time
}

func NewService(repo Repo, allocator *sequence.Allocator, c *cache.Cache, logger zerolog.Logger, expiryDays int, summaryTTL time.Duration) *Service {
	if expiryDays <= 0 {
		expiryDays = defaultExpiryDays
	}
	return &Service{
		repo:       repo,
		allocator:  allocator,
		cache:      c,
		logger:     logger,
		expiryDays: expiryDays,
		summaryTTL: summaryTTL,
		now:        time.Now,
	}
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInput captures a new quotation request.
type CreateInput struct {
	Title           string
	Description     *string
	DaysUntilExpiry int
	UseTemplate     bool
}

// Create opens a new quotation and, unless disabled, seeds it with the
// default component template.
func (s *Service) Create(ctx context.Context, in CreateInput) (Quotation, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Quotation{}, common.NewAppError("VALIDATION_ERROR", "title is required", http.StatusBadRequest, nil)
	}
	days := in.DaysUntilExpiry
	if days <= 0 {
		days = s.expiryDays
	}

	id, err := s.allocator.NextID(ctx, sequence.EntityQuotation)
	if err != nil {
		return Quotation{}, err
	}
	q := Quotation{
		ID:          id,
		Title:       title,
		Description: in.Description,
		Status:      StatusActive,
		ExpiresAt:   s.now().AddDate(0, 0, days),
	}
	if err := s.repo.Insert(ctx, q); err != nil {
		return Quotation{}, err
	}

	if in.UseTemplate {
		if err := s.seedItems(ctx, id); err != nil {
			return Quotation{}, err
		}
	}
	s.logger.Info().Int64("quotation_id", id).Bool("template", in.UseTemplate).Msg("quotation_created")
	return q, nil
}

func (s *Service) seedItems(ctx context.Context, quotationID int64) error {
	template := DefaultItems()
	items := make([]Item, 0, len(template))
	for _, t := range template {
		itemID, err := s.allocator.NextID(ctx, sequence.EntityQuotationItem)
		if err != nil {
			return fmt.Errorf("seed quotation %d: %w", quotationID, err)
		}
		items = append(items, Item{
			ID:            itemID,
			QuotationID:   quotationID,
			ItemName:      t.ItemName,
			ItemType:      t.ItemType,
			Quantity:      t.Quantity,
			QuantityToBuy: t.QuantityToBuy,
		})
	}
	return s.repo.InsertItems(ctx, items)
}

// List returns every quotation, newest first.
func (s *Service) List(ctx context.Context) ([]Quotation, error) {
	return s.repo.List(ctx)
}

// Get returns a quotation with its items.
func (s *Service) Get(ctx context.Context, id int64) (Quotation, []Item, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Quotation{}, nil, err
	}
	items, err := s.Items(ctx, id)
	if err != nil {
		return Quotation{}, nil, err
	}
	return q, items, nil
}

// Quotation returns a quotation without its items.
func (s *Service) Quotation(ctx context.Context, id int64) (Quotation, error) {
	return s.repo.Get(ctx, id)
}

// Items returns the item list of a quotation. A quotation with no items gets
// the default template seeded on first read.
func (s *Service) Items(ctx context.Context, quotationID int64) ([]Item, error) {
	items, err := s.repo.Items(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		if err := s.seedItems(ctx, quotationID); err != nil {
			return nil, err
		}
		return s.repo.Items(ctx, quotationID)
	}
	return items, nil
}

// Item returns a single quotation item.
func (s *Service) Item(ctx context.Context, itemID int64) (Item, error) {
	return s.repo.GetItem(ctx, itemID)
}

// UpdateInput captures a partial quotation update. DaysUntilExpiry moves the
// deadline relative to now, mirroring how the deadline was set on creation.
type UpdateInput struct {
	Title           *string
	Description     *string
	Status          *string
	DaysUntilExpiry *int
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) error {
	if in.Status != nil && *in.Status != StatusActive && *in.Status != StatusClosed {
		return common.NewAppError("VALIDATION_ERROR", "status must be active or closed", http.StatusBadRequest, nil)
	}
	upd := Update{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
	}
	if in.DaysUntilExpiry != nil {
		expiresAt := s.now().AddDate(0, 0, *in.DaysUntilExpiry)
		upd.ExpiresAt = &expiresAt
	}
	if err := s.repo.Update(ctx, id, upd); err != nil {
		return err
	}
	s.invalidateSummary(ctx, id)
	return nil
}

// Delete removes a quotation and everything attached to it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return err
	}
	s.invalidateSummary(ctx, id)
	s.logger.Info().Int64("quotation_id", id).Msg("quotation_deleted")
	return nil
}

// SetItemTarget records the negotiating goal for an item, optionally
// renaming it.
func (s *Service) SetItemTarget(ctx context.Context, itemID int64, target float64, itemName *string) error {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateItemTarget(ctx, itemID, target, itemName); err != nil {
		return err
	}
	s.invalidateSummary(ctx, item.QuotationID)
	return nil
}

// SetItemQuantities updates the per-board and purchase quantities.
func (s *Service) SetItemQuantities(ctx context.Context, itemID int64, quantity, quantityToBuy *int) error {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateItemQuantities(ctx, itemID, quantity, quantityToBuy); err != nil {
		return err
	}
	s.invalidateSummary(ctx, item.QuotationID)
	return nil
}

// CloseExpired moves overdue active quotations to closed.
func (s *Service) CloseExpired(ctx context.Context) (int, error) {
	ids, err := s.repo.CloseExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.invalidateSummary(ctx, id)
		s.logger.Info().Int64("quotation_id", id).Msg("quotation_expired")
	}
	return len(ids), nil
}

// InvalidateSummary drops the cached summary for a quotation. Exposed so
// supplier-side writes can keep admin views fresh.
func (s *Service) InvalidateSummary(ctx context.Context, quotationID int64) {
	s.invalidateSummary(ctx, quotationID)
}

func (s *Service) invalidateSummary(ctx context.Context, quotationID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.SummaryKey(quotationID)); err != nil {
		s.logger.Warn().Err(err).Int64("quotation_id", quotationID).Msg("summary_cache_invalidate_failed")
	}
}
