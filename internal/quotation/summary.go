package quotation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/egx-lab/backend-cotacao/internal/cache"
	"github.com/egx-lab/backend-cotacao/internal/obs"
	"github.com/egx-lab/backend-cotacao/internal/pricing"
)

// Candidate is one supplier offer for an item, already converted to BRL.
type Candidate struct {
	SupplierID   int64   `json:"supplierId"`
	SupplierName string  `json:"supplierName"`
	FinalPrice   float64 `json:"finalPrice"`
}

// ItemObservation is a supplier note shown next to an item in the summary.
type ItemObservation struct {
	SupplierID   int64  `json:"supplierId"`
	SupplierName string `json:"supplierName"`
	Note         string `json:"note"`
}

// ItemSummary aggregates all finalized offers for one item.
type ItemSummary struct {
	ItemID            int64             `json:"itemId"`
	ItemName          string            `json:"itemName"`
	TargetPrice       *float64          `json:"targetPrice"`
	LowestPrice       *float64          `json:"lowestPrice"`
	WinningSupplierID *int64            `json:"winningSupplierId"`
	MeetsTarget       bool              `json:"meetsTarget"`
	QuoteCount        int               `json:"quoteCount"`
	Quantity          int               `json:"quantity"`
	QuantityToBuy     int               `json:"quantityToBuy"`
	Candidates        []Candidate       `json:"candidates"`
	Observations      []ItemObservation `json:"observations"`
}

// Summary is the admin view over a quotation's collected prices.
type Summary struct {
	Quotation   Quotation     `json:"quotation"`
	Items       []ItemSummary `json:"summary"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

// Summary computes the per-item aggregation for a quotation. Only suppliers
// who finalized their submission count; in-progress entries stay invisible
// to admins. Results are cached briefly since the computation touches every
// table of the quotation.
func (s *Service) Summary(ctx context.Context, quotationID int64) (Summary, error) {
	key := cache.SummaryKey(quotationID)
	if s.cache != nil {
		var cached Summary
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			countSummaryCache("hit")
			return cached, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn().Err(err).Int64("quotation_id", quotationID).Msg("summary_cache_read_failed")
		}
		countSummaryCache("miss")
	}

	summary, err := s.computeSummary(ctx, quotationID)
	if err != nil {
		return Summary{}, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, summary, s.summaryTTL); err != nil {
			s.logger.Warn().Err(err).Int64("quotation_id", quotationID).Msg("summary_cache_write_failed")
		}
	}
	return summary, nil
}

func (s *Service) computeSummary(ctx context.Context, quotationID int64) (Summary, error) {
	q, err := s.repo.Get(ctx, quotationID)
	if err != nil {
		return Summary{}, err
	}
	items, err := s.repo.Items(ctx, quotationID)
	if err != nil {
		return Summary{}, err
	}
	suppliers, err := s.repo.Suppliers(ctx, quotationID)
	if err != nil {
		return Summary{}, err
	}
	quotes, err := s.repo.Quotes(ctx, quotationID)
	if err != nil {
		return Summary{}, err
	}
	observations, err := s.repo.Observations(ctx, quotationID)
	if err != nil {
		return Summary{}, err
	}

	names := make(map[int64]string, len(suppliers))
	finalized := make(map[int64]bool, len(suppliers))
	for _, sup := range suppliers {
		names[sup.ID] = sup.CompanyName
		if sup.SubmittedAt != nil {
			finalized[sup.ID] = true
		}
	}

	quotesByItem := make(map[int64][]QuoteRow)
	for _, quote := range quotes {
		if !finalized[quote.SupplierID] {
			continue
		}
		quotesByItem[quote.QuotationItemID] = append(quotesByItem[quote.QuotationItemID], quote)
	}
	obsByItem := make(map[int64][]ObservationRow)
	for _, o := range observations {
		obsByItem[o.QuotationItemID] = append(obsByItem[o.QuotationItemID], o)
	}

	out := Summary{Quotation: q, GeneratedAt: s.now(), Items: make([]ItemSummary, 0, len(items))}
	for _, item := range items {
		itemQuotes := quotesByItem[item.ID]
		candidates := make([]Candidate, 0, len(itemQuotes))
		for _, quote := range itemQuotes {
			candidates = append(candidates, Candidate{
				SupplierID:   quote.SupplierID,
				SupplierName: supplierName(names, quote.SupplierID),
				FinalPrice:   quote.FinalPrice,
			})
		}
		// Stable sort keeps earlier submissions ahead on equal prices, so
		// the first candidate is the tie-winning lowest offer.
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].FinalPrice < candidates[j].FinalPrice
		})

		entry := ItemSummary{
			ItemID:        item.ID,
			ItemName:      item.ItemName,
			TargetPrice:   item.TargetPrice,
			QuoteCount:    len(candidates),
			Quantity:      item.Quantity,
			QuantityToBuy: item.QuantityToBuy,
			Candidates:    candidates,
			Observations:  make([]ItemObservation, 0, len(obsByItem[item.ID])),
		}
		if len(candidates) > 0 {
			winner := candidates[0]
			entry.LowestPrice = &winner.FinalPrice
			entry.WinningSupplierID = &winner.SupplierID
			entry.MeetsTarget = pricing.MeetsTarget(winner.FinalPrice, item.TargetPrice)
		}
		for _, o := range obsByItem[item.ID] {
			entry.Observations = append(entry.Observations, ItemObservation{
				SupplierID:   o.SupplierID,
				SupplierName: supplierName(names, o.SupplierID),
				Note:         o.Note,
			})
		}
		out.Items = append(out.Items, entry)
	}
	return out, nil
}

func countSummaryCache(result string) {
	if obs.SummaryCacheTotal != nil {
		obs.SummaryCacheTotal.WithLabelValues(result).Inc()
	}
}

func supplierName(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("Fornecedor #%d", id)
}
