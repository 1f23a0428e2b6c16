package sequence

import (
	"context"
	"fmt"

	"github.com/egx-lab/backend-cotacao/internal/obs"
)

// Entity names used as counter keys. Each entity owns an independent
// monotonically increasing sequence starting at 1.
const (
	EntityUser                = "users"
	EntityQuotation           = "quotations"
	EntityQuotationItem       = "quotation_items"
	EntitySupplier            = "suppliers"
	EntitySupplierQuote       = "supplier_quotes"
	EntitySupplierObservation = "supplier_observations"
	EntityQuoteHistory        = "quote_history"
)

// Store persists named counters. IncrementAndFetch must atomically bump the
// counter for key and return the new value, creating the counter at 1 when
// it does not yet exist.
type Store interface {
	IncrementAndFetch(ctx context.Context, key string) (int64, error)
}

// Allocator hands out business identifiers backed by a Store.
type Allocator struct {
	store Store
}

func NewAllocator(store Store) *Allocator {
	return &Allocator{store: store}
}

// NextID returns the next identifier for entity. IDs are unique and
// contiguous per entity even under concurrent callers.
func (a *Allocator) NextID(ctx context.Context, entity string) (int64, error) {
	id, err := a.store.IncrementAndFetch(ctx, entity)
	if err != nil {
		return 0, fmt.Errorf("allocate id for %s: %w", entity, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("allocate id for %s: counter returned non-positive value %d", entity, id)
	}
	if obs.SequenceAllocationsTotal != nil {
		obs.SequenceAllocationsTotal.WithLabelValues(entity).Inc()
	}
	return id, nil
}
