package quotation

import (
	"context"
	"sync"
	"time"
)

// fakeRepo is an in-memory Repo shared by the quotation and summary tests.
type fakeRepo struct {
	mu           sync.Mutex
	quotations   map[int64]Quotation
	items        map[int64]Item
	itemOrder    []int64
	suppliers    []SummarySupplier
	quotes       []QuoteRow
	observations []ObservationRow
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		quotations: make(map[int64]Quotation),
		items:      make(map[int64]Item),
	}
}

func (f *fakeRepo) Insert(_ context.Context, q Quotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	f.quotations[q.ID] = q
	return nil
}

func (f *fakeRepo) List(_ context.Context) ([]Quotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Quotation, 0, len(f.quotations))
	for _, q := range f.quotations {
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Quotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotations[id]
	if !ok {
		return Quotation{}, ErrNotFound
	}
	return q, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, upd Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotations[id]
	if !ok {
		return ErrNotFound
	}
	if upd.Title != nil {
		q.Title = *upd.Title
	}
	if upd.Description != nil {
		q.Description = upd.Description
	}
	if upd.Status != nil {
		q.Status = *upd.Status
	}
	if upd.ExpiresAt != nil {
		q.ExpiresAt = *upd.ExpiresAt
	}
	q.UpdatedAt = time.Now()
	f.quotations[id] = q
	return nil
}

func (f *fakeRepo) DeleteCascade(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.quotations[id]; !ok {
		return ErrNotFound
	}
	delete(f.quotations, id)
	for itemID, it := range f.items {
		if it.QuotationID == id {
			delete(f.items, itemID)
		}
	}
	return nil
}

func (f *fakeRepo) InsertItems(_ context.Context, items []Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range items {
		if _, ok := f.items[it.ID]; !ok {
			f.itemOrder = append(f.itemOrder, it.ID)
		}
		f.items[it.ID] = it
	}
	return nil
}

func (f *fakeRepo) Items(_ context.Context, quotationID int64) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Item
	for _, id := range f.itemOrder {
		if it, ok := f.items[id]; ok && it.QuotationID == quotationID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetItem(_ context.Context, itemID int64) (Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[itemID]
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (f *fakeRepo) UpdateItemTarget(_ context.Context, itemID int64, target float64, itemName *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[itemID]
	if !ok {
		return ErrNotFound
	}
	it.TargetPrice = &target
	if itemName != nil {
		it.ItemName = *itemName
	}
	f.items[itemID] = it
	return nil
}

func (f *fakeRepo) UpdateItemQuantities(_ context.Context, itemID int64, quantity, quantityToBuy *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[itemID]
	if !ok {
		return ErrNotFound
	}
	if quantity != nil {
		it.Quantity = *quantity
	}
	if quantityToBuy != nil {
		it.QuantityToBuy = *quantityToBuy
	}
	f.items[itemID] = it
	return nil
}

func (f *fakeRepo) Suppliers(_ context.Context, _ int64) ([]SummarySupplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SummarySupplier(nil), f.suppliers...), nil
}

func (f *fakeRepo) Quotes(_ context.Context, _ int64) ([]QuoteRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]QuoteRow(nil), f.quotes...), nil
}

func (f *fakeRepo) Observations(_ context.Context, _ int64) ([]ObservationRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ObservationRow(nil), f.observations...), nil
}

func (f *fakeRepo) CloseExpired(_ context.Context, now time.Time) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id, q := range f.quotations {
		if q.Status == StatusActive && q.ExpiresAt.Before(now) {
			q.Status = StatusClosed
			f.quotations[id] = q
			ids = append(ids, id)
		}
	}
	return ids, nil
}
