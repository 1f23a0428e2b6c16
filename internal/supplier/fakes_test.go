package supplier

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/egx-lab/backend-cotacao/internal/quotation"
)

// memQuotationRepo is a minimal quotation.Repo for wiring a real
// quotation.Service into the supplier tests.
type memQuotationRepo struct {
	mu         sync.Mutex
	quotations map[int64]quotation.Quotation
	items      map[int64]quotation.Item
	itemOrder  []int64
}

func newMemQuotationRepo() *memQuotationRepo {
	return &memQuotationRepo{
		quotations: make(map[int64]quotation.Quotation),
		items:      make(map[int64]quotation.Item),
	}
}

func (m *memQuotationRepo) Insert(_ context.Context, q quotation.Quotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotations[q.ID] = q
	return nil
}

func (m *memQuotationRepo) List(_ context.Context) ([]quotation.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]quotation.Quotation, 0, len(m.quotations))
	for _, q := range m.quotations {
		out = append(out, q)
	}
	return out, nil
}

func (m *memQuotationRepo) Get(_ context.Context, id int64) (quotation.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return quotation.Quotation{}, quotation.ErrNotFound
	}
	return q, nil
}

func (m *memQuotationRepo) Update(_ context.Context, id int64, upd quotation.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return quotation.ErrNotFound
	}
	if upd.Status != nil {
		q.Status = *upd.Status
	}
	if upd.ExpiresAt != nil {
		q.ExpiresAt = *upd.ExpiresAt
	}
	m.quotations[id] = q
	return nil
}

func (m *memQuotationRepo) DeleteCascade(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotations[id]; !ok {
		return quotation.ErrNotFound
	}
	delete(m.quotations, id)
	return nil
}

func (m *memQuotationRepo) InsertItems(_ context.Context, items []quotation.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		if _, ok := m.items[it.ID]; !ok {
			m.itemOrder = append(m.itemOrder, it.ID)
		}
		m.items[it.ID] = it
	}
	return nil
}

func (m *memQuotationRepo) Items(_ context.Context, quotationID int64) ([]quotation.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []quotation.Item
	for _, id := range m.itemOrder {
		if it := m.items[id]; it.QuotationID == quotationID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memQuotationRepo) GetItem(_ context.Context, itemID int64) (quotation.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok {
		return quotation.Item{}, quotation.ErrNotFound
	}
	return it, nil
}

func (m *memQuotationRepo) UpdateItemTarget(_ context.Context, itemID int64, target float64, _ *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok {
		return quotation.ErrNotFound
	}
	it.TargetPrice = &target
	m.items[itemID] = it
	return nil
}

func (m *memQuotationRepo) UpdateItemQuantities(_ context.Context, itemID int64, _, _ *int) error {
	if _, ok := m.items[itemID]; !ok {
		return quotation.ErrNotFound
	}
	return nil
}

func (m *memQuotationRepo) Suppliers(context.Context, int64) ([]quotation.SummarySupplier, error) {
	return nil, nil
}

func (m *memQuotationRepo) Quotes(context.Context, int64) ([]quotation.QuoteRow, error) {
	return nil, nil
}

func (m *memQuotationRepo) Observations(context.Context, int64) ([]quotation.ObservationRow, error) {
	return nil, nil
}

func (m *memQuotationRepo) CloseExpired(context.Context, time.Time) ([]int64, error) {
	return nil, nil
}

// memSupplierRepo is an in-memory Repo for the supplier service tests.
type memSupplierRepo struct {
	mu           sync.Mutex
	suppliers    map[int64]Supplier
	quotes       map[[3]int64]Quote
	quoteOrder   [][3]int64
	observations map[[3]int64]Observation
	history      []Quote
}

func newMemSupplierRepo() *memSupplierRepo {
	return &memSupplierRepo{
		suppliers:    make(map[int64]Supplier),
		quotes:       make(map[[3]int64]Quote),
		observations: make(map[[3]int64]Observation),
	}
}

func (m *memSupplierRepo) Insert(_ context.Context, s Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.suppliers[s.ID] = s
	return nil
}

func (m *memSupplierRepo) GetByID(_ context.Context, id int64) (Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[id]
	if !ok {
		return Supplier{}, ErrNotFound
	}
	return s, nil
}

func (m *memSupplierRepo) GetByCNPJForQuotation(_ context.Context, cnpj string, quotationID int64) (Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.suppliers {
		if s.CNPJ == cnpj && s.QuotationID != nil && *s.QuotationID == quotationID {
			return s, nil
		}
	}
	return Supplier{}, ErrNotFound
}

func (m *memSupplierRepo) GetByCNPJAndPassword(_ context.Context, cnpj, password string) (Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.suppliers {
		if s.CNPJ == cnpj && s.TemporaryPassword == password {
			return s, nil
		}
	}
	return Supplier{}, ErrNotFound
}

func (m *memSupplierRepo) UpdateCredentials(_ context.Context, id int64, password string, expiresAt time.Time, companyName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[id]
	if !ok {
		return ErrNotFound
	}
	s.TemporaryPassword = password
	s.PasswordExpiresAt = expiresAt
	if strings.TrimSpace(companyName) != "" {
		s.CompanyName = companyName
	}
	s.UpdatedAt = time.Now()
	m.suppliers[id] = s
	return nil
}

func (m *memSupplierRepo) ListByQuotation(_ context.Context, quotationID int64) ([]Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Supplier
	for _, s := range m.suppliers {
		if s.QuotationID != nil && *s.QuotationID == quotationID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSupplierRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.suppliers[id]; !ok {
		return ErrNotFound
	}
	delete(m.suppliers, id)
	return nil
}

func (m *memSupplierRepo) MarkSubmitted(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[id]
	if !ok {
		return ErrNotFound
	}
	s.SubmittedAt = &at
	m.suppliers[id] = s
	return nil
}

func (m *memSupplierRepo) UpsertQuote(_ context.Context, q Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [3]int64{q.QuotationID, q.SupplierID, q.QuotationItemID}
	if existing, ok := m.quotes[key]; ok {
		q.ID = existing.ID
	} else {
		m.quoteOrder = append(m.quoteOrder, key)
	}
	q.SubmittedAt = time.Now()
	m.quotes[key] = q
	return nil
}

func (m *memSupplierRepo) QuotesBySupplier(_ context.Context, quotationID, supplierID int64) ([]Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Quote
	for _, key := range m.quoteOrder {
		q, ok := m.quotes[key]
		if ok && q.QuotationID == quotationID && q.SupplierID == supplierID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memSupplierRepo) UpsertObservation(_ context.Context, o Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [3]int64{o.QuotationID, o.SupplierID, o.QuotationItemID}
	if existing, ok := m.observations[key]; ok {
		o.ID = existing.ID
	}
	m.observations[key] = o
	return nil
}

func (m *memSupplierRepo) ObservationsBySupplier(_ context.Context, quotationID, supplierID int64) ([]Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Observation
	for _, o := range m.observations {
		if o.QuotationID == quotationID && o.SupplierID == supplierID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memSupplierRepo) ArchiveQuotes(ctx context.Context, quotationID, supplierID int64, historyIDs []int64) error {
	quotes, err := m.QuotesBySupplier(ctx, quotationID, supplierID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, q := range quotes {
		q.ID = historyIDs[i]
		m.history = append(m.history, q)
	}
	return nil
}
