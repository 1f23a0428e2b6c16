package quotation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/egx-lab/backend-cotacao/internal/cache"
	"github.com/egx-lab/backend-cotacao/internal/sequence"
)

func ptr[T any](v T) *T { return &v }

func summaryFixture(t *testing.T) (*Service, *fakeRepo, int64) {
	t.Helper()
	svc, repo := newTestService(t)
	ctx := context.Background()

	q, err := svc.Create(ctx, CreateInput{Title: "Resumo", UseTemplate: false})
	require.NoError(t, err)

	items := []Item{
		{ID: 101, QuotationID: q.ID, ItemName: "RESISTOR (0603) 1K", ItemType: "SMD", Quantity: 6, QuantityToBuy: 15000, TargetPrice: ptr(100.0)},
		{ID: 102, QuotationID: q.ID, ItemName: "DIODO M7 (SMA)", ItemType: "SMD", Quantity: 9, QuantityToBuy: 18000},
	}
	require.NoError(t, repo.InsertItems(ctx, items))

	submitted := time.Now()
	repo.suppliers = []SummarySupplier{
		{ID: 1, CompanyName: "Alpha Componentes", SubmittedAt: &submitted},
		{ID: 2, CompanyName: "Beta Eletronica", SubmittedAt: &submitted},
		{ID: 3, CompanyName: "Gamma Imports"}, // never finalized
	}
	repo.quotes = []QuoteRow{
		{SupplierID: 1, QuotationItemID: 101, FinalPrice: 120},
		{SupplierID: 2, QuotationItemID: 101, FinalPrice: 95},
		{SupplierID: 3, QuotationItemID: 101, FinalPrice: 10},
		{SupplierID: 1, QuotationItemID: 102, FinalPrice: 40},
	}
	repo.observations = []ObservationRow{
		{SupplierID: 2, QuotationItemID: 101, Note: "prazo de entrega 30 dias"},
	}
	return svc, repo, q.ID
}

func TestSummaryExcludesUnfinalizedSuppliers(t *testing.T) {
	svc, _, id := summaryFixture(t)

	summary, err := svc.Summary(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, summary.Items, 2)

	first := summary.Items[0]
	require.Equal(t, int64(101), first.ItemID)
	require.Equal(t, 2, first.QuoteCount, "supplier 3 never submitted")
	for _, c := range first.Candidates {
		require.NotEqual(t, int64(3), c.SupplierID)
	}
}

func TestSummaryWinnerAndTarget(t *testing.T) {
	svc, _, id := summaryFixture(t)

	summary, err := svc.Summary(context.Background(), id)
	require.NoError(t, err)

	first := summary.Items[0]
	require.NotNil(t, first.WinningSupplierID)
	require.Equal(t, int64(2), *first.WinningSupplierID)
	require.NotNil(t, first.LowestPrice)
	require.Equal(t, 95.0, *first.LowestPrice)
	require.True(t, first.MeetsTarget)
	require.Equal(t, "Beta Eletronica", first.Candidates[0].SupplierName)

	second := summary.Items[1]
	require.Equal(t, int64(102), second.ItemID)
	require.False(t, second.MeetsTarget, "no target set means no match")
	require.Equal(t, 1, second.QuoteCount)
}

func TestSummaryCandidatesSortedAscending(t *testing.T) {
	svc, _, id := summaryFixture(t)

	summary, err := svc.Summary(context.Background(), id)
	require.NoError(t, err)

	candidates := summary.Items[0].Candidates
	for i := 1; i < len(candidates); i++ {
		require.LessOrEqual(t, candidates[i-1].FinalPrice, candidates[i].FinalPrice)
	}
}

func TestSummaryEmptyQuotation(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	q, err := svc.Create(ctx, CreateInput{Title: "Sem precos", UseTemplate: false})
	require.NoError(t, err)
	require.NoError(t, repo.InsertItems(ctx, []Item{{ID: 201, QuotationID: q.ID, ItemName: "CI LP3783", ItemType: "SMD"}}))

	summary, err := svc.Summary(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	require.Nil(t, summary.Items[0].LowestPrice)
	require.Nil(t, summary.Items[0].WinningSupplierID)
	require.False(t, summary.Items[0].MeetsTarget)
	require.Empty(t, summary.Items[0].Candidates)
}

func TestSummaryUnknownQuotation(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Summary(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSummaryCachedAndInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := newFakeRepo()
	allocator := sequence.NewAllocator(sequence.NewMemoryStore())
	svc := NewService(repo, allocator, cache.New(rdb), zerolog.Nop(), 14, time.Minute)
	ctx := context.Background()

	q, err := svc.Create(ctx, CreateInput{Title: "Cache", UseTemplate: false})
	require.NoError(t, err)
	require.NoError(t, repo.InsertItems(ctx, []Item{{ID: 301, QuotationID: q.ID, ItemName: "CI SYN590R", ItemType: "SMD"}}))

	first, err := svc.Summary(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, first.Items, 1)

	// A repo change invisible to the cache is not reflected until invalidation.
	require.NoError(t, repo.InsertItems(ctx, []Item{{ID: 302, QuotationID: q.ID, ItemName: "CI LP3783", ItemType: "SMD"}}))
	cached, err := svc.Summary(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, cached.Items, 1)

	svc.InvalidateSummary(ctx, q.ID)
	fresh, err := svc.Summary(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, fresh.Items, 2)
}
