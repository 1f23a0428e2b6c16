package quotation

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/egx-lab/backend-cotacao/internal/sequence"
)

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	allocator := sequence.NewAllocator(sequence.NewMemoryStore())
	svc := NewService(repo, allocator, nil, zerolog.Nop(), 14, 30*time.Second)
	return svc, repo
}

func TestCreateSeedsTemplate(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	q, err := svc.Create(ctx, CreateInput{Title: "Agosto 2026", UseTemplate: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), q.ID)
	require.Equal(t, StatusActive, q.Status)

	items, err := repo.Items(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, items, len(DefaultItems()))
	require.Equal(t, "BARRA CONECTORA 180º 2 VIAS(BMO002-1E)", items[0].ItemName)
	require.Nil(t, items[0].TargetPrice)
}

func TestCreateWithoutTemplate(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	q, err := svc.Create(ctx, CreateInput{Title: "Vazia", UseTemplate: false})
	require.NoError(t, err)

	items, err := repo.Items(ctx, q.ID)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestItemsSeededOnFirstRead(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	q, err := svc.Create(ctx, CreateInput{Title: "Vazia", UseTemplate: false})
	require.NoError(t, err)

	items, err := svc.Items(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, items, len(DefaultItems()))

	stored, err := repo.Items(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, stored, len(DefaultItems()))
}

func TestCreateRequiresTitle(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateInput{Title: "   "})
	require.Error(t, err)
}

func TestCreateDefaultExpiry(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return now })

	q, err := svc.Create(context.Background(), CreateInput{Title: "Prazo"})
	require.NoError(t, err)
	require.Equal(t, now.AddDate(0, 0, 14), q.ExpiresAt)

	q, err = svc.Create(context.Background(), CreateInput{Title: "Prazo curto", DaysUntilExpiry: 7})
	require.NoError(t, err)
	require.Equal(t, now.AddDate(0, 0, 7), q.ExpiresAt)
}

func TestUpdateStatusValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	q, err := svc.Create(ctx, CreateInput{Title: "Status"})
	require.NoError(t, err)

	bad := "archived"
	require.Error(t, svc.Update(ctx, q.ID, UpdateInput{Status: &bad}))

	closed := StatusClosed
	require.NoError(t, svc.Update(ctx, q.ID, UpdateInput{Status: &closed}))

	got, _, err := svc.Get(ctx, q.ID)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, got.Status)
}

func TestUpdateMovesDeadline(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return now })

	q, err := svc.Create(ctx, CreateInput{Title: "Prorrogar"})
	require.NoError(t, err)

	days := 30
	require.NoError(t, svc.Update(ctx, q.ID, UpdateInput{DaysUntilExpiry: &days}))

	got, _, err := svc.Get(ctx, q.ID)
	require.NoError(t, err)
	require.Equal(t, now.AddDate(0, 0, 30), got.ExpiresAt)
}

func TestDeleteUnknownQuotation(t *testing.T) {
	svc, _ := newTestService(t)
	require.ErrorIs(t, svc.Delete(context.Background(), 99), ErrNotFound)
}

func TestSetItemTarget(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	q, err := svc.Create(ctx, CreateInput{Title: "Metas", UseTemplate: true})
	require.NoError(t, err)
	items, err := repo.Items(ctx, q.ID)
	require.NoError(t, err)

	name := "RESISTOR (0603) 1K OHM"
	require.NoError(t, svc.SetItemTarget(ctx, items[0].ID, 12.5, &name))

	got, err := repo.GetItem(ctx, items[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got.TargetPrice)
	require.Equal(t, 12.5, *got.TargetPrice)
	require.Equal(t, name, got.ItemName)
}

func TestCloseExpired(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return now })

	_, err := svc.Create(ctx, CreateInput{Title: "Vence logo", DaysUntilExpiry: 1})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Title: "Vence depois", DaysUntilExpiry: 60})
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return now.AddDate(0, 0, 10) })
	closed, err := svc.CloseExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, closed)

	closed, err = svc.CloseExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, closed, "sweep is idempotent")
}
