package sequence

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextIDStartsAtOne(t *testing.T) {
	a := NewAllocator(NewMemoryStore())
	ctx := context.Background()

	id, err := a.NextID(ctx, EntityQuotation)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	id, err = a.NextID(ctx, EntityQuotation)
	require.NoError(t, err)
	require.Equal(t, int64(2), id)
}

func TestNextIDIndependentPerEntity(t *testing.T) {
	a := NewAllocator(NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := a.NextID(ctx, EntityQuotation)
		require.NoError(t, err)
	}
	id, err := a.NextID(ctx, EntitySupplier)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
}

func TestNextIDConcurrent(t *testing.T) {
	const n = 200

	a := NewAllocator(NewMemoryStore())
	ctx := context.Background()

	ids := make([]int64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			id, err := a.NextID(ctx, EntitySupplierQuote)
			require.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		require.Equal(t, int64(i+1), id, "ids must be distinct and contiguous")
	}
}
