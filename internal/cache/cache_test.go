package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb), mr
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}
	in := payload{Name: "resistor", Price: 12.5}
	require.NoError(t, c.SetJSON(ctx, "k", in, time.Minute))

	var out payload
	require.NoError(t, c.GetJSON(ctx, "k", &out))
	require.Equal(t, in, out)
}

func TestCacheMiss(t *testing.T) {
	c, _ := newTestCache(t)

	var out map[string]any
	err := c.GetJSON(context.Background(), "absent", &out)
	require.ErrorIs(t, err, ErrMiss)
}

func TestCacheExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "k", "v", time.Second))
	mr.FastForward(2 * time.Second)

	var out string
	require.ErrorIs(t, c.GetJSON(ctx, "k", &out), ErrMiss)
}

func TestCacheDelete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "k", 1, time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	var out int
	require.ErrorIs(t, c.GetJSON(ctx, "k", &out), ErrMiss)
	require.NoError(t, c.Delete(ctx))
}
