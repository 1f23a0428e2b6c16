package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/egx-lab/backend-cotacao/internal/cache"
)

func newBCBServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestBCBClientFetch(t *testing.T) {
	srv := newBCBServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"data":"28/08/2026","valor":"5.2513"}]`))
	})
	c := NewBCBClient(srv.URL, 5.0, time.Second, zerolog.Nop())

	rate, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5.2513, rate)
}

func TestBCBClientRateFallsBackOnServerError(t *testing.T) {
	srv := newBCBServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := NewBCBClient(srv.URL, 5.0, time.Second, zerolog.Nop())

	require.Equal(t, 5.0, c.Rate(context.Background()))
}

func TestBCBClientRateFallsBackOnMalformedPayload(t *testing.T) {
	cases := map[string]string{
		"not json":     `oops`,
		"empty series": `[]`,
		"bad number":   `[{"data":"28/08/2026","valor":"abc"}]`,
		"zero rate":    `[{"data":"28/08/2026","valor":"0"}]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newBCBServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			c := NewBCBClient(srv.URL, 5.0, time.Second, zerolog.Nop())
			require.Equal(t, 5.0, c.Rate(context.Background()))
		})
	}
}

type countingFetcher struct {
	calls int32
	rate  float64
	err   error
}

func (f *countingFetcher) Fetch(context.Context) (float64, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.rate, f.err
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.New(rdb)
}

func TestCachedSourceServesFromCache(t *testing.T) {
	fetcher := &countingFetcher{rate: 5.1}
	src := NewCachedSource(fetcher, newTestCache(t), time.Hour, 5.0, zerolog.Nop())
	ctx := context.Background()

	require.Equal(t, 5.1, src.Rate(ctx))
	require.Equal(t, 5.1, src.Rate(ctx))
	require.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls), "second call must hit the cache")
}

func TestCachedSourceFallbackNotCached(t *testing.T) {
	fetcher := &countingFetcher{err: context.DeadlineExceeded}
	src := NewCachedSource(fetcher, newTestCache(t), time.Hour, 5.0, zerolog.Nop())
	ctx := context.Background()

	require.Equal(t, 5.0, src.Rate(ctx))
	require.Equal(t, 5.0, src.Rate(ctx))
	require.Equal(t, int32(2), atomic.LoadInt32(&fetcher.calls), "fallback must not be cached")
}
