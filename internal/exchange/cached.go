package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/egx-lab/backend-cotacao/internal/cache"
	"github.com/egx-lab/backend-cotacao/internal/obs"
)

// Fetcher retrieves a fresh exchange rate from a provider.
type Fetcher interface {
	Fetch(ctx context.Context) (float64, error)
}

// CachedSource serves the PTAX rate from redis and only hits the provider
// when the cached value expired. PTAX is published once per business day so
// a short TTL loses nothing.
type CachedSource struct {
	fetcher  Fetcher
	cache    *cache.Cache
	ttl      time.Duration
	fallback float64
	logger   zerolog.Logger
}

func NewCachedSource(fetcher Fetcher, c *cache.Cache, ttl time.Duration, fallback float64, logger zerolog.Logger) *CachedSource {
	return &CachedSource{fetcher: fetcher, cache: c, ttl: ttl, fallback: fallback, logger: logger}
}

// Rate returns the cached rate, fetching and caching a fresh one on miss.
// Provider failures fall back to the configured default rate, which is not
// cached so the next call retries the provider.
func (s *CachedSource) Rate(ctx context.Context) float64 {
	var cached float64
	err := s.cache.GetJSON(ctx, cache.ExchangeRateKey, &cached)
	if err == nil && cached > 0 {
		return cached
	}
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn().Err(err).Msg("ptax_cache_read_failed")
	}

	rate, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Float64("fallback_rate", s.fallback).Msg("ptax_fetch_failed")
		if obs.ExchangeRateFetchTotal != nil {
			obs.ExchangeRateFetchTotal.WithLabelValues("fallback").Inc()
		}
		return s.fallback
	}
	if obs.ExchangeRateFetchTotal != nil {
		obs.ExchangeRateFetchTotal.WithLabelValues("ok").Inc()
	}

	if err := s.cache.SetJSON(ctx, cache.ExchangeRateKey, rate, s.ttl); err != nil {
		s.logger.Warn().Err(err).Msg("ptax_cache_write_failed")
	}
	return rate
}
