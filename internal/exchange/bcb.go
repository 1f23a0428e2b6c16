package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/egx-lab/backend-cotacao/internal/obs"
	"github.com/egx-lab/backend-cotacao/internal/resilience"
)

// BCBClient fetches the daily BRL/USD PTAX rate from the Banco Central do
// Brasil SGS series API.
type BCBClient struct {
	endpoint string
	fallback float64
	client   resilience.HTTPClient
	logger   zerolog.Logger
}

// sgsEntry is one row of the SGS series payload. The API serialises the
// rate as a string.
type sgsEntry struct {
	Data  string `json:"data"`
	Valor string `json:"valor"`
}

func NewBCBClient(endpoint string, fallback float64, timeout time.Duration, logger zerolog.Logger) *BCBClient {
	return &BCBClient{
		endpoint: endpoint,
		fallback: fallback,
		logger:   logger,
		client: resilience.HTTPClient{
			Client: &http.Client{
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
			Breaker:     resilience.NewBreaker(3, 30*time.Second).WithTarget("bcb_ptax"),
			MaxAttempts: 2,
			BaseBackoff: 200 * time.Millisecond,
			Jitter:      0.2,
			Timeout:     timeout,
		},
	}
}

// Fetch retrieves the latest published rate. The call is bounded by the
// configured timeout regardless of the caller's context.
func (c *BCBClient) Fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build ptax request: %w", err)
	}
	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("fetch ptax rate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch ptax rate: unexpected status %s", resp.Status)
	}

	var entries []sgsEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return 0, fmt.Errorf("decode ptax payload: %w", err)
	}
	if len(entries) == 0 {
		return 0, errors.New("decode ptax payload: empty series")
	}
	rate, err := strconv.ParseFloat(entries[0].Valor, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ptax rate %q: %w", entries[0].Valor, err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("parse ptax rate: non-positive value %f", rate)
	}
	return rate, nil
}

// Rate returns the current PTAX rate, or the configured fallback when the
// provider cannot be reached. It never fails.
func (c *BCBClient) Rate(ctx context.Context) float64 {
	rate, err := c.Fetch(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Float64("fallback_rate", c.fallback).Msg("ptax_fetch_failed")
		if obs.ExchangeRateFetchTotal != nil {
			obs.ExchangeRateFetchTotal.WithLabelValues("fallback").Inc()
		}
		return c.fallback
	}
	if obs.ExchangeRateFetchTotal != nil {
		obs.ExchangeRateFetchTotal.WithLabelValues("ok").Inc()
	}
	return rate
}
