package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		require.True(t, b.Allow(ctx))
		b.Report(ctx, false)
	}
	require.False(t, b.Allow(ctx), "breaker should be open")
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(3, time.Minute)

	b.Report(ctx, false)
	b.Report(ctx, false)
	b.Report(ctx, true)
	b.Report(ctx, false)
	b.Report(ctx, false)
	require.True(t, b.Allow(ctx))
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(1, 10*time.Millisecond)

	b.Report(ctx, false)
	require.False(t, b.Allow(ctx))

	time.Sleep(20 * time.Millisecond)
	require.True(t, b.Allow(ctx), "cool-off elapsed, probe allowed")
	b.Report(ctx, true)
	require.True(t, b.Allow(ctx), "breaker closed after successful probe")
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(1, 10*time.Millisecond)

	b.Report(ctx, false)
	time.Sleep(20 * time.Millisecond)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.False(t, b.Allow(ctx), "failed probe reopens the breaker")
}

func TestBackoffGrows(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, Backoff(base, 1, 0))
	require.Equal(t, 2*base, Backoff(base, 2, 0))
	require.Equal(t, 4*base, Backoff(base, 3, 0))
}
