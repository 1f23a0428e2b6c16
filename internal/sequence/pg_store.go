package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps counters in the counters table. The upsert bumps and reads
// the counter in a single statement so concurrent callers never observe the
// same value.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) IncrementAndFetch(ctx context.Context, key string) (int64, error) {
	const upsert = `
		INSERT INTO counters (key, seq) VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET seq = counters.seq + 1
		RETURNING seq`

	var seq int64
	err := s.pool.QueryRow(ctx, upsert, key).Scan(&seq)
	if err == nil {
		return seq, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("increment counter %s: %w", key, err)
	}

	// RETURNING yielded nothing, which should not happen for an upsert.
	// Re-read before giving up so a transient anomaly does not take the
	// allocator down.
	err = s.pool.QueryRow(ctx, `SELECT seq FROM counters WHERE key = $1`, key).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("counter %s missing after upsert", key)
	}
	if err != nil {
		return 0, fmt.Errorf("re-read counter %s: %w", key, err)
	}
	return seq, nil
}
