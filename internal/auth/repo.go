package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/egx-lab/backend-cotacao/internal/sequence"
)

const uniqueViolation = "23505"

// PGUserStore keeps admin users in Postgres. Users are keyed by an open_id
// derived from the login so re-logins resolve to the same row.
type PGUserStore struct {
	pool      *pgxpool.Pool
	allocator *sequence.Allocator
}

func NewPGUserStore(pool *pgxpool.Pool, allocator *sequence.Allocator) *PGUserStore {
	return &PGUserStore{pool: pool, allocator: allocator}
}

func (s *PGUserStore) UpsertAdmin(ctx context.Context, login string) (User, error) {
	openID := "local:" + login

	user, err := s.touch(ctx, openID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return User{}, err
	}

	id, err := s.allocator.NextID(ctx, sequence.EntityUser)
	if err != nil {
		return User{}, err
	}
	const insert = `
		INSERT INTO users (id, open_id, name, login_method, role)
		VALUES ($1, $2, $3, 'local', 'admin')
		RETURNING id, last_signed_in`

	var created User
	err = s.pool.QueryRow(ctx, insert, id, openID, login).Scan(&created.ID, &created.LastSignedIn)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// Lost the insert race, the row exists now.
			return s.touch(ctx, openID)
		}
		return User{}, fmt.Errorf("insert admin user: %w", err)
	}
	created.Login = login
	created.Role = RoleAdmin
	return created, nil
}

func (s *PGUserStore) touch(ctx context.Context, openID string) (User, error) {
	const update = `
		UPDATE users
		SET last_signed_in = now(), updated_at = now()
		WHERE open_id = $1
		RETURNING id, name, role, last_signed_in`

	var (
		user User
		name *string
		ts   time.Time
	)
	err := s.pool.QueryRow(ctx, update, openID).Scan(&user.ID, &name, &user.Role, &ts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, pgx.ErrNoRows
		}
		return User{}, fmt.Errorf("touch admin user: %w", err)
	}
	if name != nil {
		user.Login = *name
	}
	user.LastSignedIn = ts
	return user, nil
}
