package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/repository"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates a Postgres-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, username, created_at FROM users WHERE id = $1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.Username, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Internal("fail query user", err)
	}
	return &user, nil
}

func (r *userRepository) GetOrCreate(ctx context.Context, id, username string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrInvalidPayload
	}

	// An existing row is returned as stored; username is only used on first insert.
	const query = `
		INSERT INTO users (id, username)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
		RETURNING id, username, created_at
	`

	var user domain.User
	err := r.pool.QueryRow(ctx, query, id, username).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.GetByID(ctx, id)
	}
	if err != nil {
		return nil, domain.Internal("fail create user", err)
	}
	return &user, nil
}
