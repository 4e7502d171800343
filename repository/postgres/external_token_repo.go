package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/repository"
)

type externalTokenRepository struct {
	pool   *pgxpool.Pool
	cipher Cipher
}

// NewExternalTokenRepository stores provider refresh tokens encrypted with cipher.
func NewExternalTokenRepository(pool *pgxpool.Pool, cipher Cipher) repository.ExternalTokenRepository {
	return &externalTokenRepository{pool: pool, cipher: cipher}
}

func (r *externalTokenRepository) Get(ctx context.Context, userID string) (*domain.ExternalToken, error) {
	const query = `SELECT user_id, refresh_token, updated_at FROM twitch_data WHERE user_id = $1`

	var (
		token     domain.ExternalToken
		encrypted string
	)
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&token.UserID, &encrypted, &token.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrExternalTokenNotFound
		}
		return nil, domain.Internal("fail query external token", err)
	}

	plain, err := r.cipher.DecryptString(encrypted)
	if err != nil {
		return nil, domain.Internal("fail decrypt external token", err)
	}
	token.RefreshToken = plain
	return &token, nil
}

func (r *externalTokenRepository) Upsert(ctx context.Context, userID, refreshToken string) error {
	encrypted, err := r.cipher.EncryptString(refreshToken)
	if err != nil {
		return domain.Internal("fail encrypt external token", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE twitch_data SET refresh_token = $2, updated_at = now() WHERE user_id = $1`,
		userID, encrypted,
	)
	if err != nil {
		return domain.Internal("fail update external token", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// A concurrent first login may have inserted the row in between.
	_, err = r.pool.Exec(ctx, `
		INSERT INTO twitch_data (user_id, refresh_token)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET refresh_token = EXCLUDED.refresh_token, updated_at = now()`,
		userID, encrypted,
	)
	if err != nil {
		return domain.Internal("fail create external token", err)
	}
	return nil
}
