package repository

import (
	"context"

	"github.com/fastygo/overlay/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetOrCreate returns the stored user, inserting it on first sight. The username is refreshed.
	GetOrCreate(ctx context.Context, id, username string) (*domain.User, error)
}

// ExternalTokenRepository stores the provider refresh token per user.
type ExternalTokenRepository interface {
	Get(ctx context.Context, userID string) (*domain.ExternalToken, error)
	// Upsert updates the stored token and falls back to creating it when the user has none.
	Upsert(ctx context.Context, userID, refreshToken string) error
}
