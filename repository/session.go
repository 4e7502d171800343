package repository

import (
	"context"
	"time"

	"github.com/fastygo/overlay/domain"
)

// SessionStore persists login sessions. Implementations return domain errors:
// NotFound when no row matched, Conflict when a generated id collides.
type SessionStore interface {
	Create(ctx context.Context, userID, userAgent, ip string) (*domain.Session, error)
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Refresh moves RefreshedAt forward by at least one second and returns the updated record.
	Refresh(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteOwnedBy(ctx context.Context, id, userID string) error
	// DeleteAllOwnedByExcept succeeds even when nothing was deleted.
	DeleteAllOwnedByExcept(ctx context.Context, userID, keepID string) error
	ListOwnedBy(ctx context.Context, userID string) ([]domain.Session, error)
	DeleteRefreshedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
