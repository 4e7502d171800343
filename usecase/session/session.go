package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/repository"
)

// UseCase lets a signed-in user inspect and end their own sessions.
// userID always comes from validated token claims.
type UseCase struct {
	sessions repository.SessionStore
	logger   *zap.Logger
}

func New(sessions repository.SessionStore, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		sessions: sessions,
		logger:   logger,
	}
}

func (uc *UseCase) List(ctx context.Context, userID string) ([]domain.Session, error) {
	return uc.sessions.ListOwnedBy(ctx, userID)
}

// Delete ends one of the user's sessions. A session owned by someone else is reported as not found.
func (uc *UseCase) Delete(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		return domain.Invalid("session id is required")
	}
	return uc.sessions.DeleteOwnedBy(ctx, sessionID, userID)
}

// DeleteAllExceptCurrent signs the user out everywhere but the calling session.
func (uc *UseCase) DeleteAllExceptCurrent(ctx context.Context, userID, currentID string) error {
	if err := uc.sessions.DeleteAllOwnedByExcept(ctx, userID, currentID); err != nil {
		return err
	}
	uc.logger.Info("other sessions revoked", zap.String("user_id", userID), zap.String("kept_session_id", currentID))
	return nil
}
