package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/internal/token"
	"github.com/fastygo/overlay/repository"
)

const (
	createAttempts = 3
	refreshTimeout = 10 * time.Second
)

// Provider is the platform side of the login flow.
type Provider interface {
	AuthorizeURL() string
	ExchangeCode(ctx context.Context, code string) (domain.ProviderTokens, domain.UserInfo, error)
}

// TokenCodec mints and decodes bearer tokens.
type TokenCodec interface {
	MintAccess(sessionID, userID, username string, refTime time.Time) (string, domain.Claims, error)
	MintRefresh(sessionID, userID, username string, refTime time.Time) (string, domain.Claims, error)
	Validate(serialized string) (domain.Claims, error)
}

// UseCase binds bearer tokens to live sessions. A token is accepted only while
// its nbf equals the session's RefreshedAt, so every refresh retires all tokens
// minted before it.
type UseCase struct {
	provider       Provider
	codec          TokenCodec
	users          repository.UserRepository
	externalTokens repository.ExternalTokenRepository
	sessions       repository.SessionStore
	refreshes      singleflight.Group
	logger         *zap.Logger
}

func New(
	provider Provider,
	codec TokenCodec,
	users repository.UserRepository,
	externalTokens repository.ExternalTokenRepository,
	sessions repository.SessionStore,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		provider:       provider,
		codec:          codec,
		users:          users,
		externalTokens: externalTokens,
		sessions:       sessions,
		logger:         logger,
	}
}

func (uc *UseCase) AuthorizeURL() string {
	return uc.provider.AuthorizeURL()
}

// ExchangeCode completes the OAuth callback: it resolves the platform identity,
// records the user and their platform refresh token, opens a session and returns
// the first token pair. Nothing is minted if any earlier step fails.
func (uc *UseCase) ExchangeCode(ctx context.Context, code, userAgent, ip string) (domain.TokenPair, error) {
	if code == "" {
		return domain.TokenPair{}, domain.Invalid("code is required")
	}

	providerTokens, info, err := uc.provider.ExchangeCode(ctx, code)
	if err != nil {
		return domain.TokenPair{}, err
	}

	user, err := uc.users.GetOrCreate(ctx, info.ID, info.Login)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := uc.externalTokens.Upsert(ctx, user.ID, providerTokens.RefreshToken); err != nil {
		return domain.TokenPair{}, err
	}

	session, err := uc.createSession(ctx, user.ID, userAgent, ip)
	if err != nil {
		return domain.TokenPair{}, err
	}

	pair, err := uc.mintPair(session, user.Username)
	if err != nil {
		return domain.TokenPair{}, err
	}

	uc.logger.Info("user authorized", zap.String("user_id", user.ID), zap.String("session_id", session.ID))
	return pair, nil
}

// ValidateToken decodes serialized and checks it against the live session.
func (uc *UseCase) ValidateToken(ctx context.Context, serialized string) (domain.Claims, error) {
	claims, err := uc.codec.Validate(serialized)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return domain.Claims{}, domain.ExpiredToken()
		}
		return domain.Claims{}, domain.InvalidToken()
	}

	session, err := uc.sessions.Get(ctx, claims.ID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return domain.Claims{}, domain.InvalidToken()
		}
		return domain.Claims{}, err
	}

	if claims.Subject != session.UserID {
		uc.logger.Warn("token subject does not own session", zap.String("session_id", session.ID))
		return domain.Claims{}, domain.InvalidToken()
	}
	if claims.NotBefore != session.Fence() {
		return domain.Claims{}, domain.ExpiredToken()
	}
	return claims, nil
}

// RevokeToken ends the session the token belongs to.
func (uc *UseCase) RevokeToken(ctx context.Context, sessionID string) error {
	if err := uc.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	uc.logger.Info("session revoked", zap.String("session_id", sessionID))
	return nil
}

// RefreshToken rotates the session and returns a new pair. claims must come from
// ValidateToken. Concurrent calls carrying the same token share one rotation, which
// is not cancelled when the caller that started it goes away. A session rotated too
// often within a few seconds reports domain.ErrRefreshTooSoon and keeps its current pair.
func (uc *UseCase) RefreshToken(ctx context.Context, claims domain.Claims) (domain.TokenPair, error) {
	if claims.Type != domain.TokenTypeRefresh {
		return domain.TokenPair{}, domain.InvalidToken()
	}

	key := fmt.Sprintf("%s@%d", claims.ID, claims.NotBefore)
	v, err, shared := uc.refreshes.Do(key, func() (any, error) {
		rotateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		session, err := uc.sessions.Refresh(rotateCtx, claims.ID)
		if err != nil {
			switch {
			case domain.IsDomainError(err, domain.ErrCodeNotFound):
				return nil, domain.InvalidToken()
			case errors.Is(err, domain.ErrRefreshTooSoon):
				uc.logger.Info("refresh throttled", zap.String("session_id", claims.ID))
			}
			return nil, err
		}
		return uc.mintPair(session, claims.Username)
	})
	if err != nil {
		return domain.TokenPair{}, err
	}
	if shared {
		uc.logger.Debug("refresh collapsed", zap.String("session_id", claims.ID))
	}
	return v.(domain.TokenPair), nil
}

func (uc *UseCase) createSession(ctx context.Context, userID, userAgent, ip string) (*domain.Session, error) {
	var err error
	for attempt := 1; attempt <= createAttempts; attempt++ {
		var session *domain.Session
		session, err = uc.sessions.Create(ctx, userID, userAgent, ip)
		if err == nil {
			return session, nil
		}
		if !domain.IsDomainError(err, domain.ErrCodeConflict) {
			return nil, err
		}
		uc.logger.Warn("session id collision, retrying", zap.Int("attempt", attempt))
	}
	return nil, domain.Internal("fail create session", err)
}

func (uc *UseCase) mintPair(session *domain.Session, username string) (domain.TokenPair, error) {
	access, _, err := uc.codec.MintAccess(session.ID, session.UserID, username, session.RefreshedAt)
	if err != nil {
		return domain.TokenPair{}, domain.Internal("fail mint access token", err)
	}
	refresh, _, err := uc.codec.MintRefresh(session.ID, session.UserID, username, session.RefreshedAt)
	if err != nil {
		return domain.TokenPair{}, domain.Internal("fail mint refresh token", err)
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
