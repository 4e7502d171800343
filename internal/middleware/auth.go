package middleware

import (
	"context"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/overlay/api/transport"
	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/pkg/httpcontext"
)

const claimsKey = "auth_claims"

// TokenValidator checks a bearer token against its session.
type TokenValidator interface {
	ValidateToken(ctx context.Context, serialized string) (domain.Claims, error)
}

// AccessAuth admits requests carrying a live access token and stores its claims on the request.
func AccessAuth(validator TokenValidator, adapter *httpcontext.Adapter, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adapter == nil {
		adapter = httpcontext.NewAdapter(0)
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				reject(ctx, domain.ErrUnauthorized)
				return
			}

			stdCtx, cancel := adapter.Attach(ctx)
			claims, err := validator.ValidateToken(stdCtx, tokenString)
			cancel()
			if err != nil {
				if domain.IsDomainError(err, domain.ErrCodeInvalidToken) || domain.IsDomainError(err, domain.ErrCodeExpiredToken) {
					logger.Debug("bearer token rejected", zap.Error(err))
				} else {
					logger.Error("bearer token check failed", zap.Error(err))
				}
				reject(ctx, err)
				return
			}
			if claims.Type != domain.TokenTypeAccess {
				reject(ctx, domain.InvalidToken())
				return
			}

			ctx.SetUserValue(claimsKey, claims)
			next(ctx)
		}
	}
}

// ClaimsFrom returns the claims stored by AccessAuth.
func ClaimsFrom(ctx *fasthttp.RequestCtx) (domain.Claims, bool) {
	claims, ok := ctx.UserValue(claimsKey).(domain.Claims)
	return claims, ok
}

func reject(ctx *fasthttp.RequestCtx, err error) {
	dErr := domain.AsError(err)
	transport.WriteJSON(ctx, dErr.Code.Status(), transport.NewError(string(dErr.Code), dErr.PublicMessage(), nil))
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek("Authorization")))
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
