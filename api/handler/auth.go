package handler

import (
	"context"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/overlay/api/transport"
	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/pkg/httpcontext"
)

// AuthService is the login and token surface used by AuthHandler.
type AuthService interface {
	AuthorizeURL() string
	ExchangeCode(ctx context.Context, code, userAgent, ip string) (domain.TokenPair, error)
	ValidateToken(ctx context.Context, serialized string) (domain.Claims, error)
	RefreshToken(ctx context.Context, claims domain.Claims) (domain.TokenPair, error)
	RevokeToken(ctx context.Context, sessionID string) error
}

type AuthHandler struct {
	baseHandler
	uc AuthService
}

func NewAuthHandler(uc AuthService, adapter *httpcontext.Adapter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Redirect to the platform consent page
// @Tags auth
// @Router /auth/authorize [get]
func (h *AuthHandler) Authorize(ctx *fasthttp.RequestCtx) {
	url := h.uc.AuthorizeURL()
	if string(ctx.QueryArgs().Peek("redirect")) == "false" {
		h.respondJSON(ctx, fasthttp.StatusOK, transport.AuthorizeURLResponse{URL: url})
		return
	}
	ctx.Redirect(url, fasthttp.StatusTemporaryRedirect)
}

// @Summary Exchange an authorization code for a token pair
// @Tags auth
// @Router /auth/exchange [post]
func (h *AuthHandler) Exchange(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.ExchangeRequest
	if err := transport.Decode(ctx.PostBody(), &req); err != nil {
		h.respondError(stdCtx, ctx, domain.Invalid(err.Error()))
		return
	}

	pair, err := h.uc.ExchangeCode(stdCtx, req.Code, httpcontext.UserAgent(ctx), httpcontext.ClientIP(ctx))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondJSON(ctx, fasthttp.StatusOK, transport.TokenPairResponse(pair))
}

// @Summary Rotate a session and issue a new token pair
// @Tags auth
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.RefreshRequest
	if err := transport.Decode(ctx.PostBody(), &req); err != nil {
		h.respondError(stdCtx, ctx, domain.Invalid(err.Error()))
		return
	}

	claims, err := h.uc.ValidateToken(stdCtx, req.Token)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	if claims.Type != domain.TokenTypeRefresh {
		h.respondError(stdCtx, ctx, domain.InvalidToken())
		return
	}

	pair, err := h.uc.RefreshToken(stdCtx, claims)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondJSON(ctx, fasthttp.StatusOK, transport.TokenPairResponse(pair))
}

// @Summary End the current session
// @Tags auth
// @Router /auth/logout [delete]
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	claims, ok := h.claims(stdCtx, ctx)
	if !ok {
		return
	}
	if err := h.uc.RevokeToken(stdCtx, claims.ID); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondNoContent(ctx)
}
