package handler

import (
	"context"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/overlay/api/transport"
	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/pkg/httpcontext"
)

type SessionService interface {
	List(ctx context.Context, userID string) ([]domain.Session, error)
	Delete(ctx context.Context, userID, sessionID string) error
	DeleteAllExceptCurrent(ctx context.Context, userID, currentID string) error
}

type SessionHandler struct {
	baseHandler
	uc SessionService
}

func NewSessionHandler(uc SessionService, adapter *httpcontext.Adapter, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List the caller's sessions
// @Tags sessions
// @Router /auth/sessions [get]
func (h *SessionHandler) List(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	claims, ok := h.claims(stdCtx, ctx)
	if !ok {
		return
	}
	sessions, err := h.uc.List(stdCtx, claims.Subject)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondJSON(ctx, fasthttp.StatusOK, transport.SessionsResponse{Sessions: sessions})
}

// @Summary End every session of the caller except the current one
// @Tags sessions
// @Router /auth/sessions [delete]
func (h *SessionHandler) DeleteAllExceptCurrent(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	claims, ok := h.claims(stdCtx, ctx)
	if !ok {
		return
	}
	if err := h.uc.DeleteAllExceptCurrent(stdCtx, claims.Subject, claims.ID); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondNoContent(ctx)
}

// @Summary End one of the caller's sessions
// @Tags sessions
// @Router /auth/sessions/{sessionId} [delete]
func (h *SessionHandler) Delete(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	claims, ok := h.claims(stdCtx, ctx)
	if !ok {
		return
	}
	if err := h.uc.Delete(stdCtx, claims.Subject, pathParam(ctx, "sessionId")); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondNoContent(ctx)
}
