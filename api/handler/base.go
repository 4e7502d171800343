package handler

import (
	"context"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/overlay/api/transport"
	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/internal/middleware"
	"github.com/fastygo/overlay/pkg/httpcontext"
	appLogger "github.com/fastygo/overlay/pkg/logger"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adapter == nil {
		adapter = httpcontext.NewAdapter(0)
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	return h.adapter.Attach(ctx)
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	transport.WriteJSON(ctx, status, payload)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondNoContent(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// respondError maps err to its status and writes the error envelope. Causes of
// upstream and internal failures are logged but never sent to the client.
func (h baseHandler) respondError(ctx context.Context, rctx *fasthttp.RequestCtx, err error) {
	dErr := domain.AsError(err)
	log := appLogger.WithRequestID(ctx, h.logger).With(
		zap.String("path", string(rctx.Path())),
		zap.String("code", string(dErr.Code)),
	)

	switch dErr.Code {
	case domain.ErrCodeInternal, domain.ErrCodeUpstream:
		log.Error("request failed", zap.Error(err))
	case domain.ErrCodeInvalidToken, domain.ErrCodeExpiredToken, domain.ErrCodeUnauthorized:
		log.Warn("request rejected", zap.Error(err))
	default:
		log.Debug("request rejected", zap.Error(err))
	}

	h.respondJSON(rctx, dErr.Code.Status(), transport.NewError(string(dErr.Code), dErr.PublicMessage(), nil))
}

// claims returns the caller's validated claims or writes 401.
func (h baseHandler) claims(ctx context.Context, rctx *fasthttp.RequestCtx) (domain.Claims, bool) {
	claims, ok := middleware.ClaimsFrom(rctx)
	if !ok {
		h.respondError(ctx, rctx, domain.ErrUnauthorized)
	}
	return claims, ok
}

func pathParam(ctx *fasthttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}
