package handler

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/overlay/api/transport"
	"github.com/fastygo/overlay/internal/infrastructure/monitor"
	"github.com/fastygo/overlay/pkg/httpcontext"
)

// StatusSource reports dependency health.
type StatusSource interface {
	GetStatus() monitor.Status
}

type HealthHandler struct {
	baseHandler
	monitor StatusSource
}

func NewHealthHandler(mon StatusSource, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]interface{}{
		"timestamp":  time.Now().UTC(),
		"services":   status.Dependencies,
		"last_check": status.LastCheck,
	}

	if status.Healthy() {
		h.respondSuccess(ctx, fasthttp.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, fasthttp.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", payload))
}
