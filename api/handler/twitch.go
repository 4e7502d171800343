package handler

import (
	"context"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/pkg/httpcontext"
)

// TwitchService exposes the Helix lookups the overlay editor needs.
type TwitchService interface {
	GetUserInfo(ctx context.Context, login string) (domain.UserInfo, error)
	GetGlobalEmotes(ctx context.Context) ([]domain.Emote, error)
	GetChannelEmotes(ctx context.Context, channelID string) ([]domain.Emote, error)
	GetGlobalBadges(ctx context.Context) ([]domain.Badge, error)
	GetChannelBadges(ctx context.Context, channelID string) ([]domain.Badge, error)
}

type TwitchHandler struct {
	baseHandler
	api TwitchService
}

func NewTwitchHandler(api TwitchService, adapter *httpcontext.Adapter, logger *zap.Logger) *TwitchHandler {
	return &TwitchHandler{
		baseHandler: newBaseHandler(adapter, logger),
		api:         api,
	}
}

// @Summary Look up a user by login
// @Tags twitch
// @Router /v1/twitch/user/{login} [get]
func (h *TwitchHandler) UserInfo(ctx *fasthttp.RequestCtx) {
	h.serve(ctx, func(stdCtx context.Context) (interface{}, error) {
		login := pathParam(ctx, "login")
		if login == "" {
			return nil, domain.Invalid("login is required")
		}
		return h.api.GetUserInfo(stdCtx, login)
	})
}

// @Summary Global chat emotes
// @Tags twitch
// @Router /v1/twitch/emotes/global [get]
func (h *TwitchHandler) GlobalEmotes(ctx *fasthttp.RequestCtx) {
	h.serve(ctx, func(stdCtx context.Context) (interface{}, error) {
		return h.api.GetGlobalEmotes(stdCtx)
	})
}

// @Summary Channel chat emotes
// @Tags twitch
// @Router /v1/twitch/emotes/channel/{channelId} [get]
func (h *TwitchHandler) ChannelEmotes(ctx *fasthttp.RequestCtx) {
	h.serve(ctx, func(stdCtx context.Context) (interface{}, error) {
		return h.api.GetChannelEmotes(stdCtx, pathParam(ctx, "channelId"))
	})
}

// @Summary Global chat badges
// @Tags twitch
// @Router /v1/twitch/badges/global [get]
func (h *TwitchHandler) GlobalBadges(ctx *fasthttp.RequestCtx) {
	h.serve(ctx, func(stdCtx context.Context) (interface{}, error) {
		return h.api.GetGlobalBadges(stdCtx)
	})
}

// @Summary Channel chat badges
// @Tags twitch
// @Router /v1/twitch/badges/channel/{channelId} [get]
func (h *TwitchHandler) ChannelBadges(ctx *fasthttp.RequestCtx) {
	h.serve(ctx, func(stdCtx context.Context) (interface{}, error) {
		return h.api.GetChannelBadges(stdCtx, pathParam(ctx, "channelId"))
	})
}

func (h *TwitchHandler) serve(ctx *fasthttp.RequestCtx, fetch func(context.Context) (interface{}, error)) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	payload, err := fetch(stdCtx)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondJSON(ctx, fasthttp.StatusOK, payload)
}
