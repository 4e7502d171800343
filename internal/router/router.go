package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/overlay/api/handler"
)

type Handlers struct {
	Auth     *apiHandler.AuthHandler
	Sessions *apiHandler.SessionHandler
	Twitch   *apiHandler.TwitchHandler
	Health   *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.GET("/auth/authorize", handlers.Auth.Authorize)
	r.POST("/auth/exchange", handlers.Auth.Exchange)
	r.POST("/auth/refresh", handlers.Auth.Refresh)
	r.DELETE("/auth/logout", authMiddleware(handlers.Auth.Logout))

	// Session management
	r.GET("/auth/sessions", authMiddleware(handlers.Sessions.List))
	r.DELETE("/auth/sessions", authMiddleware(handlers.Sessions.DeleteAllExceptCurrent))
	r.DELETE("/auth/sessions/{sessionId}", authMiddleware(handlers.Sessions.Delete))

	// Platform lookups
	twitch := r.Group("/v1/twitch")
	twitch.GET("/user/{login}", authMiddleware(handlers.Twitch.UserInfo))
	twitch.GET("/emotes/global", authMiddleware(handlers.Twitch.GlobalEmotes))
	twitch.GET("/emotes/channel/{channelId}", authMiddleware(handlers.Twitch.ChannelEmotes))
	twitch.GET("/badges/global", authMiddleware(handlers.Twitch.GlobalBadges))
	twitch.GET("/badges/channel/{channelId}", authMiddleware(handlers.Twitch.ChannelBadges))

	return r
}
