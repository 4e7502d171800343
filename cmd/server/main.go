package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/overlay/api/handler"
	"github.com/fastygo/overlay/internal/config"
	"github.com/fastygo/overlay/internal/crypt"
	"github.com/fastygo/overlay/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/overlay/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/overlay/internal/infrastructure/redis"
	"github.com/fastygo/overlay/internal/middleware"
	"github.com/fastygo/overlay/internal/router"
	"github.com/fastygo/overlay/internal/services"
	"github.com/fastygo/overlay/internal/services/lifecycle"
	"github.com/fastygo/overlay/internal/token"
	"github.com/fastygo/overlay/internal/twitch"
	"github.com/fastygo/overlay/pkg/httpcontext"
	"github.com/fastygo/overlay/pkg/logger"
	"github.com/fastygo/overlay/repository/postgres"
	redisRepo "github.com/fastygo/overlay/repository/redis"
	authUC "github.com/fastygo/overlay/usecase/auth"
	sessionUC "github.com/fastygo/overlay/usecase/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	signalCtx, stop := lifecycle.SignalContext(context.Background())
	defer stop()

	manager := lifecycle.New(signalCtx, cfg.Context.ShutdownTimeout, zapLogger)
	appCtx := manager.Context()

	if cfg.Migrations.Enabled {
		if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
			zapLogger.Fatal("migrations failed", zap.Error(err))
		}
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pgInfra.Close(pool, zapLogger)
		return nil
	})

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	mon := monitor.New(10*time.Second, zapLogger,
		monitor.PostgresProbe(pool),
		monitor.RedisProbe(redisClient),
	)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	cipher, err := crypt.New(cfg.Auth.CryptSecret)
	if err != nil {
		zapLogger.Fatal("cipher init failed", zap.Error(err))
	}
	codec, err := token.NewCodec(cfg.Auth.JWTSecret)
	if err != nil {
		zapLogger.Fatal("token codec init failed", zap.Error(err))
	}

	userRepo := postgres.NewUserRepository(pool)
	externalTokenRepo := postgres.NewExternalTokenRepository(pool, cipher)
	sessionStore := redisRepo.NewSessionCache(
		postgres.NewSessionStore(pool, cipher),
		redisClient,
		cipher,
		cfg.Auth.SessionCacheTTL,
		zapLogger,
	)

	janitor, err := services.NewSessionJanitor(sessionStore, mon.Dependency(monitor.DependencyPostgres), zapLogger, services.JanitorConfig{
		Schedule: cfg.Janitor.Schedule,
		MaxAge:   token.RefreshTTL,
	})
	if err != nil {
		zapLogger.Fatal("session janitor init failed", zap.Error(err))
	}
	janitor.Start()
	manager.Register("session_janitor", janitor.Stop)

	httpClient := twitch.NewHTTPClient(cfg.Context.RequestTimeout)
	oauth := twitch.NewOAuth(cfg.Twitch, httpClient, zapLogger)
	credentials := twitch.NewCredentialCache(
		twitch.NewClientCredentialsFetcher(cfg.Twitch.ClientID, cfg.Twitch.ClientSecret, oauth.TokenURL(), httpClient),
		zapLogger,
	)
	twitchClient := twitch.NewClient(cfg.Twitch, credentials, httpClient, zapLogger)

	authUseCase := authUC.New(oauth, codec, userRepo, externalTokenRepo, sessionStore, zapLogger)
	sessionUseCase := sessionUC.New(sessionStore, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:     apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger),
		Sessions: apiHandler.NewSessionHandler(sessionUseCase, ctxAdapter, zapLogger),
		Twitch:   apiHandler.NewTwitchHandler(twitchClient, ctxAdapter, zapLogger),
		Health:   apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.AccessAuth(authUseCase, ctxAdapter, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	manager.Go("http_server", func(ctx context.Context) error {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	if err := manager.Wait(); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
