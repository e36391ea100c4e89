package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/firepit-chat/firepit/internal/apicache"
	"github.com/firepit-chat/firepit/internal/app"
	"github.com/firepit-chat/firepit/internal/observability"
	"github.com/firepit-chat/firepit/internal/permissions"
	platformcache "github.com/firepit-chat/firepit/internal/platform/cache"
	"github.com/firepit-chat/firepit/internal/platform/db"
	"github.com/firepit-chat/firepit/internal/ratelimit"
	"github.com/firepit-chat/firepit/internal/roles"
	"github.com/firepit-chat/firepit/internal/servers"
	"github.com/firepit-chat/firepit/internal/shared"
	"github.com/firepit-chat/firepit/internal/upstream"
	"github.com/firepit-chat/firepit/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := platformcache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	if err := apicache.SetupMetrics(metrics.Registerer()); err != nil {
		logger.Warn("register cache metrics", slog.Any("error", err))
	}

	tokenStore := shared.NewTokenStore(redisClient, cfg.TokenTTL)
	requestCache := apicache.New()
	limiter := ratelimit.NewLimiter()

	permissionsService := permissions.NewService(permissions.NewRepository(dbpool))
	permissionsHandler := permissions.NewHandler(logger, permissionsService)
	guard := permissions.Middleware{Service: permissionsService, Logger: logger}

	rolesService := roles.NewService(roles.NewRepository(dbpool))
	rolesHandler := roles.NewHandler(logger, rolesService, guard, limiter,
		ratelimit.Config{MaxRequests: cfg.RoleEditRateLimit, Window: cfg.RoleEditRateWindow})

	serversService := servers.NewService(servers.NewRepository(dbpool), requestCache)
	serversHandler := servers.NewHandler(logger, serversService, limiter,
		ratelimit.Config{MaxRequests: cfg.ActionRateLimit, Window: cfg.ActionRateWindow})

	releases := upstream.NewReleaseClient(nil, cfg.ReleaseFeedURL, requestCache, cfg.ReleaseCacheTTL)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		TokenStore:         tokenStore,
		PermissionsHandler: permissionsHandler,
		RolesHandler:       rolesHandler,
		ServersHandler:     serversHandler,
		Releases:           releases,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
