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
	"golang.org/x/sync/errgroup"

	"github.com/shohoj-krishi/shohoj-krishi/internal/app"
	"github.com/shohoj-krishi/shohoj-krishi/internal/audit"
	"github.com/shohoj-krishi/shohoj-krishi/internal/auth"
	"github.com/shohoj-krishi/shohoj-krishi/internal/authapi"
	"github.com/shohoj-krishi/shohoj-krishi/internal/authority"
	"github.com/shohoj-krishi/shohoj-krishi/internal/guard"
	"github.com/shohoj-krishi/shohoj-krishi/internal/i18n"
	"github.com/shohoj-krishi/shohoj-krishi/internal/observability"
	"github.com/shohoj-krishi/shohoj-krishi/internal/platform/cache"
	"github.com/shohoj-krishi/shohoj-krishi/internal/platform/db"
	"github.com/shohoj-krishi/shohoj-krishi/internal/registration"
	"github.com/shohoj-krishi/shohoj-krishi/internal/roles"
	"github.com/shohoj-krishi/shohoj-krishi/internal/session"
	"github.com/shohoj-krishi/shohoj-krishi/internal/shared"
	"github.com/shohoj-krishi/shohoj-krishi/jobs"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	cookieSessions := shared.NewSessionManager(redisClient, "shohojkrishi_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	apiClient := authapi.NewClient(cfg.AuthAPIURL, cfg.AuthAPITimeout, logger)
	sessionManager := session.NewManager(apiClient, redisClient, cfg.SessionTTL, logger)
	auditRepo := audit.NewRepository(dbpool)
	messages := i18n.NewCatalog()
	metrics := observability.NewMetrics()

	guardMiddleware := guard.Middleware{Sessions: sessionManager, Logger: logger, Metrics: metrics}

	authHandler := auth.NewHandler(logger, sessionManager, cookieSessions, csrfManager, apiClient, auditRepo, metrics, messages)
	registrationHandler := registration.NewHandler(logger, apiClient, redisClient, messages)
	rolesHandler := roles.NewHandler()
	authorityHandler := authority.NewHandler(logger, apiClient)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Middleware: app.MiddlewareConfig{
			Logger:         logger,
			Config:         cfg,
			SessionManager: cookieSessions,
			CSRFManager:    csrfManager,
			Metrics:        metrics,
		},
		Guard:               guardMiddleware,
		AuthHandler:         authHandler,
		RegistrationHandler: registrationHandler,
		RolesHandler:        rolesHandler,
		AuthorityHandler:    authorityHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		// Anonymous requests leave unauthenticated stores behind; reap
		// them here, in the process that holds the map.
		sessionManager.Reap(groupCtx, 10*time.Minute)
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
