package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/account-service/internal/api/http"
	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/observability"
	"github.com/spec-kit/account-service/internal/persistence"
	"github.com/spec-kit/account-service/internal/service"
	"github.com/spec-kit/account-service/internal/store"
	"github.com/spec-kit/account-service/internal/worker"
)

const outboxReportInterval = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewServiceLogger(*cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, err := persistence.Open(ctx, *cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	defer kv.Close() //nolint:errcheck

	passwords, err := auth.NewPasswordPolicy(cfg.Auth)
	if err != nil {
		logger.Fatal("invalid password policy", zap.Error(err))
	}

	seed := store.DefaultAdmin()
	seed.Name = cfg.Admin.Name
	seed.Email = cfg.Admin.Email
	seed.Phone = cfg.Admin.Phone
	seed.Password, err = passwords.Hash(cfg.Admin.Password)
	if err != nil {
		logger.Fatal("failed to hash admin password", zap.Error(err))
	}

	users := store.New(kv, store.Options{
		KeyPrefix: cfg.Storage.KeyPrefix,
		Passwords: passwords,
		AdminSeed: seed,
		Logger:    logger,
	})
	if err := users.Load(ctx); err != nil {
		logger.Fatal("failed to load user snapshot", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, users, logger, cfg.Notification)
	worker.StartNotificationWorker(ctx, notifications, logger, outboxReportInterval)

	accounts := service.NewAccountService(*cfg, service.AccountDependencies{
		Store:      users,
		Passwords:  passwords,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	profile := service.NewProfileService(accounts)
	authMiddleware := auth.NewAuthMiddleware(accounts.TokenManager(), users)

	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Storage.Backend, kv, metrics),
		Users:          handlers.NewUsersHandler(accounts),
		Session:        handlers.NewSessionHandler(accounts, profile),
		Admin:          handlers.NewAdminHandler(accounts),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
