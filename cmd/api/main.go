package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mkasimov/beat808-backend/api/routes"
	"github.com/mkasimov/beat808-backend/internal/arbitration"
	"github.com/mkasimov/beat808-backend/internal/notifications"
	"github.com/mkasimov/beat808-backend/internal/orders"
	"github.com/mkasimov/beat808-backend/internal/refunds"
	"github.com/mkasimov/beat808-backend/internal/wallet"
	"github.com/mkasimov/beat808-backend/internal/withdrawals"
	"github.com/mkasimov/beat808-backend/pkg/config"
	"github.com/mkasimov/beat808-backend/pkg/db"
	"github.com/mkasimov/beat808-backend/pkg/logger"
	"github.com/mkasimov/beat808-backend/pkg/migrate"
	"github.com/mkasimov/beat808-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	notifier := notifications.NewTelegram(cfg.Telegram, logg)

	ordersRepo := orders.NewRepository(dbClient.DB())
	walletRepo := wallet.NewRepository(dbClient.DB())

	walletSvc, err := wallet.NewService(walletRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	arbitrationSvc, err := arbitration.NewService(arbitration.NewRepository(dbClient.DB()), ordersRepo, walletRepo, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create arbitration service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(ordersRepo, walletRepo, dbClient, arbitrationSvc, notifier, logg, cfg.Orders.SellerCutPercent)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	refundsSvc, err := refunds.NewService(refunds.NewRepository(dbClient.DB()), walletRepo, dbClient, notifier, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	withdrawalsSvc, err := withdrawals.NewService(withdrawals.NewRepository(dbClient.DB()), walletRepo, dbClient, notifier, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create withdrawals service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			ordersSvc,
			walletSvc,
			withdrawalsSvc,
			arbitrationSvc,
			refundsSvc,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(timeoutCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shut down")
}
