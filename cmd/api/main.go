package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"snaptrade/internal/client"
	"snaptrade/internal/config"
	"snaptrade/internal/job"
	"snaptrade/internal/logger"
	"snaptrade/internal/repository"
	"snaptrade/internal/server"
	"snaptrade/internal/service"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}

	db, err := client.InitDBClient(&cfg.Database)
	if err != nil {
		return err
	}

	gateway, err := newPaymentGateway(cfg)
	if err != nil {
		return err
	}

	storage, err := newAssetStorage(cfg)
	if err != nil {
		return err
	}

	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	assetCleanupRepo := repository.NewAssetCleanupRepository(db)

	policy := service.NewPolicy(cfg.Auth.AdminRole)

	assetService := service.NewAssetService(storage, assetCleanupRepo, policy, log, service.AssetServiceOptions{
		DeleteConcurrency: cfg.Storage.DeleteConcurrency,
		MaxAttempts:       cfg.Reconciler.MaxAttempts,
		BatchSize:         cfg.Reconciler.BatchSize,
	})
	productService := service.NewProductService(productRepo, assetService, policy, log)
	checkoutService := service.NewCheckoutService(
		db, gateway,
		productRepo,
		orderRepo,
		webhookEventRepo,
		policy, log,
		service.CheckoutOptions{
			Currency:          cfg.Checkout.Currency,
			GatewayTimeout:    cfg.Checkout.GatewayTimeout,
			IdempotencyWindow: cfg.Checkout.IdempotencyWindow,
		},
	)

	var reconciler *job.Reconciler
	if cfg.Reconciler.Enabled {
		reconciler, err = job.NewReconciler(assetService, cfg.Reconciler.Schedule, log)
		if err != nil {
			return err
		}
		reconciler.Start()
	}

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(productService, checkoutService, assetService, cfg.Auth.JWTSecret, log)

	log.Info("starting HTTP server",
		zap.String("addr", serverAddr),
		zap.String("environment", cfg.Environment.Name),
		zap.String("gateway", gateway.Name()),
		zap.String("storage", storage.Name()),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-sigChan:
	}
	log.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown", zap.Error(err))
	}
	if reconciler != nil {
		reconciler.Stop(shutdownCtx)
	}
	assetService.Wait()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

func newPaymentGateway(cfg *config.Config) (client.PaymentGateway, error) {
	switch cfg.Checkout.Gateway {
	case "razorpay", "":
		return client.NewRazorpayClient(&cfg.Razorpay, cfg.Checkout.GatewayTimeout), nil
	case "paypal":
		return client.NewPaypalClient(&cfg.Paypal, cfg.Checkout.GatewayTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported payment gateway %q", cfg.Checkout.Gateway)
	}
}

func newAssetStorage(cfg *config.Config) (client.AssetStorage, error) {
	switch cfg.Storage.Provider {
	case "imagekit", "":
		return client.NewImageKitClient(&cfg.ImageKit), nil
	case "gcs":
		return client.NewGCSClient(context.Background(), &cfg.GCS)
	default:
		return nil, fmt.Errorf("unsupported storage provider %q", cfg.Storage.Provider)
	}
}
