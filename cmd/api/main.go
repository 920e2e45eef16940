package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mercavio/checkout/internal/checkout"
	"github.com/mercavio/checkout/internal/client"
	"github.com/mercavio/checkout/internal/config"
	"github.com/mercavio/checkout/internal/events"
	"github.com/mercavio/checkout/internal/gateway"
	"github.com/mercavio/checkout/internal/pricing"
	"github.com/mercavio/checkout/internal/repository"
	"github.com/mercavio/checkout/internal/server"
	"github.com/mercavio/checkout/internal/service"
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

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := client.InitDatabase(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("init database", zap.Error(err))
	}

	ivaRate, err := decimal.NewFromString(cfg.Pricing.IVARate)
	if err != nil {
		logger.Fatal("parse IVA rate", zap.String("rate", cfg.Pricing.IVARate), zap.Error(err))
	}
	platformRate, err := decimal.NewFromString(cfg.Pricing.PlatformCommissionRate)
	if err != nil {
		logger.Fatal("parse platform commission rate", zap.String("rate", cfg.Pricing.PlatformCommissionRate), zap.Error(err))
	}

	// sessions live in redis when configured; the in-memory store covers
	// single-instance deployments and local development
	var sessions checkout.Store = checkout.NewMemoryStore(cfg.Checkout.SessionTTL)
	if cfg.RedisURL != "" {
		rdb, err := client.InitRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Fatal("init redis", zap.Error(err))
		}
		sessions = checkout.NewRedisStore(rdb, cfg.Checkout.SessionTTL)
		logger.Info("checkout sessions stored in redis")
	}

	var publisher events.Publisher = events.NewNoopPublisher(logger)
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = events.NewKafkaPublisher(cfg.KafkaBrokers, logger)
		if err != nil {
			logger.Fatal("init kafka publisher", zap.Error(err))
		}
		logger.Info("order events published to kafka", zap.Strings("brokers", cfg.KafkaBrokers))
	}
	defer publisher.Close()

	placetopay := gateway.WithBreaker(gateway.NewPlacetopayGateway(client.NewPlacetopayClient(&cfg.Placetopay)))
	braintree := gateway.WithBreaker(gateway.NewBraintreeGateway(client.NewBraintreeClient(&cfg.Braintree)))
	registry := gateway.NewRegistry(placetopay, braintree)

	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)
	addressRepo := repository.NewSavedAddressRepository(db)

	pricer := pricing.NewEngine(ivaRate)
	shipping := pricing.NewShippingCalculator(
		pricing.FlatRates{Default: cfg.Pricing.BaseShippingCost},
		cfg.Pricing.FreeShippingThreshold,
	)
	machine := checkout.NewMachine(pricer, shipping)

	commissionService := service.NewCommissionService(platformRate, vendorRepo, commissionRepo, logger)
	orderService := service.NewOrderService(db, pricer, shipping, orderRepo, productRepo, txRepo, publisher, logger)
	paymentService := service.NewPaymentService(db, registry, cfg.BaseURL, orderRepo, txRepo, webhookRepo, commissionService, publisher, logger)
	checkoutService := service.NewCheckoutService(machine, sessions, registry, orderService, orderRepo, productRepo, addressRepo, logger)

	if cfg.Environment.Name == "development" {
		seedDemoCatalog(context.Background(), vendorRepo, productRepo, logger)
	}

	srv := server.NewServer(cfg, checkoutService, orderService, paymentService, commissionService, logger)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	logger.Info("starting http server", zap.String("addr", serverAddr))
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	logger.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Log.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Log.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}
