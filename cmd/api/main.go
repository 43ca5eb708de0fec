package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payment-api-gateway/config"
	"payment-api-gateway/internal/acquirer"
	"payment-api-gateway/internal/acquirer/cybersource"
	acquirermock "payment-api-gateway/internal/acquirer/mock"
	httpHandler "payment-api-gateway/internal/adapter/http/handler"
	"payment-api-gateway/internal/adapter/storage/cardcrypt"
	pgStorage "payment-api-gateway/internal/adapter/storage/postgres"
	redisStorage "payment-api-gateway/internal/adapter/storage/redis"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/internal/service"
	"payment-api-gateway/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	// .env is a dev convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("Starting Payment API Gateway")

	ctx := context.Background()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Repositories
	intentRepo := pgStorage.NewPaymentIntentRepo(pool)
	chargeRepo := pgStorage.NewChargeRepo(pool)
	refundRepo := pgStorage.NewRefundRepo(pool)
	customerRepo := pgStorage.NewCustomerRepo(pool)
	merchantRepo := pgStorage.NewMerchantRepo(pool)
	apiKeyRepo := pgStorage.NewAPIKeyRepo(pool)
	webhookRepo := pgStorage.NewWebhookRepo(pool)
	deliveryRepo := pgStorage.NewWebhookDeliveryRepo(pool)
	balanceRepo := pgStorage.NewBalanceRepo(pool)
	accessLogRepo := pgStorage.NewAccessLogRepo(pool)

	sealer, err := cardcrypt.NewSealer(cfg.Tokens.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize card sealer")
	}

	clock := service.NewRealClock()
	crypto := service.NewCryptoService()

	// Key-value stores: Redis when enabled, Postgres fallbacks otherwise.
	var (
		rateLimitStore   ports.RateLimitStore
		idempotencyStore ports.IdempotencyStore
		tokenVault       ports.CardTokenVault
		healthCheckers   = []ports.HealthChecker{pgStorage.NewHealthCheck(pool)}
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()

		rateLimitStore = redisStorage.NewRateLimitStore(rdb, clock)
		idempotencyStore = redisStorage.NewIdempotencyStore(rdb)
		tokenVault = redisStorage.NewTokenVault(rdb, sealer)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Info().Msg("Redis disabled, using PostgreSQL-backed stores")
		rateLimitStore = pgStorage.NewRateLimitStore(pool, clock, log)
		idempotencyStore = pgStorage.NewIdempotencyStore(pool)
		tokenVault = pgStorage.NewTokenVault(pool, sealer)
	}

	// Acquirer adapters. The mock acquirer is always registered so test
	// merchants work in every environment.
	registry := acquirer.NewRegistry(log)
	registry.Register(acquirermock.New())
	if cfg.CyberSource.Enabled {
		cs, err := cybersource.New(cybersource.Config{
			MerchantID: cfg.CyberSource.MerchantID,
			KeyID:      cfg.CyberSource.KeyID,
			SecretKey:  cfg.CyberSource.SecretKey,
			Endpoint:   cfg.CyberSource.Endpoint,
			Host:       cfg.CyberSource.HostHeader,
		}, clock, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize CyberSource adapter")
		}
		registry.Register(cs)
	}

	// Services
	emitter := service.NewEventEmitter(webhookRepo, deliveryRepo, clock, log)
	router := service.NewRouter(cfg.Routing.DefaultAdapter, log)
	tokenSvc := service.NewCardTokenService(tokenVault, crypto, cfg.Tokens.TTL, log)
	orchestrator := service.NewPaymentOrchestrator(
		intentRepo,
		chargeRepo,
		refundRepo,
		merchantRepo,
		balanceRepo,
		registry,
		router,
		tokenSvc,
		emitter,
		clock,
		log,
	)
	customerSvc := service.NewCustomerService(customerRepo, emitter, clock, log)
	webhookSvc := service.NewWebhookService(webhookRepo, crypto, clock, log)
	balanceSvc := service.NewBalanceService(balanceRepo)
	accessLogSvc := service.NewAccessLogService(accessLogRepo, log)
	defer accessLogSvc.Close()

	// Webhook dispatcher drains the delivery queue in the background.
	dispatcherCtx, stopDispatcher := context.WithCancel(ctx)
	defer stopDispatcher()
	dispatcher := service.NewWebhookDispatcher(
		deliveryRepo,
		crypto,
		clock,
		cfg.Webhook.AttemptTimeout,
		cfg.Webhook.PollInterval,
		cfg.Webhook.BatchSize,
		log,
	)
	go dispatcher.Run(dispatcherCtx)

	engine := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Config:         cfg,
		Log:            log,
		Orchestrator:   orchestrator,
		Customers:      customerSvc,
		Webhooks:       webhookSvc,
		Balance:        balanceSvc,
		Tokens:         tokenSvc,
		AccessLogs:     accessLogSvc,
		APIKeys:        apiKeyRepo,
		RateLimits:     rateLimitStore,
		Idempotency:    idempotencyStore,
		Crypto:         crypto,
		Clock:          clock,
		HealthCheckers: healthCheckers,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
