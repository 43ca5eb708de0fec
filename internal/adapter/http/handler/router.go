package handler

import (
	"payment-api-gateway/config"
	"payment-api-gateway/internal/adapter/http/middleware"
	"payment-api-gateway/internal/core/ports"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds everything the router needs.
type RouterDeps struct {
	Config *config.Config
	Log    zerolog.Logger

	Orchestrator ports.PaymentOrchestrator
	Customers    ports.CustomerService
	Webhooks     ports.WebhookService
	Balance      ports.BalanceService
	Tokens       ports.CardTokenService
	AccessLogs   ports.AccessLogService

	APIKeys     ports.APIKeyRepository
	RateLimits  ports.RateLimitStore
	Idempotency ports.IdempotencyStore

	Crypto ports.Crypto
	Clock  ports.Clock

	HealthCheckers []ports.HealthChecker
}

// SetupRouter wires middleware and routes.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(deps.Config.Server.Mode)
	r := gin.New()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders,
		"Authorization", middleware.HeaderIdempotencyKey, middleware.HeaderRequestID)

	r.Use(middleware.Recovery(deps.Log))
	r.Use(cors.New(corsCfg))
	r.Use(middleware.RequestID(deps.Crypto))
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(middleware.Metrics())

	healthHandler := NewHealthHandler(deps.Config.Server.Environment, deps.HealthCheckers...)
	r.GET("/", healthHandler.Check)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	intents := NewPaymentIntentHandler(deps.Orchestrator)
	charges := NewChargeHandler(deps.Orchestrator)
	refunds := NewRefundHandler(deps.Orchestrator)
	customers := NewCustomerHandler(deps.Customers)
	webhooks := NewWebhookHandler(deps.Webhooks)
	balance := NewBalanceHandler(deps.Balance)
	tokens := NewTokenHandler(deps.Tokens)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Auth(deps.APIKeys, deps.Crypto, deps.Clock, deps.Log))
	v1.Use(middleware.RateLimit(deps.RateLimits, deps.Config.RateLimit.Max, deps.Config.RateLimit.Window, deps.Log))
	v1.Use(middleware.Idempotency(deps.Idempotency, deps.Crypto, deps.Clock, deps.Config.Idempotency.TTL, deps.Log))
	v1.Use(middleware.AccessLog(deps.AccessLogs, deps.Clock))

	// Tokenization is the one endpoint publishable keys may call.
	v1.POST("/tokens", tokens.Create)

	secret := v1.Group("")
	secret.Use(middleware.RequireSecretKey())
	{
		secret.POST("/payment_intents", intents.Create)
		secret.GET("/payment_intents", intents.List)
		secret.GET("/payment_intents/:id", intents.Get)
		secret.PATCH("/payment_intents/:id", intents.Update)
		secret.POST("/payment_intents/:id/confirm", intents.Confirm)
		secret.POST("/payment_intents/:id/complete_authentication", intents.CompleteAuthentication)
		secret.POST("/payment_intents/:id/capture", intents.Capture)
		secret.POST("/payment_intents/:id/cancel", intents.Cancel)

		secret.GET("/charges", charges.List)
		secret.GET("/charges/:id", charges.Get)

		secret.POST("/refunds", refunds.Create)
		secret.GET("/refunds", refunds.List)
		secret.GET("/refunds/:id", refunds.Get)

		secret.POST("/customers", customers.Create)
		secret.GET("/customers", customers.List)
		secret.GET("/customers/:id", customers.Get)
		secret.PATCH("/customers/:id", customers.Update)
		secret.DELETE("/customers/:id", customers.Delete)

		secret.POST("/webhooks", webhooks.Create)
		secret.GET("/webhooks", webhooks.List)
		secret.GET("/webhooks/:id", webhooks.Get)
		secret.DELETE("/webhooks/:id", webhooks.Delete)

		secret.GET("/balance/summary", balance.Summary)
		secret.GET("/balance/transactions", balance.ListTransactions)
		secret.GET("/balance/transactions/:id", balance.GetTransaction)
	}

	return r
}
