package handler

import (
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/adapter/http/middleware"
	redisStore "github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/adapter/storage/redis"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AccountSvc     ports.AccountService
	WalletSvc      ports.WalletService
	EscrowSvc      ports.EscrowService
	DisputeSvc     ports.DisputeService
	DepositSvc     ports.DepositService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	// Groups without a listed rule get the fallback rule.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			rule = middleware.FallbackRateLimitRule()
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AccountSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	walletHandler := NewWalletHandler(deps.WalletSvc, deps.DepositSvc)
	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("/balance", rl("wallet"), walletHandler.GetBalance)
		wallet.GET("/transactions", rl("wallet"), walletHandler.ListTransactions)
		wallet.POST("/withdrawals", rl("wallet"), walletHandler.Withdraw)
		wallet.POST("/deposits", rl("deposits"), walletHandler.CreateDeposit)
		wallet.POST("/deposits/confirm", rl("deposits"), walletHandler.ConfirmDeposit)
		wallet.POST("/withdrawals/:id/settle", middleware.RequireRoles(domain.RoleAdmin), walletHandler.SettleWithdrawal)
		wallet.POST("/adjust", middleware.RequireRoles(domain.RoleAdmin), walletHandler.AdminAdjust)
	}

	orderHandler := NewOrderHandler(deps.EscrowSvc)
	orders := v1.Group("/orders", jwtAuth)
	{
		orders.POST("", rl("orders"), orderHandler.Purchase)
		orders.POST("/:id/extend", orderHandler.Extend)
		orders.POST("/:id/confirm", orderHandler.Confirm)
		orders.POST("/:id/dispute", orderHandler.Dispute)
	}

	disputeHandler := NewDisputeHandler(deps.DisputeSvc)
	disputes := v1.Group("/disputes", jwtAuth, middleware.RequireRoles(domain.RoleMediator, domain.RoleAdmin))
	{
		disputes.POST("/:id/resolve", disputeHandler.Resolve)
	}

	oracleHandler := NewOracleHandler(deps.DepositSvc)
	oracle := v1.Group("/oracle", jwtAuth)
	{
		oracle.GET("/price", oracleHandler.Price)
		oracle.GET("/verify/:txHash", oracleHandler.Verify)
	}

	return r
}
