package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/config"
	httpHandler "github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/adapter/http/handler"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/adapter/oracle"
	pgStorage "github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/adapter/storage/postgres"
	redisStorage "github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/adapter/storage/redis"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/service"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Phoenix settlement service")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	userRepo := pgStorage.NewUserRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	escrowRepo := pgStorage.NewEscrowRepo(pool)
	disputeRepo := pgStorage.NewDisputeRepo(pool)
	withdrawalRepo := pgStorage.NewWithdrawalRepo(pool)
	depositRepo := pgStorage.NewDepositRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	priceCache := redisStorage.NewSpotPriceCache(rdb)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	oracleClient := oracle.NewClient(cfg.Oracle)

	// Initialize business services
	accountSvc := service.NewAccountService(userRepo, hashSvc, tokenSvc, log)
	walletSvc := service.NewWalletService(walletRepo, ledgerRepo, withdrawalRepo, transactor, log)
	escrowSvc := service.NewEscrowService(orderRepo, escrowRepo, disputeRepo, walletSvc, transactor, cfg.Escrow, log)
	disputeSvc := service.NewDisputeService(disputeRepo, escrowRepo, orderRepo, userRepo, walletSvc, transactor, log)
	depositSvc := service.NewDepositService(depositRepo, walletSvc, oracleClient, priceCache, transactor, cfg.Oracle, log)

	// Start the auto-finalize sweeper
	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()
	sweeper := service.NewSweeper(escrowSvc, cfg.Escrow.SweepInterval, log)
	go sweeper.Start(sweepCtx)

	// Initialize rate limit store
	var rateLimitStore *redisStorage.RateLimitStore
	if cfg.RateLimit.Enabled {
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
	}

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AccountSvc:     accountSvc,
		WalletSvc:      walletSvc,
		EscrowSvc:      escrowSvc,
		DisputeSvc:     disputeSvc,
		DepositSvc:     depositSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	sweeper.Stop()
	sweepCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
