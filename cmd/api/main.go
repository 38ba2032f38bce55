package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"salesguard/config"
	httpHandler "salesguard/internal/adapter/http/handler"
	"salesguard/internal/adapter/http/middleware"
	pgStorage "salesguard/internal/adapter/storage/postgres"
	redisStorage "salesguard/internal/adapter/storage/redis"
	"salesguard/internal/core/ports"
	"salesguard/internal/metrics"
	"salesguard/internal/service"
	"salesguard/pkg/clock"
	"salesguard/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
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

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("timezone", cfg.Business.Timezone).
		Msg("Starting SalesGuard")

	clk, err := clock.NewSystem(cfg.Business.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load business timezone")
	}

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, cfg.Business.Timezone, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize repositories
	saleRepo := pgStorage.NewSaleRepo(pool)
	priceRepo := pgStorage.NewPriceHistoryRepo(pool)
	findingRepo := pgStorage.NewSuspiciousActivityRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	workerRepo := pgStorage.NewWorkerRepo(pool)
	clientRepo := pgStorage.NewClientRepo(pool)
	reportRepo := pgStorage.NewReportRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	hashSvc := service.NewBcryptHashService(bcrypt.DefaultCost)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	auditLedger := service.NewAuditService(auditRepo, clk, logger.Component(log, "audit"))
	priceStats := service.NewPriceStatsService(priceRepo, clk)

	rules := service.DefaultRules(service.RuleConfig{
		HighValueThreshold: decimal.NewFromFloat(cfg.Suspicion.HighValueThreshold),
		Currency:           cfg.Business.Currency,
		RapidMaxSales:      int64(cfg.Suspicion.RapidMaxSales),
	})
	suspicion := service.NewSuspicionService(
		priceRepo,
		saleRepo,
		findingRepo,
		rules,
		service.SuspicionOptions{
			RapidWindow:    cfg.Suspicion.RapidWindow,
			ActivityWindow: cfg.Suspicion.ActivityWindow,
			FactTimeout:    cfg.Suspicion.FactTimeout,
		},
		clk,
		m,
		logger.Component(log, "suspicion"),
	)

	// Initialize business services
	saleSvc := service.NewSaleService(
		saleRepo,
		clientRepo,
		priceStats,
		suspicion,
		auditLedger,
		idempotencyCache,
		idempotencyRepo,
		transactor,
		clk,
		cfg.Idempotency.TTL,
		m,
		logger.Component(log, "sales"),
	)
	authSvc := service.NewAuthService(workerRepo, hashSvc, tokenSvc, auditLedger, logger.Component(log, "auth"))
	workerSvc := service.NewWorkerService(workerRepo, hashSvc, auditLedger, clk, logger.Component(log, "workers"))
	clientSvc := service.NewClientService(clientRepo, auditLedger, clk, logger.Component(log, "clients"))
	suspiciousSvc := service.NewSuspiciousActivityService(findingRepo, clk, logger.Component(log, "review"))
	reportingSvc := service.NewReportingService(reportRepo, cfg.Business.Timezone)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	deps := httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		SaleSvc:        saleSvc,
		SuspiciousSvc:  suspiciousSvc,
		PriceStatsSvc:  priceStats,
		AuditLedger:    auditLedger,
		WorkerSvc:      workerSvc,
		ClientSvc:      clientSvc,
		ReportingSvc:   reportingSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		RateLimitRules: middleware.DefaultRateLimitRules(cfg.RateLimit),
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Metrics:        m,
		Location:       clk.Location(),
		Logger:         log,
	}
	if cfg.Metrics.Enabled {
		deps.MetricsGatherer = reg
		deps.MetricsPath = cfg.Metrics.Path
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(deps)

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
