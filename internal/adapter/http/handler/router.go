package handler

import (
	"time"

	"salesguard/internal/adapter/http/middleware"
	"salesguard/internal/core/domain"
	"salesguard/internal/core/ports"
	"salesguard/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc         ports.AuthService
	SaleSvc         ports.SaleService
	SuspiciousSvc   ports.SuspiciousActivityService
	PriceStatsSvc   ports.PriceStatsService
	AuditLedger     ports.AuditLedger
	WorkerSvc       ports.WorkerService
	ClientSvc       ports.ClientService
	ReportingSvc    ports.ReportingService
	TokenSvc        ports.TokenService
	RateLimitStore  middleware.RateLimitChecker // nil = rate limiting disabled
	RateLimitRules  map[string]middleware.RateLimitRule
	HealthCheckers  []ports.HealthChecker
	Metrics         *metrics.Metrics
	MetricsGatherer prometheus.Gatherer // nil = /metrics not exposed
	MetricsPath     string
	Location        *time.Location
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	if deps.MetricsGatherer != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{})))
	}

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := deps.RateLimitRules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	v1.POST("/auth/login", rl(middleware.GroupAuthLogin), authHandler.Login)

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	authed := v1.Group("", jwtAuth)
	authed.POST("/auth/logout", authHandler.Logout)
	authed.GET("/auth/me", authHandler.Me)

	saleHandler := NewSaleHandler(deps.SaleSvc, loc)
	sales := authed.Group("/sales")
	{
		sales.POST("", rl(middleware.GroupSales), saleHandler.Create)
		sales.GET("", saleHandler.List)
		sales.GET("/:id", saleHandler.Get)
		sales.PUT("/:id", middleware.RequireRole(domain.RoleAdmin), rl(middleware.GroupSales), saleHandler.Update)
		sales.DELETE("/:id", middleware.RequireRole(domain.RoleAdmin), saleHandler.Delete)
	}

	clientHandler := NewClientHandler(deps.ClientSvc)
	clients := authed.Group("/clients")
	{
		clients.GET("", clientHandler.List)
		clients.POST("", clientHandler.Create)
	}

	// --- Admin routes ---
	adminHandler := NewAdminHandler(deps.SuspiciousSvc, deps.PriceStatsSvc, deps.AuditLedger, deps.ReportingSvc, loc)
	workerHandler := NewWorkerHandler(deps.WorkerSvc)
	admin := authed.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	{
		admin.GET("/suspicious", adminHandler.ListSuspicious)
		admin.PATCH("/suspicious/:id/review", adminHandler.Review)
		admin.GET("/price-history", adminHandler.ListPriceHistory)
		admin.GET("/price-history/:product", adminHandler.GetPriceHistory)
		admin.GET("/audit", adminHandler.ListAudit)
		admin.GET("/reports", adminHandler.Reports)

		admin.GET("/workers", workerHandler.List)
		admin.POST("/workers", workerHandler.Create)
		admin.PUT("/workers/:id", workerHandler.Update)
		admin.DELETE("/workers/:id", workerHandler.Delete)
	}

	return r
}
