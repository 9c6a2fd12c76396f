// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"spareflow/internal/app"
	"spareflow/internal/infrastructure/http/v1/handlers"
	"spareflow/internal/infrastructure/http/v1/middleware"
	"spareflow/internal/infrastructure/metrics"
	"spareflow/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Services are the lifecycle managers behind the API
	Services *app.Services

	// Database backs the readiness probe; nil on the in-memory store
	Database handlers.Database

	// Metrics, when set, records HTTP samples and serves /metrics
	Metrics *metrics.Metrics

	// TokenValidator, when set, requires a bearer token on /api/v1
	TokenValidator middleware.TokenValidator

	// Idempotency, when set, replays POSTs carrying X-Idempotency-Key
	Idempotency middleware.IdempotencyStore

	// Debug switches gin to debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
	}
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	healthHandler := handlers.NewHealthHandler(cfg.Database)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", cfg.Metrics.Handler())
	}

	v1 := router.Group("/api/v1")
	if cfg.TokenValidator != nil {
		v1.Use(middleware.Auth(cfg.TokenValidator))
	}
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerIssueRoutes(v1, handlers.NewIssueHandler(base, cfg.Services.Issue))
	registerReturnRoutes(v1, handlers.NewReturnHandler(base, cfg.Services.Returns))
	registerInventoryRoutes(v1, handlers.NewInventoryHandler(base, cfg.Services.Inventory))

	return router
}

func registerIssueRoutes(rg *gin.RouterGroup, h *handlers.IssueHandler) {
	rg.POST("/create-issue-request", h.Create)
	rg.POST("/approve-issue-request/:id", h.Approve)
	rg.POST("/reject-issue-request/:id", h.Reject)
	rg.POST("/complete-issue-movement/:id", h.CompleteMovement)
	rg.GET("/list-issue-requests", h.List)
	rg.GET("/issue-request-details/:id", h.Get)
}

func registerReturnRoutes(rg *gin.RouterGroup, h *handlers.ReturnHandler) {
	rg.POST("/create-return-request", h.Create)
	rg.POST("/update-return/:id", h.Update)
	rg.POST("/receive-return/:id", h.Receive)
	rg.POST("/verify-return/:id", h.Verify)
	rg.POST("/reject-return/:id", h.Reject)
	rg.POST("/reopen-return/:id", h.Reopen)
	rg.GET("/list-returns", h.List)
	rg.GET("/return-details/:id", h.Get)
}

func registerInventoryRoutes(rg *gin.RouterGroup, h *handlers.InventoryHandler) {
	rg.GET("/inventory-pools", h.ListPools)
}
