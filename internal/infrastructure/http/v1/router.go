// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"ledgerpulse/internal/domain/ledger"
	"ledgerpulse/internal/domain/reports"
	"ledgerpulse/internal/domain/settlement"
	"ledgerpulse/internal/infrastructure/http/v1/handlers"
	"ledgerpulse/internal/infrastructure/http/v1/middleware"
	"ledgerpulse/internal/infrastructure/storage/postgres"
	"ledgerpulse/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks).
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Services
	EntryService      *ledger.Service
	SettlementService *settlement.Service
	ReportService     *reports.Service

	// AuditService exposes per-entry settlement history.
	AuditService *postgres.AuditService

	// IdempotencyStore enables idempotent settlement requests when set.
	IdempotencyStore *postgres.IdempotencyStore
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	apiV1 := router.Group("/api/v1")
	{
		protected := apiV1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		if cfg.IdempotencyStore != nil {
			protected.Use(middleware.Idempotency(cfg.IdempotencyStore))
		}

		baseHandler := handlers.NewBaseHandler()

		entriesHandler := handlers.NewEntriesHandler(baseHandler, cfg.EntryService, cfg.SettlementService)
		entriesGroup := protected.Group("/entries")
		entriesHandler.RegisterRoutes(entriesGroup)

		if cfg.AuditService != nil {
			auditHandler := handlers.NewAuditHandler(baseHandler, cfg.AuditService, cfg.EntryService)
			entriesGroup.GET("/:id/history", auditHandler.GetEntryHistory)
		}

		reportsHandler := handlers.NewReportsHandler(baseHandler, cfg.ReportService)
		reportsHandler.RegisterRoutes(protected.Group("/reports"))
	}

	return router
}

// IdempotencyTTL is how long a settlement idempotency key stays replayable.
const IdempotencyTTL = 10 * time.Minute
