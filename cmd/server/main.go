// Package main is the entry point for the LedgerPulse API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledgerpulse/internal/domain/auth"
	"ledgerpulse/internal/domain/ledger"
	"ledgerpulse/internal/domain/reports"
	"ledgerpulse/internal/domain/settlement"
	"ledgerpulse/internal/events"
	"ledgerpulse/internal/events/kafka"
	v1 "ledgerpulse/internal/infrastructure/http/v1"
	"ledgerpulse/internal/infrastructure/storage/postgres"
	"ledgerpulse/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting ledgerpulse server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)
	ledgerRepo := postgres.NewLedgerRepo(txManager)

	// --- Audit ---
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	// --- Events ---
	var publisher events.Publisher = events.NopPublisher{}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		kafkaPublisher := kafka.NewPublisher(
			strings.Split(brokers, ","),
			getEnv("KAFKA_TOPIC", "ledger.settlements"),
		)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Infow("kafka publisher initialized", "brokers", brokers)
	}

	// --- Services ---
	entryService := ledger.NewService(ledgerRepo, txManager)
	settlementService := settlement.NewService(ledgerRepo, txManager, publisher, auditService)
	reportService := reports.NewService(ledgerRepo)

	// --- JWT ---
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(mustEnv("JWT_SECRET")))

	// --- Idempotency ---
	var idempotencyStore *postgres.IdempotencyStore
	if getEnv("IDEMPOTENCY_ENABLED", "true") == "true" {
		idempotencyStore = postgres.NewIdempotencyStore(txManager, v1.IdempotencyTTL)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:              pool,
		Logger:            log,
		JWTValidator:      jwtService,
		EntryService:      entryService,
		SettlementService: settlementService,
		ReportService:     reportService,
		AuditService:      auditService,
		IdempotencyStore:  idempotencyStore,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}
