// Package main seeds a development database with a demo owner and a
// spread of ledger entries, and prints a bearer token for that owner.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	appctx "ledgerpulse/internal/core/context"
	"ledgerpulse/internal/core/id"
	"ledgerpulse/internal/core/types"
	"ledgerpulse/internal/domain/auth"
	"ledgerpulse/internal/domain/ledger"
	"ledgerpulse/internal/infrastructure/storage/postgres"
	"ledgerpulse/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	repo := postgres.NewLedgerRepo(txManager)
	service := ledger.NewService(repo, txManager)

	ownerID := id.New()
	ctx = appctx.WithUser(ctx, &appctx.UserContext{
		UserID:  "seed",
		OwnerID: ownerID,
	})

	today := time.Now().UTC().Truncate(24 * time.Hour)

	seeds := []struct {
		entryType ledger.EntryType
		category  ledger.Category
		method    ledger.PaymentMethod
		amount    string
		daysAgo   int
		notes     string
	}{
		{ledger.TypeCashIn, ledger.CategorySales, ledger.MethodCash, "1250.00", 14, "Walk-in sales"},
		{ledger.TypeCashIn, ledger.CategorySales, ledger.MethodBank, "3400.00", 10, "Online orders"},
		{ledger.TypeCashOut, ledger.CategoryCOGS, ledger.MethodBank, "1800.00", 12, "Stock purchase"},
		{ledger.TypeCashOut, ledger.CategoryOpex, ledger.MethodCash, "450.00", 8, "Shop rent share"},
		{ledger.TypeCashOut, ledger.CategoryAssets, ledger.MethodBank, "2200.00", 20, "Display fridge"},
		{ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "1000.00", 7, "Invoice #88, Acme Traders"},
		{ledger.TypeCredit, ledger.CategoryCOGS, ledger.MethodNone, "650.00", 5, "Supplier bill, net 30"},
		{ledger.TypeAdvance, ledger.CategorySales, ledger.MethodBank, "500.00", 3, "Deposit for bulk order"},
		{ledger.TypeAdvance, ledger.CategoryCOGS, ledger.MethodCash, "300.00", 2, "Prepaid raw material"},
	}

	for _, s := range seeds {
		entry := ledger.NewEntry(
			ownerID, s.entryType, s.category, s.method,
			types.MustMoney(s.amount),
			today.AddDate(0, 0, -s.daysAgo),
		)
		entry.Notes = s.notes
		if err := service.Create(ctx, entry); err != nil {
			log.Fatalw("failed to seed entry", "notes", s.notes, "error", err)
		}
	}

	log.Infow("seeded demo ledger", "owner_id", ownerID, "entries", len(seeds))

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		jwtService := auth.NewJWTService(auth.JWTConfig{
			Secret:         secret,
			Issuer:         "ledgerpulse",
			AccessTokenTTL: 24 * time.Hour,
		})
		token, expiresAt, err := jwtService.GenerateAccessToken("seed", ownerID, "demo@example.com", nil)
		if err != nil {
			log.Fatalw("failed to generate token", "error", err)
		}
		fmt.Printf("owner:   %s\n", ownerID)
		fmt.Printf("token:   %s\n", token)
		fmt.Printf("expires: %s\n", expiresAt.Format(time.RFC3339))
	}
}
