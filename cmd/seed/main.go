// Package main provides a CLI tool for seeding the database with the demo
// catalog, sample invoices and an access token for local runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"paydocs/internal/app"
	"paydocs/internal/config"
	appctx "paydocs/internal/core/context"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/auth"
	"paydocs/pkg/logger"
)

func main() {
	invoices := flag.Int("invoices", 3, "number of sample customer invoices and supplier bills to book")
	tokenUser := flag.String("token-user", "admin", "user the printed access token is issued to")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
		Service:     "paydocs-seed",
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	backend, err := app.OpenBackend(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer backend.Close()

	services, err := app.New(backend.Repos, app.Options{})
	if err != nil {
		log.Fatalw("failed to wire services", "error", err)
	}

	existing, err := services.Catalog.Accounts(ctx)
	if err != nil {
		log.Fatalw("failed to read accounts", "error", err)
	}
	if len(existing) > 0 {
		log.Infow("catalog already seeded, skipping", "accounts", len(existing))
	} else {
		if err := seedDemoData(ctx, services, *invoices, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	if cfg.JWTSecret != "" {
		printToken(cfg.JWTSecret, *tokenUser, log)
	}

	log.Info("seeding completed successfully")
}

func seedDemoData(ctx context.Context, svc *app.Services, n int, log *logger.Logger) error {
	demo, err := app.SeedDemo(ctx, svc)
	if err != nil {
		return err
	}
	log.Infow("demo catalog created",
		"inbound_mode", demo.InboundMode.ID,
		"outbound_mode", demo.OutboundMode.ID,
		"customer", demo.Customer.ID,
		"supplier", demo.Supplier.ID,
	)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i := 1; i <= n; i++ {
		amount := types.NewMoneyFromInt(int64(100 * i))
		maturity := today.AddDate(0, 0, 10*i)

		if _, _, err := demo.CustomerInvoice(ctx, svc, fmt.Sprintf("INV/%03d", i), amount, today, maturity); err != nil {
			return fmt.Errorf("invoice %d: %w", i, err)
		}
		if _, _, err := demo.SupplierBill(ctx, svc, fmt.Sprintf("BILL/%03d", i), amount, today, maturity); err != nil {
			return fmt.Errorf("bill %d: %w", i, err)
		}
	}
	log.Infow("sample invoices booked", "count", n)
	return nil
}

func printToken(secret, userID string, log *logger.Logger) {
	jwt := auth.NewJWTService(auth.DefaultJWTConfig(secret))
	token, expiresAt, err := jwt.GenerateAccessToken(appctx.UserContext{
		UserID:  userID,
		Roles:   []string{auth.RoleManager},
		IsAdmin: true,
	})
	if err != nil {
		log.Errorw("failed to sign token", "error", err)
		return
	}
	log.Infow("access token issued", "user", userID, "expires_at", expiresAt)
	fmt.Println(token)
}
