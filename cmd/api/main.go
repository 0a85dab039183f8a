package main

import (
	"fmt"
	"os"

	"ledgerbook/internal/chart"
	"ledgerbook/internal/config"
	"ledgerbook/internal/database"
	"ledgerbook/internal/events"
	"ledgerbook/internal/logger"
	"ledgerbook/internal/router"
	"ledgerbook/internal/services"
	"ledgerbook/internal/store"
	"ledgerbook/internal/validator"
	"ledgerbook/internal/valuation"
)

// @title           Ledgerbook API
// @version         1.0
// @description     Ledgerbook tracks personal money ledgers and values them over time.

// @host      localhost:8080
// @BasePath  /api/v1

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	taxes, err := valuation.LoadTaxTable(appConfig.TaxTablePath)
	if err != nil {
		return fmt.Errorf("failed to load tax table: %w", err)
	}

	publisher := events.New(appConfig.KafkaBrokers, appConfig.KafkaTopic)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warnw("failed to close event publisher", "error", err)
		}
	}()

	validator.Register()

	st := store.NewGormStore(dbManager.DB())
	revaluer := services.NewRevaluer(taxes, publisher)
	locker := services.NewLedgerLocker()

	r := router.New(router.Services{
		Categories:   services.NewCategoryService(st),
		Ledgers:      services.NewLedgerService(st, revaluer, locker),
		Transactions: services.NewTransactionService(st, revaluer, locker, appConfig.ConversionEpsilon),
		Snapshots:    services.NewSnapshotService(st, revaluer, locker),
		Charts:       services.NewChartService(st, revaluer, chart.NewCache(appConfig.ChartCacheTTL)),
		Audit:        services.NewAuditService(st),
	}, router.Options{
		RateLimitRPS:   appConfig.RateLimitRPS,
		RateLimitBurst: appConfig.RateLimitBurst,
	})

	log.Infof("Starting Ledgerbook server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return r.Run(":" + appConfig.Port)
}
