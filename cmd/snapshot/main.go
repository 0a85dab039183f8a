// Command snapshot writes end-of-day ledger snapshots, either for every
// ledger or for one. It is meant to run from cron after midnight UTC.
package main

import (
	"fmt"
	"os"
	"time"

	"ledgerbook/internal/config"
	"ledgerbook/internal/database"
	"ledgerbook/internal/events"
	"ledgerbook/internal/logger"
	"ledgerbook/internal/services"
	"ledgerbook/internal/store"
	"ledgerbook/internal/valuation"
)

const usage = "usage: snapshot <all|LEDGER_ID> [YYYY-MM-DD]"

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(os.Args[1:]); err != nil {
		logger.Get().Fatalf("Snapshot error: %v", err)
	}
}

func run(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf(usage)
	}

	// Default to yesterday: the last day that is complete.
	asOf := time.Now().UTC().AddDate(0, 0, -1)
	if len(args) == 2 {
		day, err := time.Parse("2006-01-02", args[1])
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", args[1], err)
		}
		asOf = day
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	taxes, err := valuation.LoadTaxTable(cfg.TaxTablePath)
	if err != nil {
		return fmt.Errorf("failed to load tax table: %w", err)
	}

	st := store.NewGormStore(dbManager.DB())
	revaluer := services.NewRevaluer(taxes, events.NopPublisher{})
	snapshots := services.NewSnapshotService(st, revaluer, services.NewLedgerLocker())

	log := logger.Get()
	if args[0] == "all" {
		n, err := snapshots.GenerateAll(asOf)
		if err != nil {
			return err
		}
		log.Infof("Wrote %d snapshots for %s", n, asOf.Format("2006-01-02"))
		return nil
	}

	snap, err := snapshots.Generate(args[0], asOf)
	if err != nil {
		return err
	}
	log.Infow("snapshot written",
		"ledger_id", snap.LedgerUID,
		"snapshot_date", snap.SnapshotDate.Format("2006-01-02"),
		"balance", snap.Balance,
	)
	return nil
}
