package services

import (
	"testing"
	"time"

	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/testutil"
)

func TestGenerateSnapshot(t *testing.T) {
	t.Run("values_end_of_day", func(t *testing.T) {
		env := newTestEnv(t)
		ledger := env.ledger(t)
		first := env.add(t, ledger, models.TransactionTypeIncome, 100, testutil.Day(2024, 1, 1))
		env.add(t, ledger, models.TransactionTypeExpense, 30, testutil.Day(2024, 1, 3).Add(18*time.Hour))

		snap, err := env.snapshots.Generate(ledger.UID, testutil.Day(2024, 1, 2).Add(9*time.Hour))
		testutil.AssertNoError(t, err)

		if !snap.SnapshotDate.Equal(testutil.Day(2024, 1, 2)) {
			t.Errorf("expected snapshot date 2024-01-02, got %v", snap.SnapshotDate)
		}
		if snap.Balance != 100 {
			t.Errorf("expected balance 100, got %v", snap.Balance)
		}
		if snap.CalculatedFromTxUID == nil || *snap.CalculatedFromTxUID != first.UID {
			t.Error("expected the snapshot to record the income as its last transaction")
		}

		snap, err = env.snapshots.Generate(ledger.UID, testutil.Day(2024, 1, 3))
		testutil.AssertNoError(t, err)
		if snap.Balance != 70 {
			t.Errorf("expected the late expense included on its own day, got balance %v", snap.Balance)
		}
		testutil.AssertSnapshotMatchesLedger(t, snap, env.reload(t, ledger))
	})

	t.Run("idempotent", func(t *testing.T) {
		env := newTestEnv(t)
		ledger := env.ledger(t)
		env.add(t, ledger, models.TransactionTypeIncome, 100, testutil.Day(2024, 1, 1))

		asOf := testutil.Day(2024, 1, 10)
		first, err := env.snapshots.Generate(ledger.UID, asOf)
		testutil.AssertNoError(t, err)
		second, err := env.snapshots.Generate(ledger.UID, asOf)
		testutil.AssertNoError(t, err)

		if first.UID != second.UID {
			t.Errorf("expected the same snapshot, got %s and %s", first.UID, second.UID)
		}
		if first.Balance != second.Balance || first.IRR != second.IRR {
			t.Error("expected identical values")
		}

		var count int64
		env.db.Model(&models.LedgerSnapshot{}).
			Where("ledger_id = ? AND snapshot_date = ?", ledger.ID, asOf).
			Count(&count)
		if count != 1 {
			t.Errorf("expected 1 snapshot for the day, got %d", count)
		}
	})

	t.Run("refreshed_by_back_dated_transaction", func(t *testing.T) {
		env := newTestEnv(t)
		ledger := env.ledger(t)
		env.add(t, ledger, models.TransactionTypeIncome, 100, testutil.Day(2024, 1, 1))
		_, err := env.snapshots.Generate(ledger.UID, testutil.Day(2024, 1, 10))
		testutil.AssertNoError(t, err)

		late := env.add(t, ledger, models.TransactionTypeIncome, 50, testutil.Day(2024, 1, 5))

		snap, err := env.store.GetSnapshot(ledger.ID, testutil.Day(2024, 1, 10))
		testutil.AssertNoError(t, err)
		if snap.Balance != 150 {
			t.Errorf("expected later snapshot refreshed to 150, got %v", snap.Balance)
		}
		if *snap.CalculatedFromTxUID != late.UID {
			t.Error("expected the refreshed snapshot to point at the back-dated transaction")
		}

		own, err := env.store.GetSnapshot(ledger.ID, testutil.Day(2024, 1, 5))
		testutil.AssertNoError(t, err)
		if own.Balance != 150 {
			t.Errorf("expected snapshot on the transaction's day, got balance %v", own.Balance)
		}

		earlier, err := env.store.GetSnapshot(ledger.ID, testutil.Day(2024, 1, 1))
		testutil.AssertNoError(t, err)
		if earlier.Balance != 100 {
			t.Errorf("expected earlier snapshot untouched at 100, got %v", earlier.Balance)
		}
	})

	t.Run("empty_ledger", func(t *testing.T) {
		env := newTestEnv(t)
		ledger := env.ledger(t)

		snap, err := env.snapshots.Generate(ledger.UID, testutil.Day(2024, 1, 1))
		testutil.AssertNoError(t, err)
		if snap.Balance != 0 || snap.CalculatedFromTxUID != nil {
			t.Error("expected an all-zero snapshot")
		}
	})

	t.Run("not_found", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.snapshots.Generate("nonexistent", time.Now())
		testutil.AssertAppError(t, err, "LEDGER_NOT_FOUND")
	})
}

func TestGenerateAll(t *testing.T) {
	env := newTestEnv(t)
	a, b := env.ledger(t), env.ledger(t)
	env.add(t, a, models.TransactionTypeIncome, 100, testutil.Day(2024, 1, 1))
	env.add(t, b, models.TransactionTypeIncome, 200, testutil.Day(2024, 1, 1))

	count, err := env.snapshots.GenerateAll(testutil.Day(2024, 6, 30))
	testutil.AssertNoError(t, err)
	if count != 2 {
		t.Errorf("expected 2 snapshots, got %d", count)
	}

	for _, l := range []*models.Ledger{a, b} {
		if _, err := env.store.GetSnapshot(l.ID, testutil.Day(2024, 6, 30)); err != nil {
			t.Errorf("expected a snapshot for ledger %s: %v", l.UID, err)
		}
	}
}

func TestSnapshotQueries(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.ledger(t)
	env.add(t, ledger, models.TransactionTypeIncome, 100, testutil.Day(2024, 1, 1))
	env.add(t, ledger, models.TransactionTypeIncome, 50, testutil.Day(2024, 2, 1))
	env.add(t, ledger, models.TransactionTypeIncome, 25, testutil.Day(2024, 3, 1))

	t.Run("list_newest_first", func(t *testing.T) {
		result, err := env.snapshots.ListSnapshots(ledger.UID, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 3 {
			t.Fatalf("expected 3 snapshots, got %d", result.TotalItems)
		}
		if !result.Data[0].SnapshotDate.Equal(testutil.Day(2024, 3, 1)) {
			t.Errorf("expected newest first, got %v", result.Data[0].SnapshotDate)
		}
	})

	t.Run("latest", func(t *testing.T) {
		snap, err := env.snapshots.GetLatestSnapshot(ledger.UID)
		testutil.AssertNoError(t, err)
		if snap.Balance != 175 {
			t.Errorf("expected latest balance 175, got %v", snap.Balance)
		}
	})

	t.Run("latest_without_snapshots", func(t *testing.T) {
		empty := env.ledger(t)
		_, err := env.snapshots.GetLatestSnapshot(empty.UID)
		testutil.AssertAppError(t, err, "SNAPSHOT_NOT_FOUND")
	})

	t.Run("chart_in_range_ascending", func(t *testing.T) {
		start, end := testutil.Day(2024, 1, 15), testutil.Day(2024, 3, 1)
		snaps, err := env.snapshots.GetSnapshotChart(ledger.UID, &start, &end)
		testutil.AssertNoError(t, err)
		if len(snaps) != 2 {
			t.Fatalf("expected 2 snapshots, got %d", len(snaps))
		}
		if snaps[0].Balance != 150 || snaps[1].Balance != 175 {
			t.Errorf("unexpected balances %v, %v", snaps[0].Balance, snaps[1].Balance)
		}
	})

	t.Run("chart_start_after_end", func(t *testing.T) {
		start, end := testutil.Day(2024, 3, 1), testutil.Day(2024, 1, 1)
		_, err := env.snapshots.GetSnapshotChart(ledger.UID, &start, &end)
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})
}
