package testutil

import (
	"errors"
	"testing"

	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertSnapshotMatchesLedger checks that a snapshot taken after the ledger's
// last transaction carries the ledger's current money metrics. Return rates
// depend on the valuation date and are not compared.
func AssertSnapshotMatchesLedger(t *testing.T, snap *models.LedgerSnapshot, ledger *models.Ledger) {
	t.Helper()

	if snap.LedgerID != ledger.ID {
		t.Fatalf("snapshot belongs to ledger %d, not %d", snap.LedgerID, ledger.ID)
	}
	fields := []struct {
		name      string
		got, want float64
	}{
		{"balance", snap.Balance, ledger.Balance},
		{"float_profit", snap.FloatProfit, ledger.FloatProfit},
		{"tax_pending", snap.TaxPending, ledger.TaxPending},
		{"after_tax_balance", snap.AfterTaxBalance, ledger.AfterTaxBalance},
	}
	for _, f := range fields {
		if models.RoundMoney(f.got) != models.RoundMoney(f.want) {
			t.Errorf("%s: snapshot has %v, ledger has %v", f.name, f.got, f.want)
		}
	}
	if (snap.CalculatedFromTxUID == nil) != (ledger.LastTransactionUID == nil) ||
		(snap.CalculatedFromTxUID != nil && *snap.CalculatedFromTxUID != *ledger.LastTransactionUID) {
		t.Errorf("snapshot and ledger disagree on the last transaction")
	}
}
