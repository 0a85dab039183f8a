package services

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"ledgerbook/internal/models"
	"ledgerbook/internal/store"
	"ledgerbook/internal/testutil"
	"ledgerbook/internal/valuation"
)

// testEnv wires the services over one in-memory database.
type testEnv struct {
	db        *gorm.DB
	store     store.Store
	revaluer  *Revaluer
	ledgers   LedgerServicer
	txs       TransactionServicer
	snapshots SnapshotServicer
	charts    ChartServicer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, nil, &valuation.TaxTable{})
}

// newTestEnvWithStore lets a test swap the store the services use, e.g. to
// inject failures. wrap receives the real store.
func newTestEnvWithStore(t *testing.T, wrap func(store.Store) store.Store, taxes *valuation.TaxTable) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	st := store.NewGormStore(db)
	if wrap != nil {
		st = wrap(st)
	}
	revaluer := NewRevaluer(taxes, nil)
	locker := NewLedgerLocker()

	return &testEnv{
		db:        db,
		store:     st,
		revaluer:  revaluer,
		ledgers:   NewLedgerService(st, revaluer, locker),
		txs:       NewTransactionService(st, revaluer, locker, 0.01),
		snapshots: NewSnapshotService(st, revaluer, locker),
		charts:    NewChartService(st, revaluer, nil),
	}
}

// ledger creates a USD ledger in a fresh category.
func (e *testEnv) ledger(t *testing.T) *models.Ledger {
	t.Helper()
	category := testutil.CreateTestCategory(t, e.db, "US", "cash")
	return testutil.CreateTestLedger(t, e.db, category)
}

// add appends a base-currency transaction through the service.
func (e *testEnv) add(t *testing.T, ledger *models.Ledger, txType models.TransactionType, amount float64, at time.Time) *models.Transaction {
	t.Helper()
	res, err := e.txs.CreateTransaction(CreateTransactionInput{
		LedgerUID: ledger.UID,
		Type:      txType,
		Amount:    amount,
		Currency:  ledger.BaseCurrency,
		EventTime: at,
	})
	testutil.AssertNoError(t, err)
	return res.Transaction
}

// reload reads the ledger's current stored state.
func (e *testEnv) reload(t *testing.T, ledger *models.Ledger) *models.Ledger {
	t.Helper()
	l, err := e.store.GetLedger(ledger.ID)
	testutil.AssertNoError(t, err)
	return l
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
