package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"ledgerbook/internal/models"

	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CreateTestCategory creates an asset category for the given region and type.
func CreateTestCategory(t *testing.T, db *gorm.DB, region, categoryType string) *models.AssetCategory {
	t.Helper()

	category := &models.AssetCategory{
		Region:         region,
		CategoryType:   categoryType,
		RedeemLocation: region,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestLedger creates a USD ledger in the given category.
func CreateTestLedger(t *testing.T, db *gorm.DB, category *models.AssetCategory) *models.Ledger {
	t.Helper()
	return CreateTestLedgerWithCurrency(t, db, category, "USD")
}

// CreateTestLedgerWithCurrency creates a ledger with the given base currency.
func CreateTestLedgerWithCurrency(t *testing.T, db *gorm.DB, category *models.AssetCategory, currency string) *models.Ledger {
	t.Helper()

	ledger := &models.Ledger{
		Name:             fmt.Sprintf("Test Ledger %d", nextID()),
		AssetCategoryID:  category.ID,
		AssetCategoryUID: category.UID,
		BaseCurrency:     currency,
	}
	if err := db.Create(ledger).Error; err != nil {
		t.Fatalf("failed to create test ledger: %v", err)
	}
	return ledger
}

// CreateTestTransaction inserts a base-currency transaction directly,
// bypassing validation and re-derivation. Ledger metrics are not updated.
func CreateTestTransaction(t *testing.T, db *gorm.DB, ledger *models.Ledger, txType models.TransactionType, amount float64, eventTime time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		LedgerID:        ledger.ID,
		LedgerUID:       ledger.UID,
		Type:            txType,
		Amount:          amount,
		Currency:        ledger.BaseCurrency,
		RateToBase:      1,
		ConvertedAmount: amount,
		EventTime:       eventTime,
		RecordedTime:    time.Now().UTC(),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
