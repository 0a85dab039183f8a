// Package store is the durable keyed storage for categories, ledgers,
// transactions and snapshots. Services talk to it through the Store
// interface; the gorm implementation backs both PostgreSQL and SQLite.
package store

import (
	"errors"
	"time"

	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
)

// ErrNotFound is returned by lookups that match no live record.
var ErrNotFound = errors.New("record not found")

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	Type     *models.TransactionType
}

// Store is the persistence contract consumed by the services.
// Methods called on the Store handed to Transaction's callback run inside
// that database transaction.
type Store interface {
	Transaction(fn func(s Store) error) error

	CreateCategory(c *models.AssetCategory) error
	GetCategory(id uint) (*models.AssetCategory, error)
	GetCategoryByUID(uid string) (*models.AssetCategory, error)
	ListCategories(page pagination.PageRequest) ([]models.AssetCategory, int64, error)
	CountLedgersInCategory(categoryID uint) (int64, error)
	DeleteCategory(c *models.AssetCategory) error

	CreateLedger(l *models.Ledger) error
	GetLedger(id uint) (*models.Ledger, error)
	GetLedgerByUID(uid string) (*models.Ledger, error)
	ListLedgers(page pagination.PageRequest) ([]models.Ledger, int64, error)
	ListLedgerIDs() ([]uint, error)
	// LockLedgers row-locks the given ledgers in ascending id order and
	// returns them in that order. Unknown ids yield ErrNotFound.
	LockLedgers(ids ...uint) ([]models.Ledger, error)
	SaveLedger(l *models.Ledger) error
	DeleteLedger(l *models.Ledger) error

	// GetTransactions returns the ledger's full log, its own transactions
	// plus transfers into it, ordered by event time then id.
	GetTransactions(ledgerID uint) ([]models.Transaction, error)
	GetTransaction(id uint) (*models.Transaction, error)
	GetTransactionByUID(uid string) (*models.Transaction, error)
	ListLedgerTransactions(ledgerID uint, page pagination.PageRequest, filter TransactionFilter) ([]models.Transaction, int64, error)
	CreateTransaction(tx *models.Transaction) error
	SaveTransaction(tx *models.Transaction) error
	DeleteTransaction(tx *models.Transaction) error
	// FindRealization returns the live profit transaction realizing gainID,
	// ignoring excludeID. It returns ErrNotFound when the gain is open.
	FindRealization(gainID, excludeID uint) (*models.Transaction, error)
	CountTransfers(ledgerID uint) (int64, error)

	// UpsertSnapshot inserts or rewrites the (ledger, date) snapshot in
	// place. It reports false when the stored values already matched.
	UpsertSnapshot(s *models.LedgerSnapshot) (bool, error)
	GetSnapshot(ledgerID uint, date time.Time) (*models.LedgerSnapshot, error)
	LatestSnapshot(ledgerID uint) (*models.LedgerSnapshot, error)
	ListSnapshots(ledgerID uint, page pagination.PageRequest) ([]models.LedgerSnapshot, int64, error)
	ListSnapshotDates(ledgerID uint, after time.Time) ([]time.Time, error)
	SnapshotsInRange(ledgerID uint, start, end *time.Time) ([]models.LedgerSnapshot, error)

	CreateAuditLog(entry *models.AuditLog) error
}
