package store

import (
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
)

// gormStore implements Store on a gorm connection or an open gorm transaction.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store backed by db.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Transaction runs fn inside a database transaction. The whole unit commits
// when fn returns nil and rolls back on any error or panic.
func (s *gormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// --- asset categories ---

func (s *gormStore) CreateCategory(c *models.AssetCategory) error {
	return s.db.Create(c).Error
}

func (s *gormStore) GetCategory(id uint) (*models.AssetCategory, error) {
	var c models.AssetCategory
	if err := s.db.First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *gormStore) GetCategoryByUID(uid string) (*models.AssetCategory, error) {
	var c models.AssetCategory
	if err := s.db.Where("uid = ?", uid).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *gormStore) ListCategories(page pagination.PageRequest) ([]models.AssetCategory, int64, error) {
	base := s.db.Model(&models.AssetCategory{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var categories []models.AssetCategory
	if err := base.Scopes(pagination.Paginate(page)).Order("id ASC").Find(&categories).Error; err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

// CountLedgersInCategory counts ledgers referencing the category, including
// soft-deleted ones whose history still points at it.
func (s *gormStore) CountLedgersInCategory(categoryID uint) (int64, error) {
	var n int64
	err := s.db.Unscoped().Model(&models.Ledger{}).Where("asset_category_id = ?", categoryID).Count(&n).Error
	return n, err
}

func (s *gormStore) DeleteCategory(c *models.AssetCategory) error {
	return s.db.Delete(c).Error
}

// --- ledgers ---

func (s *gormStore) CreateLedger(l *models.Ledger) error {
	return s.db.Create(l).Error
}

func (s *gormStore) GetLedger(id uint) (*models.Ledger, error) {
	var l models.Ledger
	if err := s.db.First(&l, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (s *gormStore) GetLedgerByUID(uid string) (*models.Ledger, error) {
	var l models.Ledger
	if err := s.db.Where("uid = ?", uid).First(&l).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (s *gormStore) ListLedgers(page pagination.PageRequest) ([]models.Ledger, int64, error) {
	base := s.db.Model(&models.Ledger{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ledgers []models.Ledger
	if err := base.Scopes(pagination.Paginate(page)).Order("id ASC").Find(&ledgers).Error; err != nil {
		return nil, 0, err
	}
	return ledgers, total, nil
}

func (s *gormStore) ListLedgerIDs() ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.Ledger{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

// LockLedgers takes SELECT ... FOR UPDATE row locks. The SQLite dialector
// drops the locking clause; SQLite serializes writers on its own.
func (s *gormStore) LockLedgers(ids ...uint) ([]models.Ledger, error) {
	ids = uniqueSorted(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	var ledgers []models.Ledger
	if err := s.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&ledgers).Error; err != nil {
		return nil, err
	}
	if len(ledgers) != len(ids) {
		return nil, ErrNotFound
	}
	return ledgers, nil
}

func (s *gormStore) SaveLedger(l *models.Ledger) error {
	return s.db.Save(l).Error
}

// DeleteLedger soft-deletes the ledger and its own transactions and drops
// its snapshots.
func (s *gormStore) DeleteLedger(l *models.Ledger) error {
	if err := s.db.Where("ledger_id = ?", l.ID).Delete(&models.Transaction{}).Error; err != nil {
		return err
	}
	if err := s.db.Where("ledger_id = ?", l.ID).Delete(&models.LedgerSnapshot{}).Error; err != nil {
		return err
	}
	return s.db.Delete(l).Error
}

// --- transactions ---

func (s *gormStore) GetTransactions(ledgerID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.db.Where("ledger_id = ? OR to_ledger_id = ?", ledgerID, ledgerID).
		Order("event_time ASC, id ASC").
		Find(&txs).Error
	return txs, err
}

func (s *gormStore) GetTransaction(id uint) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.db.First(&t, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *gormStore) GetTransactionByUID(uid string) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.db.Where("uid = ?", uid).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *gormStore) ListLedgerTransactions(ledgerID uint, page pagination.PageRequest, filter TransactionFilter) ([]models.Transaction, int64, error) {
	base := s.db.Model(&models.Transaction{}).Where("ledger_id = ? OR to_ledger_id = ?", ledgerID, ledgerID)
	base = applyTransactionFilters(base, filter)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []models.Transaction
	if err := base.Scopes(pagination.NewestFirst("event_time"), pagination.Paginate(page)).
		Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("event_time >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("event_time <= ?", f.ToDate.UTC())
	}
	if f.Type != nil {
		q = q.Where("transaction_type = ?", *f.Type)
	}
	return q
}

func (s *gormStore) CreateTransaction(tx *models.Transaction) error {
	return s.db.Create(tx).Error
}

func (s *gormStore) SaveTransaction(tx *models.Transaction) error {
	return s.db.Save(tx).Error
}

func (s *gormStore) DeleteTransaction(tx *models.Transaction) error {
	return s.db.Delete(tx).Error
}

func (s *gormStore) FindRealization(gainID, excludeID uint) (*models.Transaction, error) {
	var t models.Transaction
	q := s.db.Where("realizes_id = ?", gainID)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// CountTransfers counts live transfers leaving or entering the ledger.
func (s *gormStore) CountTransfers(ledgerID uint) (int64, error) {
	var n int64
	err := s.db.Model(&models.Transaction{}).
		Where("transaction_type = ?", models.TransactionTypeTransfer).
		Where("ledger_id = ? OR to_ledger_id = ?", ledgerID, ledgerID).
		Count(&n).Error
	return n, err
}

// --- snapshots ---

func (s *gormStore) UpsertSnapshot(snap *models.LedgerSnapshot) (bool, error) {
	existing, err := s.GetSnapshot(snap.LedgerID, snap.SnapshotDate)
	if errors.Is(err, ErrNotFound) {
		return true, s.db.Create(snap).Error
	}
	if err != nil {
		return false, err
	}

	snap.ID = existing.ID
	snap.UID = existing.UID
	if existing.SameValues(snap) {
		return false, nil
	}
	return true, s.db.Save(snap).Error
}

func (s *gormStore) GetSnapshot(ledgerID uint, date time.Time) (*models.LedgerSnapshot, error) {
	var snap models.LedgerSnapshot
	if err := s.db.Where("ledger_id = ? AND snapshot_date = ?", ledgerID, date.UTC()).First(&snap).Error; err != nil {
		return nil, notFound(err)
	}
	return &snap, nil
}

func (s *gormStore) LatestSnapshot(ledgerID uint) (*models.LedgerSnapshot, error) {
	var snap models.LedgerSnapshot
	if err := s.db.Where("ledger_id = ?", ledgerID).Order("snapshot_date DESC").First(&snap).Error; err != nil {
		return nil, notFound(err)
	}
	return &snap, nil
}

func (s *gormStore) ListSnapshots(ledgerID uint, page pagination.PageRequest) ([]models.LedgerSnapshot, int64, error) {
	base := s.db.Model(&models.LedgerSnapshot{}).Where("ledger_id = ?", ledgerID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var snaps []models.LedgerSnapshot
	if err := base.Scopes(pagination.NewestFirst("snapshot_date"), pagination.Paginate(page)).Find(&snaps).Error; err != nil {
		return nil, 0, err
	}
	return snaps, total, nil
}

// ListSnapshotDates returns the stored snapshot dates strictly after the
// given day, ascending.
func (s *gormStore) ListSnapshotDates(ledgerID uint, after time.Time) ([]time.Time, error) {
	var snaps []models.LedgerSnapshot
	if err := s.db.Select("snapshot_date").
		Where("ledger_id = ? AND snapshot_date > ?", ledgerID, after.UTC()).
		Order("snapshot_date ASC").
		Find(&snaps).Error; err != nil {
		return nil, err
	}

	dates := make([]time.Time, len(snaps))
	for i, snap := range snaps {
		dates[i] = snap.SnapshotDate.UTC()
	}
	return dates, nil
}

func (s *gormStore) SnapshotsInRange(ledgerID uint, start, end *time.Time) ([]models.LedgerSnapshot, error) {
	q := s.db.Where("ledger_id = ?", ledgerID)
	if start != nil {
		q = q.Where("snapshot_date >= ?", start.UTC())
	}
	if end != nil {
		q = q.Where("snapshot_date <= ?", end.UTC())
	}

	var snaps []models.LedgerSnapshot
	err := q.Order("snapshot_date ASC").Find(&snaps).Error
	return snaps, err
}

// --- audit ---

func (s *gormStore) CreateAuditLog(entry *models.AuditLog) error {
	return s.db.Create(entry).Error
}

func uniqueSorted(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
