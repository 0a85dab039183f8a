package services

import (
	"time"

	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/logger"
	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/store"
)

// snapshotService freezes ledger valuations per calendar day.
type snapshotService struct {
	store    store.Store
	revaluer *Revaluer
	locker   *LedgerLocker
}

// NewSnapshotService creates a new SnapshotServicer.
func NewSnapshotService(st store.Store, revaluer *Revaluer, locker *LedgerLocker) SnapshotServicer {
	return &snapshotService{store: st, revaluer: revaluer, locker: locker}
}

// Generate values the ledger as of the end of asOf's UTC day and upserts
// the snapshot for that day. Running it twice yields the same record.
func (s *snapshotService) Generate(ledgerUID string, asOf time.Time) (*models.LedgerSnapshot, error) {
	ledger, err := s.store.GetLedgerByUID(ledgerUID)
	if err != nil {
		return nil, mapStoreError(err, apperrors.ErrLedgerNotFound)
	}
	return s.generate(ledger.ID, asOf)
}

func (s *snapshotService) generate(ledgerID uint, asOf time.Time) (*models.LedgerSnapshot, error) {
	unlock := s.locker.Lock(ledgerID)
	defer unlock()

	var snap *models.LedgerSnapshot
	err := s.store.Transaction(func(tx store.Store) error {
		locked, err := tx.LockLedgers(ledgerID)
		if err != nil {
			return mapStoreError(err, apperrors.ErrLedgerNotFound)
		}
		ledger := &locked[0]

		policy, err := s.revaluer.Policy(tx, ledger)
		if err != nil {
			return err
		}
		log, err := tx.GetTransactions(ledger.ID)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		snap, err = s.revaluer.WriteSnapshot(tx, ledger, log, policy, dayOf(asOf))
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// GenerateAll snapshots every ledger as of asOf. It stops at the first
// failure and reports how many ledgers were done.
func (s *snapshotService) GenerateAll(asOf time.Time) (int, error) {
	ids, err := s.store.ListLedgerIDs()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	count := 0
	for _, id := range ids {
		if _, err := s.generate(id, asOf); err != nil {
			logger.Get().Errorw("snapshot generation failed",
				"error", err,
				"ledger_internal_id", id,
				"as_of", asOf.Format(time.RFC3339),
			)
			return count, err
		}
		count++
	}

	logger.Get().Infow("snapshots generated",
		"count", count,
		"snapshot_date", dayOf(asOf).Format("2006-01-02"),
	)
	return count, nil
}

// ListSnapshots returns a ledger's snapshots, newest first.
func (s *snapshotService) ListSnapshots(ledgerUID string, page pagination.PageRequest) (*pagination.PageResponse[models.LedgerSnapshot], error) {
	ledger, err := s.store.GetLedgerByUID(ledgerUID)
	if err != nil {
		return nil, mapStoreError(err, apperrors.ErrLedgerNotFound)
	}

	page.Defaults()

	snaps, total, err := s.store.ListSnapshots(ledger.ID, page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(snaps, page.Page, page.PageSize, total)
	return &result, nil
}

// GetLatestSnapshot returns the ledger's most recent snapshot.
func (s *snapshotService) GetLatestSnapshot(ledgerUID string) (*models.LedgerSnapshot, error) {
	ledger, err := s.store.GetLedgerByUID(ledgerUID)
	if err != nil {
		return nil, mapStoreError(err, apperrors.ErrLedgerNotFound)
	}

	snap, err := s.store.LatestSnapshot(ledger.ID)
	if err != nil {
		return nil, mapStoreError(err, apperrors.ErrSnapshotNotFound)
	}
	return snap, nil
}

// GetSnapshotChart returns stored snapshots in [start, end], ascending.
// Nil bounds are open.
func (s *snapshotService) GetSnapshotChart(ledgerUID string, start, end *time.Time) ([]models.LedgerSnapshot, error) {
	if start != nil && end != nil && start.After(*end) {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "start must not be after end")
	}

	ledger, err := s.store.GetLedgerByUID(ledgerUID)
	if err != nil {
		return nil, mapStoreError(err, apperrors.ErrLedgerNotFound)
	}

	snaps, err := s.store.SnapshotsInRange(ledger.ID, dayPtr(start), dayPtr(end))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return snaps, nil
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := dayOf(*t)
	return &d
}
