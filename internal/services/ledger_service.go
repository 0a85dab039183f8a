package services

import (
	"strings"

	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/store"
	"ledgerbook/internal/validator"
	"ledgerbook/internal/valuation"
)

// ledgerService handles ledger bookkeeping and summaries.
type ledgerService struct {
	store    store.Store
	revaluer *Revaluer
	locker   *LedgerLocker
}

// NewLedgerService creates a new LedgerServicer.
func NewLedgerService(st store.Store, revaluer *Revaluer, locker *LedgerLocker) LedgerServicer {
	return &ledgerService{store: st, revaluer: revaluer, locker: locker}
}

// CreateLedger creates an empty ledger in an existing asset category.
func (s *ledgerService) CreateLedger(name, categoryUID, baseCurrency string) (*models.Ledger, error) {
	name = strings.TrimSpace(name)
	baseCurrency = strings.ToUpper(strings.TrimSpace(baseCurrency))

	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "ledger name is required")
	}
	if !validator.IsCurrency(baseCurrency) {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "base_currency must be an ISO 4217 code")
	}

	category, err := s.store.GetCategoryByUID(categoryUID)
	if err != nil {
		return nil, mapStoreError(err, apperrors.ErrCategoryNotFound)
	}

	ledger := &models.Ledger{
		Name:             name,
		AssetCategoryID:  category.ID,
		AssetCategoryUID: category.UID,
		BaseCurrency:     baseCurrency,
	}
	if err := s.store.CreateLedger(ledger); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return ledger, nil
}

// GetLedgers retrieves a paginated list of ledgers.
func (s *ledgerService) GetLedgers(page pagination.PageRequest) (*pagination.PageResponse[models.Ledger], error) {
	page.Defaults()

	ledgers, total, err := s.store.ListLedgers(page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(ledgers, page.Page, page.PageSize, total)
	return &result, nil
}

// GetLedgerByUID retrieves a ledger by its external id.
func (s *ledgerService) GetLedgerByUID(uid string) (*models.Ledger, error) {
	ledger, err := s.store.GetLedgerByUID(uid)
	if err != nil {
		return nil, mapStoreError(err, apperrors.ErrLedgerNotFound)
	}
	return ledger, nil
}

// DeleteLedger deletes a ledger with its transactions and snapshots.
// Ledgers linked to others by transfers cannot be deleted, since that
// would silently change the other side's history.
func (s *ledgerService) DeleteLedger(uid string) error {
	ledger, err := s.GetLedgerByUID(uid)
	if err != nil {
		return err
	}

	unlock := s.locker.Lock(ledger.ID)
	defer unlock()

	return s.store.Transaction(func(tx store.Store) error {
		locked, err := tx.LockLedgers(ledger.ID)
		if err != nil {
			return mapStoreError(err, apperrors.ErrLedgerNotFound)
		}

		n, err := tx.CountTransfers(ledger.ID)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if n > 0 {
			return apperrors.ErrLedgerInUse
		}

		if err := tx.DeleteLedger(&locked[0]); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetSummary returns the ledger with figures derived from its full log.
func (s *ledgerService) GetSummary(uid string) (*LedgerSummary, error) {
	ledger, err := s.GetLedgerByUID(uid)
	if err != nil {
		return nil, err
	}

	category, err := s.store.GetCategory(ledger.AssetCategoryID)
	if err != nil {
		return nil, mapStoreError(err, apperrors.ErrCategoryNotFound)
	}
	policy, err := s.revaluer.Policy(s.store, ledger)
	if err != nil {
		return nil, err
	}

	txs, err := s.store.GetTransactions(ledger.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	m := valuation.Compute(txs, ledger.ID, policy)

	return &LedgerSummary{
		Ledger:           ledger,
		Category:         category,
		TaxRate:          policy.TaxRate,
		TransactionCount: m.TransactionCount,
		FirstEventTime:   m.FirstEventTime,
		LastEventTime:    m.LastEventTime,
		RealizedProfit:   m.RealizedProfit,
		TotalsByType:     m.TypeTotals,
	}, nil
}
