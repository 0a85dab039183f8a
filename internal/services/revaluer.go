package services

import (
	"context"
	"errors"
	"time"

	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/events"
	"ledgerbook/internal/logger"
	"ledgerbook/internal/models"
	"ledgerbook/internal/store"
	"ledgerbook/internal/valuation"
)

const publishTimeout = 5 * time.Second

// Revaluer re-derives ledger state from the transaction log and keeps the
// stored snapshots in step. It is shared by every service that mutates or
// values a ledger; all methods taking a store.Store expect to run inside
// the caller's database transaction.
type Revaluer struct {
	taxes     *valuation.TaxTable
	publisher events.Publisher
}

// NewRevaluer creates a Revaluer using the given tax table and event sink.
// A nil publisher disables events.
func NewRevaluer(taxes *valuation.TaxTable, publisher events.Publisher) *Revaluer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Revaluer{taxes: taxes, publisher: publisher}
}

// dayOf returns midnight UTC of the calendar day containing t.
func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// mapStoreError converts store errors into AppErrors. AppErrors pass
// through unchanged so validation failures raised inside a store
// transaction keep their code.
func mapStoreError(err error, notFound *apperrors.AppError) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if notFound != nil && errors.Is(err, store.ErrNotFound) {
		return notFound
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// Policy resolves the valuation policy for a ledger from its category.
func (r *Revaluer) Policy(s store.Store, ledger *models.Ledger) (valuation.Policy, error) {
	category, err := s.GetCategory(ledger.AssetCategoryID)
	if err != nil {
		return valuation.Policy{}, mapStoreError(err, apperrors.ErrCategoryNotFound)
	}
	return valuation.Policy{TaxRate: r.taxes.Rate(category.Region, category.CategoryType)}, nil
}

// Revalue recomputes every metric of the ledger from its full log, saves
// the ledger and refreshes the snapshots dated fromDay and later. A zero
// fromDay skips the snapshot refresh. It returns the sorted log it used.
func (r *Revaluer) Revalue(s store.Store, ledger *models.Ledger, fromDay time.Time) ([]models.Transaction, error) {
	policy, err := r.Policy(s, ledger)
	if err != nil {
		return nil, err
	}

	txs, err := s.GetTransactions(ledger.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	log := valuation.SortLog(txs)

	applyMetrics(ledger, valuation.Compute(log, ledger.ID, policy))
	if err := s.SaveLedger(ledger); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if !fromDay.IsZero() {
		if err := r.refreshSnapshots(s, ledger, log, policy, dayOf(fromDay)); err != nil {
			return nil, err
		}
	}
	return log, nil
}

// refreshSnapshots regenerates the snapshot for fromDay and every stored
// snapshot after it, since each depends on the changed log prefix.
func (r *Revaluer) refreshSnapshots(s store.Store, ledger *models.Ledger, log []models.Transaction, policy valuation.Policy, fromDay time.Time) error {
	later, err := s.ListSnapshotDates(ledger.ID, fromDay)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for _, day := range append([]time.Time{fromDay}, later...) {
		if _, err := r.WriteSnapshot(s, ledger, log, policy, day); err != nil {
			return err
		}
	}
	return nil
}

// WriteSnapshot values the ledger as of the end of day and upserts the
// snapshot for that day.
func (r *Revaluer) WriteSnapshot(s store.Store, ledger *models.Ledger, log []models.Transaction, policy valuation.Policy, day time.Time) (*models.LedgerSnapshot, error) {
	snap := BuildSnapshot(ledger, log, policy, day)
	written, err := s.UpsertSnapshot(snap)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if written {
		logger.Get().Debugw("snapshot written",
			"ledger_id", ledger.UID,
			"snapshot_date", snap.SnapshotDate.Format("2006-01-02"),
			"balance", snap.Balance,
		)
	}
	return snap, nil
}

// BuildSnapshot values the ledger using transactions with an event time
// before the midnight that ends day.
func BuildSnapshot(ledger *models.Ledger, log []models.Transaction, policy valuation.Policy, day time.Time) *models.LedgerSnapshot {
	day = dayOf(day)
	m := valuation.ComputeAsOf(log, ledger.ID, day.AddDate(0, 0, 1), policy)

	snap := &models.LedgerSnapshot{
		LedgerID:            ledger.ID,
		LedgerUID:           ledger.UID,
		SnapshotDate:        day,
		Balance:             m.Balance,
		FloatProfit:         m.FloatProfit,
		TaxPending:          m.TaxPending,
		AfterTaxBalance:     m.AfterTaxBalance,
		IRR:                 m.IRR,
		IRRWeighted:         m.IRRWeighted,
		IRRAfterTax:         m.IRRAfterTax,
		IRRAfterTaxWeighted: m.IRRAfterTaxWeighted,
	}
	if m.LastTransaction != nil {
		id, uid := m.LastTransaction.ID, m.LastTransaction.UID
		snap.CalculatedFromTxID = &id
		snap.CalculatedFromTxUID = &uid
	}
	return snap
}

func applyMetrics(ledger *models.Ledger, m valuation.Metrics) {
	ledger.Balance = m.Balance
	ledger.FloatProfit = m.FloatProfit
	ledger.RealizedProfit = m.RealizedProfit
	ledger.TaxPending = m.TaxPending
	ledger.AfterTaxBalance = m.AfterTaxBalance
	ledger.IRR = m.IRR
	ledger.IRRWeighted = m.IRRWeighted
	ledger.IRRAfterTax = m.IRRAfterTax
	ledger.IRRAfterTaxWeighted = m.IRRAfterTaxWeighted

	ledger.LastChangedAt = m.LastEventTime
	if m.LastTransaction != nil {
		id, uid := m.LastTransaction.ID, m.LastTransaction.UID
		ledger.LastTransactionID = &id
		ledger.LastTransactionUID = &uid
	} else {
		ledger.LastTransactionID = nil
		ledger.LastTransactionUID = nil
	}
}

// Publish emits a revaluation event per ledger. It runs after commit;
// failures are logged and never undo the mutation.
func (r *Revaluer) Publish(trigger *models.Transaction, ledgers ...*models.Ledger) {
	for _, l := range ledgers {
		event := events.LedgerRevalued{
			Type:                events.TypeLedgerRevalued,
			LedgerID:            l.UID,
			Balance:             l.Balance,
			FloatProfit:         l.FloatProfit,
			TaxPending:          l.TaxPending,
			AfterTaxBalance:     l.AfterTaxBalance,
			IRR:                 l.IRR,
			IRRWeighted:         l.IRRWeighted,
			IRRAfterTax:         l.IRRAfterTax,
			IRRAfterTaxWeighted: l.IRRAfterTaxWeighted,
			OccurredAt:          time.Now().UTC(),
		}
		if trigger != nil {
			event.TriggerTxID = trigger.UID
		}

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := r.publisher.Publish(ctx, l.UID, event)
		cancel()
		if err != nil {
			logger.Get().Warnw("failed to publish ledger event",
				"error", err,
				"ledger_id", l.UID,
			)
		}
	}
}
