package services

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/store"
	"ledgerbook/internal/validator"
)

const (
	minEventYear = 1900
	maxEventYear = 9999
	// Base-currency transactions carry a rate of exactly one; this only
	// absorbs float noise from JSON decoding.
	unitRateTolerance = 1e-9
	// Retries when a transfer is re-targeted between the first read of a
	// row and taking the locks.
	maxLockAttempts = 3
)

var errLockSetChanged = errors.New("transaction target changed while acquiring locks")

// transactionService handles the transaction log. Every mutation locks the
// affected ledgers, writes the change and re-derives those ledgers inside a
// single database transaction.
type transactionService struct {
	store    store.Store
	revaluer *Revaluer
	locker   *LedgerLocker
	epsilon  float64
}

// NewTransactionService creates a new TransactionServicer. epsilon bounds
// the accepted difference between converted_amount and amount*rate_to_base.
func NewTransactionService(st store.Store, revaluer *Revaluer, locker *LedgerLocker, epsilon float64) TransactionServicer {
	return &transactionService{
		store:    st,
		revaluer: revaluer,
		locker:   locker,
		epsilon:  epsilon,
	}
}

// CreateTransaction appends a transaction to a ledger's log. Late-arriving
// transactions are fine; the whole log is re-derived either way.
func (s *transactionService) CreateTransaction(in CreateTransactionInput) (*TransactionResult, error) {
	if !in.Type.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}

	ledger, err := s.store.GetLedgerByUID(in.LedgerUID)
	if err != nil {
		return nil, mapStoreError(err, apperrors.ErrLedgerNotFound)
	}

	t := &models.Transaction{
		LedgerID:     ledger.ID,
		LedgerUID:    ledger.UID,
		Type:         in.Type,
		Amount:       in.Amount,
		Currency:     strings.ToUpper(strings.TrimSpace(in.Currency)),
		RateToBase:   in.RateToBase,
		EventTime:    in.EventTime.UTC(),
		SentTime:     utcPtr(in.SentTime),
		RecordedTime: time.Now().UTC(),
		Purpose:      in.Purpose,
		RawText:      in.RawText,
	}
	if t.RateToBase == 0 && t.Currency == ledger.BaseCurrency {
		t.RateToBase = 1
	}

	ids := []uint{ledger.ID}
	if t.Type == models.TransactionTypeTransfer {
		target, err := s.resolveTarget(ledger, in.ToLedgerUID)
		if err != nil {
			return nil, err
		}
		t.ToLedgerID = &target.ID
		t.ToLedgerUID = &target.UID
		ids = append(ids, target.ID)
	} else if in.ToLedgerUID != nil && *in.ToLedgerUID != "" {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "to_ledger_id is only allowed for transfers")
	}

	if err := resolveRealizes(s.store, t, in.RealizesUID); err != nil {
		return nil, err
	}
	if err := s.validateFields(t, ledger, in.ConvertedAmount); err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(ids...)
	defer unlock()

	var (
		result  *TransactionResult
		touched []*models.Ledger
	)
	err = s.store.Transaction(func(tx store.Store) error {
		locked, err := tx.LockLedgers(ids...)
		if err != nil {
			return mapStoreError(err, apperrors.ErrLedgerNotFound)
		}
		if err := checkRealization(tx, t); err != nil {
			return err
		}
		if err := tx.CreateTransaction(t); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		touched, result, err = s.revalueAll(tx, locked, t, dayOf(t.EventTime))
		return err
	})
	if err != nil {
		if t.Type == models.TransactionTypeTransfer {
			return nil, transferFailure(err)
		}
		return nil, err
	}

	s.revaluer.Publish(t, touched...)
	return result, nil
}

// GetLedgerTransactions retrieves a paginated, filtered list of a ledger's
// transactions, newest event first. Transfers into the ledger are included.
func (s *transactionService) GetLedgerTransactions(ledgerUID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	ledger, err := s.store.GetLedgerByUID(ledgerUID)
	if err != nil {
		return nil, mapStoreError(err, apperrors.ErrLedgerNotFound)
	}

	page.Defaults()

	txs, total, err := s.store.ListLedgerTransactions(ledger.ID, page, filter)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(txs, page.Page, page.PageSize, total)
	return &result, nil
}

// GetTransactionByUID retrieves a transaction by its external id.
func (s *transactionService) GetTransactionByUID(uid string) (*models.Transaction, error) {
	t, err := s.store.GetTransactionByUID(uid)
	if err != nil {
		return nil, mapStoreError(err, apperrors.ErrTransactionNotFound)
	}
	return t, nil
}

// UpdateTransaction merges the given fields into a transaction and
// re-derives every ledger it touched before or touches after the change.
// The row is read again under the ledger locks and the fields are merged
// onto that copy, so concurrent mutations are never overwritten.
func (s *transactionService) UpdateTransaction(uid string, in UpdateTransactionInput) (*TransactionResult, error) {
	if in.Type != nil && !in.Type.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}

	existing, err := s.GetTransactionByUID(uid)
	if err != nil {
		return nil, err
	}
	ledger, err := s.store.GetLedger(existing.LedgerID)
	if err != nil {
		return nil, mapStoreError(err, apperrors.ErrLedgerNotFound)
	}

	// Whether a transaction is a transfer never changes, so these checks
	// hold for any later version of the row too.
	isTransfer := existing.Type == models.TransactionTypeTransfer
	if in.Type != nil && (*in.Type == models.TransactionTypeTransfer) != isTransfer {
		return nil, apperrors.ErrInvalidTypeChange
	}
	var target *models.Ledger
	if in.ToLedgerUID != nil {
		if !isTransfer {
			return nil, apperrors.WithMessage(apperrors.ErrValidation, "to_ledger_id is only allowed for transfers")
		}
		if target, err = s.resolveTarget(ledger, in.ToLedgerUID); err != nil {
			return nil, err
		}
	}

	for attempt := 1; ; attempt++ {
		result, touched, err := s.updateLocked(existing.ID, existing.ToLedgerID, ledger, target, in)
		if errors.Is(err, errLockSetChanged) {
			if attempt >= maxLockAttempts {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if existing, err = s.GetTransactionByUID(uid); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			if isTransfer {
				return nil, transferFailure(err)
			}
			return nil, err
		}

		s.revaluer.Publish(result.Transaction, touched...)
		return result, nil
	}
}

// updateLocked applies an update under the locks of the owner, the known
// transfer target and the new target. It fails with errLockSetChanged when
// the stored target is no longer the one that was locked.
func (s *transactionService) updateLocked(id uint, knownTarget *uint, ledger, target *models.Ledger, in UpdateTransactionInput) (*TransactionResult, []*models.Ledger, error) {
	ids := []uint{ledger.ID}
	if knownTarget != nil {
		ids = append(ids, *knownTarget)
	}
	if target != nil {
		ids = append(ids, target.ID)
	}

	unlock := s.locker.Lock(ids...)
	defer unlock()

	var (
		result  *TransactionResult
		touched []*models.Ledger
	)
	err := s.store.Transaction(func(tx store.Store) error {
		locked, err := tx.LockLedgers(ids...)
		if err != nil {
			return mapStoreError(err, apperrors.ErrLedgerNotFound)
		}
		current, err := tx.GetTransaction(id)
		if err != nil {
			return mapStoreError(err, apperrors.ErrTransactionNotFound)
		}
		if !sameID(current.ToLedgerID, knownTarget) {
			return errLockSetChanged
		}

		t := *current
		if err := s.merge(tx, &t, current, ledger, target, in); err != nil {
			return err
		}
		if current.Type == models.TransactionTypeGain && t.Type != models.TransactionTypeGain {
			if err := ensureUnrealized(tx, current); err != nil {
				return err
			}
		}
		if err := checkRealization(tx, &t); err != nil {
			return err
		}
		if err := tx.SaveTransaction(&t); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		fromDay := dayOf(current.EventTime)
		if d := dayOf(t.EventTime); d.Before(fromDay) {
			fromDay = d
		}
		touched, result, err = s.revalueAll(tx, locked, &t, fromDay)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return result, touched, nil
}

// merge copies the given fields onto t, a copy of current, and validates
// the result.
func (s *transactionService) merge(tx store.Store, t, current *models.Transaction, ledger, target *models.Ledger, in UpdateTransactionInput) error {
	if in.Type != nil {
		t.Type = *in.Type
	}

	valueChanged := false
	if in.Amount != nil {
		t.Amount = *in.Amount
		valueChanged = true
	}
	if in.Currency != nil {
		t.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
		valueChanged = true
	}
	if in.RateToBase != nil {
		t.RateToBase = *in.RateToBase
		valueChanged = true
	}
	if in.EventTime != nil {
		t.EventTime = in.EventTime.UTC()
	}
	if in.SentTime != nil {
		t.SentTime = utcPtr(in.SentTime)
	}
	if in.Purpose != nil {
		t.Purpose = *in.Purpose
	}
	if in.RawText != nil {
		t.RawText = *in.RawText
	}
	if target != nil {
		t.ToLedgerID = &target.ID
		t.ToLedgerUID = &target.UID
	}

	converted := in.ConvertedAmount
	if converted == nil && !valueChanged {
		converted = &current.ConvertedAmount
	}

	if in.RealizesUID != nil {
		t.RealizesID, t.RealizesUID = nil, nil
		if err := resolveRealizes(tx, t, in.RealizesUID); err != nil {
			return err
		}
	}
	return s.validateFields(t, ledger, converted)
}

// DeleteTransaction removes a transaction from the log and re-derives the
// ledgers it touched. A gain that has been realized must stay.
func (s *transactionService) DeleteTransaction(uid string) error {
	existing, err := s.GetTransactionByUID(uid)
	if err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		deleted, touched, err := s.deleteLocked(existing)
		if errors.Is(err, errLockSetChanged) {
			if attempt >= maxLockAttempts {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if existing, err = s.GetTransactionByUID(uid); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			if existing.Type == models.TransactionTypeTransfer {
				return transferFailure(err)
			}
			return err
		}

		s.revaluer.Publish(deleted, touched...)
		return nil
	}
}

// deleteLocked deletes the current version of the row under the locks of
// the ledgers seen in existing.
func (s *transactionService) deleteLocked(existing *models.Transaction) (*models.Transaction, []*models.Ledger, error) {
	ids := []uint{existing.LedgerID}
	if existing.ToLedgerID != nil {
		ids = append(ids, *existing.ToLedgerID)
	}

	unlock := s.locker.Lock(ids...)
	defer unlock()

	var (
		current *models.Transaction
		touched []*models.Ledger
	)
	err := s.store.Transaction(func(tx store.Store) error {
		locked, err := tx.LockLedgers(ids...)
		if err != nil {
			return mapStoreError(err, apperrors.ErrLedgerNotFound)
		}
		if current, err = tx.GetTransaction(existing.ID); err != nil {
			return mapStoreError(err, apperrors.ErrTransactionNotFound)
		}
		if !sameID(current.ToLedgerID, existing.ToLedgerID) {
			return errLockSetChanged
		}

		if current.Type == models.TransactionTypeGain {
			if err := ensureUnrealized(tx, current); err != nil {
				return err
			}
		}
		if err := tx.DeleteTransaction(current); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		touched, _, err = s.revalueAll(tx, locked, current, dayOf(current.EventTime))
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return current, touched, nil
}

// revalueAll re-derives each locked ledger and locates t in its owner's log.
func (s *transactionService) revalueAll(tx store.Store, locked []models.Ledger, t *models.Transaction, fromDay time.Time) ([]*models.Ledger, *TransactionResult, error) {
	result := &TransactionResult{Transaction: t, Position: -1}
	touched := make([]*models.Ledger, 0, len(locked))

	for i := range locked {
		l := &locked[i]
		log, err := s.revaluer.Revalue(tx, l, fromDay)
		if err != nil {
			return nil, nil, err
		}
		touched = append(touched, l)

		if l.ID == t.LedgerID {
			for pos := range log {
				if log[pos].ID == t.ID {
					result.Position = pos
					break
				}
			}
		}
	}
	return touched, result, nil
}

// resolveTarget finds and checks the receiving ledger of a transfer.
func (s *transactionService) resolveTarget(source *models.Ledger, toLedgerUID *string) (*models.Ledger, error) {
	if toLedgerUID == nil || *toLedgerUID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidTransfer, "to_ledger_id is required for transfers")
	}

	target, err := s.store.GetLedgerByUID(*toLedgerUID)
	if err != nil {
		return nil, mapStoreError(err, apperrors.WithMessage(apperrors.ErrInvalidTransfer, "target ledger not found"))
	}
	if target.ID == source.ID {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidTransfer, "cannot transfer to the same ledger")
	}
	if target.BaseCurrency != source.BaseCurrency {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidTransfer, "target ledger must share the source ledger's base currency")
	}
	return target, nil
}

// resolveRealizes links a profit to the gain it realizes. An empty uid
// leaves the profit unlinked.
func resolveRealizes(st store.Store, t *models.Transaction, realizesUID *string) error {
	if realizesUID == nil || *realizesUID == "" {
		return nil
	}
	if t.Type != models.TransactionTypeProfit {
		return apperrors.WithMessage(apperrors.ErrValidation, "realizes_id is only allowed for profit transactions")
	}

	gain, err := st.GetTransactionByUID(*realizesUID)
	if err != nil {
		return mapStoreError(err, apperrors.WithMessage(apperrors.ErrValidation, "realized gain not found"))
	}
	t.RealizesID = &gain.ID
	t.RealizesUID = &gain.UID
	return nil
}

// validateFields checks the stand-alone invariants of a transaction and
// settles converted_amount: computed when not given, otherwise required to
// match amount*rate_to_base within epsilon.
func (s *transactionService) validateFields(t *models.Transaction, ledger *models.Ledger, converted *float64) error {
	if t.EventTime.IsZero() || t.EventTime.Year() < minEventYear || t.EventTime.Year() > maxEventYear {
		return apperrors.WithMessage(apperrors.ErrValidation, "event_time must be a valid timestamp")
	}
	if !validator.IsCurrency(t.Currency) {
		return apperrors.WithMessage(apperrors.ErrValidation, "currency must be an ISO 4217 code")
	}
	if !isFinite(t.RateToBase) || t.RateToBase <= 0 {
		return apperrors.WithMessage(apperrors.ErrValidation, "rate_to_base must be greater than zero")
	}
	if t.Currency == ledger.BaseCurrency && math.Abs(t.RateToBase-1) > unitRateTolerance {
		return apperrors.WithMessage(apperrors.ErrValidation, "rate_to_base must be 1 for the ledger's base currency")
	}
	if !isFinite(t.Amount) {
		return apperrors.WithMessage(apperrors.ErrValidation, "amount must be a finite number")
	}

	switch t.Type {
	case models.TransactionTypeExpense, models.TransactionTypeTransfer:
		// Outflows may arrive signed; the type carries the direction.
		if t.Amount < 0 {
			t.Amount = -t.Amount
			if converted != nil && *converted < 0 {
				c := -*converted
				converted = &c
			}
		}
		if t.Amount <= 0 {
			return apperrors.WithMessage(apperrors.ErrValidation, "amount must not be zero")
		}
	case models.TransactionTypeIncome:
		if t.Amount <= 0 {
			return apperrors.WithMessage(apperrors.ErrValidation, "amount must be greater than zero")
		}
	case models.TransactionTypeGain:
		if t.Amount == 0 {
			return apperrors.WithMessage(apperrors.ErrValidation, "amount must not be zero")
		}
	case models.TransactionTypeProfit:
		// A realizing profit may carry no true-up at all.
		if t.Amount == 0 && t.RealizesID == nil {
			return apperrors.WithMessage(apperrors.ErrValidation, "amount must not be zero")
		}
	}
	if t.Type != models.TransactionTypeProfit && t.RealizesID != nil {
		return apperrors.WithMessage(apperrors.ErrValidation, "realizes_id is only allowed for profit transactions")
	}

	expected := decimal.NewFromFloat(t.Amount).Mul(decimal.NewFromFloat(t.RateToBase))
	if converted == nil {
		t.ConvertedAmount, _ = expected.Round(models.MoneyPlaces).Float64()
		return nil
	}
	if !isFinite(*converted) {
		return apperrors.WithMessage(apperrors.ErrValidation, "converted_amount must be a finite number")
	}
	diff := expected.Sub(decimal.NewFromFloat(*converted)).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(s.epsilon)) {
		return apperrors.WithMessage(apperrors.ErrValidation, "converted_amount does not match amount * rate_to_base")
	}
	t.ConvertedAmount = *converted
	return nil
}

// checkRealization enforces the gain/profit pairing inside the mutation's
// database transaction: a profit realizes one open gain of its own ledger
// dated no later than itself.
func checkRealization(tx store.Store, t *models.Transaction) error {
	if t.RealizesID != nil {
		gain, err := tx.GetTransaction(*t.RealizesID)
		if err != nil {
			return mapStoreError(err, apperrors.WithMessage(apperrors.ErrValidation, "realized gain not found"))
		}
		if gain.Type != models.TransactionTypeGain {
			return apperrors.WithMessage(apperrors.ErrValidation, "realizes_id must reference a gain transaction")
		}
		if gain.LedgerID != t.LedgerID {
			return apperrors.WithMessage(apperrors.ErrValidation, "realized gain must belong to the same ledger")
		}
		if gain.EventTime.After(t.EventTime) {
			return apperrors.WithMessage(apperrors.ErrValidation, "profit cannot precede the gain it realizes")
		}
		if _, err := tx.FindRealization(gain.ID, t.ID); err == nil {
			return apperrors.WithMessage(apperrors.ErrValidation, "gain is already realized")
		} else if !errors.Is(err, store.ErrNotFound) {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if t.ID != 0 && t.Type == models.TransactionTypeGain {
		profit, err := tx.FindRealization(t.ID, 0)
		if err == nil && t.EventTime.After(profit.EventTime) {
			return apperrors.WithMessage(apperrors.ErrValidation, "gain cannot move after the profit realizing it")
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}

// ensureUnrealized fails with TRANSACTION_IN_USE when a profit realizes gain.
func ensureUnrealized(tx store.Store, gain *models.Transaction) error {
	_, err := tx.FindRealization(gain.ID, 0)
	if err == nil {
		return apperrors.ErrTransactionInUse
	}
	if !errors.Is(err, store.ErrNotFound) {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// transferFailure reports a rolled-back transfer. Input problems keep their
// own code; anything else surfaces as TRANSFER_FAILED.
func transferFailure(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.StatusCode < http.StatusInternalServerError {
		return err
	}
	return apperrors.Wrap(apperrors.ErrTransferFailed, err)
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
