package models

import (
	"time"

	"ledgerbook/internal/uuid"

	"gorm.io/gorm"
)

// LedgerSnapshot freezes a ledger's metrics as of a calendar day.
// This is immutable time-series data: no Base embed, no timestamps, no soft
// deletes. Regenerating a day rewrites the values in place.
type LedgerSnapshot struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	UID          string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"id"`
	LedgerID     uint      `gorm:"not null;uniqueIndex:uq_ledger_snapshots_ledger_date" json:"-"`
	LedgerUID    string    `gorm:"type:varchar(36);not null" json:"ledger_id"`
	SnapshotDate time.Time `gorm:"not null;uniqueIndex:uq_ledger_snapshots_ledger_date" json:"snapshot_date"`

	Balance             float64 `gorm:"not null" json:"balance"`
	FloatProfit         float64 `gorm:"not null" json:"float_profit"`
	TaxPending          float64 `gorm:"not null" json:"tax_pending"`
	AfterTaxBalance     float64 `gorm:"not null" json:"after_tax_balance"`
	IRR                 float64 `gorm:"column:irr;not null" json:"irr"`
	IRRWeighted         float64 `gorm:"column:irr_weighted;not null" json:"irr_weighted"`
	IRRAfterTax         float64 `gorm:"column:irr_after_tax;not null" json:"irr_after_tax"`
	IRRAfterTaxWeighted float64 `gorm:"column:irr_after_tax_weighted;not null" json:"irr_after_tax_weighted"`

	CalculatedFromTxID  *uint   `json:"-"`
	CalculatedFromTxUID *string `gorm:"type:varchar(36)" json:"calculated_from_tx_id"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (s *LedgerSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.UID == "" {
		s.UID = uuid.New()
	}
	return nil
}

// SameValues reports whether two snapshots carry identical metrics and
// trigger, ignoring identity columns.
func (s *LedgerSnapshot) SameValues(o *LedgerSnapshot) bool {
	return s.Balance == o.Balance &&
		s.FloatProfit == o.FloatProfit &&
		s.TaxPending == o.TaxPending &&
		s.AfterTaxBalance == o.AfterTaxBalance &&
		s.IRR == o.IRR &&
		s.IRRWeighted == o.IRRWeighted &&
		s.IRRAfterTax == o.IRRAfterTax &&
		s.IRRAfterTaxWeighted == o.IRRAfterTaxWeighted &&
		equalUintPtr(s.CalculatedFromTxID, o.CalculatedFromTxID)
}

func equalUintPtr(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
