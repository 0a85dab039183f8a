package models

import (
	"time"

	"gorm.io/gorm"
)

// Ledger is an account-like container for transactions. Every metric
// column is derived from the ledger's transaction log and rewritten as a
// whole whenever the log changes.
type Ledger struct {
	Base
	Name             string         `gorm:"not null" json:"name"`
	AssetCategoryID  uint           `gorm:"not null;index" json:"-"`
	AssetCategoryUID string         `gorm:"type:varchar(36);not null" json:"asset_category_id"`
	BaseCurrency     string         `gorm:"size:3;not null" json:"base_currency"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	LastChangedAt      *time.Time `json:"last_changed_at"`
	LastTransactionID  *uint      `json:"-"`
	LastTransactionUID *string    `gorm:"type:varchar(36)" json:"last_transaction_id"`

	Balance             float64 `gorm:"not null;default:0" json:"balance"`
	FloatProfit         float64 `gorm:"not null;default:0" json:"float_profit"`
	RealizedProfit      float64 `gorm:"not null;default:0" json:"realized_profit"`
	TaxPending          float64 `gorm:"not null;default:0" json:"tax_pending"`
	AfterTaxBalance     float64 `gorm:"not null;default:0" json:"after_tax_balance"`
	IRR                 float64 `gorm:"column:irr;not null;default:0" json:"irr"`
	IRRWeighted         float64 `gorm:"column:irr_weighted;not null;default:0" json:"irr_weighted"`
	IRRAfterTax         float64 `gorm:"column:irr_after_tax;not null;default:0" json:"irr_after_tax"`
	IRRAfterTaxWeighted float64 `gorm:"column:irr_after_tax_weighted;not null;default:0" json:"irr_after_tax_weighted"`
}
