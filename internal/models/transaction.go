package models

import (
	"time"

	"gorm.io/gorm"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
	// TransactionTypeGain marks an unrealized valuation change.
	TransactionTypeGain TransactionType = "gain"
	// TransactionTypeProfit is realized profit; when RealizesID is set it
	// closes that gain and carries only the difference to the marked amount.
	TransactionTypeProfit TransactionType = "profit"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer,
		TransactionTypeGain, TransactionTypeProfit:
		return true
	}
	return false
}

// Transaction is one monetary event in a ledger's log. A transfer is
// stored once, on its source ledger, and is read into the target's log too.
type Transaction struct {
	Base
	LedgerID    uint    `gorm:"not null;index" json:"-"`
	LedgerUID   string  `gorm:"type:varchar(36);not null" json:"ledger_id"`
	ToLedgerID  *uint   `gorm:"index" json:"-"`
	ToLedgerUID *string `gorm:"type:varchar(36)" json:"to_ledger_id,omitempty"`
	RealizesID  *uint   `gorm:"index" json:"-"`
	RealizesUID *string `gorm:"type:varchar(36)" json:"realizes_id,omitempty"`

	Amount          float64         `gorm:"not null" json:"amount"`
	Type            TransactionType `gorm:"column:transaction_type;not null" json:"transaction_type"`
	Currency        string          `gorm:"size:3;not null" json:"currency"`
	RateToBase      float64         `gorm:"not null" json:"rate_to_base"`
	ConvertedAmount float64         `gorm:"not null" json:"converted_amount"`

	EventTime    time.Time  `gorm:"not null;index" json:"event_time"`
	SentTime     *time.Time `json:"sent_time,omitempty"`
	RecordedTime time.Time  `gorm:"not null" json:"recorded_time"`

	Purpose   string         `json:"purpose"`
	RawText   string         `json:"raw_text"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeSave quantizes the amounts so float noise from decoding or rate
// multiplication never reaches the columns.
func (t *Transaction) BeforeSave(tx *gorm.DB) error {
	t.Amount = RoundMoney(t.Amount)
	t.ConvertedAmount = RoundMoney(t.ConvertedAmount)
	return nil
}

// Touches reports whether the transaction belongs to the given ledger's log,
// either as its owner or as the target of a transfer.
func (t *Transaction) Touches(ledgerID uint) bool {
	return t.LedgerID == ledgerID || (t.ToLedgerID != nil && *t.ToLedgerID == ledgerID)
}
