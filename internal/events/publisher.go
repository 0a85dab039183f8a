// Package events publishes ledger revaluation notifications.
package events

import (
	"context"
	"time"
)

// TypeLedgerRevalued is emitted after a mutation re-derives a ledger.
const TypeLedgerRevalued = "ledger.revalued"

// LedgerRevalued carries the metrics a ledger ended up with after a
// committed mutation.
type LedgerRevalued struct {
	Type                string    `json:"type"`
	LedgerID            string    `json:"ledger_id"`
	TriggerTxID         string    `json:"trigger_transaction_id,omitempty"`
	Balance             float64   `json:"balance"`
	FloatProfit         float64   `json:"float_profit"`
	TaxPending          float64   `json:"tax_pending"`
	AfterTaxBalance     float64   `json:"after_tax_balance"`
	IRR                 float64   `json:"irr"`
	IRRWeighted         float64   `json:"irr_weighted"`
	IRRAfterTax         float64   `json:"irr_after_tax"`
	IRRAfterTaxWeighted float64   `json:"irr_after_tax_weighted"`
	OccurredAt          time.Time `json:"occurred_at"`
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

var _ Publisher = NopPublisher{}
