package services

import (
	"time"

	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/store"
)

// CategoryServicer defines the contract for asset category bookkeeping.
type CategoryServicer interface {
	CreateCategory(region, categoryType, redeemLocation string) (*models.AssetCategory, error)
	GetCategories(page pagination.PageRequest) (*pagination.PageResponse[models.AssetCategory], error)
	GetCategoryByUID(uid string) (*models.AssetCategory, error)
	DeleteCategory(uid string) error
}

// LedgerSummary is a ledger's stored metrics plus figures derived from its
// full log at read time.
type LedgerSummary struct {
	Ledger           *models.Ledger                     `json:"ledger"`
	Category         *models.AssetCategory              `json:"asset_category"`
	TaxRate          float64                            `json:"tax_rate"`
	TransactionCount int                                `json:"transaction_count"`
	FirstEventTime   *time.Time                         `json:"first_event_time"`
	LastEventTime    *time.Time                         `json:"last_event_time"`
	RealizedProfit   float64                            `json:"realized_profit"`
	TotalsByType     map[models.TransactionType]float64 `json:"totals_by_type"`
}

// LedgerServicer defines the contract for ledger bookkeeping and summaries.
type LedgerServicer interface {
	CreateLedger(name, categoryUID, baseCurrency string) (*models.Ledger, error)
	GetLedgers(page pagination.PageRequest) (*pagination.PageResponse[models.Ledger], error)
	GetLedgerByUID(uid string) (*models.Ledger, error)
	DeleteLedger(uid string) error
	GetSummary(uid string) (*LedgerSummary, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter = store.TransactionFilter

// CreateTransactionInput carries a new transaction. ConvertedAmount is
// computed from Amount and RateToBase when nil; a zero RateToBase means
// "not given" and defaults to 1 for base-currency transactions.
type CreateTransactionInput struct {
	LedgerUID       string
	ToLedgerUID     *string
	RealizesUID     *string
	Type            models.TransactionType
	Amount          float64
	Currency        string
	RateToBase      float64
	ConvertedAmount *float64
	EventTime       time.Time
	SentTime        *time.Time
	Purpose         string
	RawText         string
}

// UpdateTransactionInput carries a partial update; nil fields are kept.
// The owning ledger cannot change.
type UpdateTransactionInput struct {
	ToLedgerUID     *string
	RealizesUID     *string
	Type            *models.TransactionType
	Amount          *float64
	Currency        *string
	RateToBase      *float64
	ConvertedAmount *float64
	EventTime       *time.Time
	SentTime        *time.Time
	Purpose         *string
	RawText         *string
}

// TransactionResult is a stored transaction and its 0-based position in the
// owning ledger's event-ordered log.
type TransactionResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Position    int                 `json:"position"`
}

// TransactionServicer defines the contract for the transaction log.
// Every mutation re-derives all affected ledgers.
type TransactionServicer interface {
	CreateTransaction(input CreateTransactionInput) (*TransactionResult, error)
	GetTransactionByUID(uid string) (*models.Transaction, error)
	GetLedgerTransactions(ledgerUID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	UpdateTransaction(uid string, input UpdateTransactionInput) (*TransactionResult, error)
	DeleteTransaction(uid string) error
}

// SnapshotServicer defines the contract for the snapshot generator.
type SnapshotServicer interface {
	Generate(ledgerUID string, asOf time.Time) (*models.LedgerSnapshot, error)
	GenerateAll(asOf time.Time) (int, error)
	ListSnapshots(ledgerUID string, page pagination.PageRequest) (*pagination.PageResponse[models.LedgerSnapshot], error)
	GetLatestSnapshot(ledgerUID string) (*models.LedgerSnapshot, error)
	GetSnapshotChart(ledgerUID string, start, end *time.Time) ([]models.LedgerSnapshot, error)
}

// Chart point sources.
const (
	PointSourceSnapshot = "snapshot"
	PointSourceComputed = "computed"
)

// ChartPoint is a ledger's metrics at the end of one calendar day.
type ChartPoint struct {
	Date                time.Time `json:"date"`
	Source              string    `json:"source"`
	Balance             float64   `json:"balance"`
	FloatProfit         float64   `json:"float_profit"`
	TaxPending          float64   `json:"tax_pending"`
	AfterTaxBalance     float64   `json:"after_tax_balance"`
	IRR                 float64   `json:"irr"`
	IRRWeighted         float64   `json:"irr_weighted"`
	IRRAfterTax         float64   `json:"irr_after_tax"`
	IRRAfterTaxWeighted float64   `json:"irr_after_tax_weighted"`
}

// LedgerChart is an ascending series of chart points over a window.
type LedgerChart struct {
	LedgerID     string       `json:"ledger_id"`
	BaseCurrency string       `json:"base_currency"`
	Start        *time.Time   `json:"start"`
	End          *time.Time   `json:"end"`
	Points       []ChartPoint `json:"points"`
}

// ChartServicer defines the contract for read-only range queries.
type ChartServicer interface {
	GetChart(ledgerUID string, start, end *time.Time) (*LedgerChart, error)
	RenderChartPNG(ledgerUID string, start, end *time.Time) ([]byte, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(action, resourceType, resourceUID, ipAddress string, changes map[string]interface{})
}
