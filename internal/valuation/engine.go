// Package valuation derives a ledger's balance, profit, tax and return
// metrics from its transaction log. Everything here is a pure function of
// the log: no I/O, no clocks.
package valuation

import (
	"sort"
	"time"

	"ledgerbook/internal/logger"
	"ledgerbook/internal/models"

	"github.com/shopspring/decimal"
)

// Policy carries the per-ledger configuration the engine needs.
type Policy struct {
	// TaxRate is the fraction of realized profit owed as tax.
	TaxRate float64
}

// Metrics is the full derived state of a ledger at the end of a log.
type Metrics struct {
	Balance             float64
	FloatProfit         float64
	RealizedProfit      float64
	TaxPending          float64
	AfterTaxBalance     float64
	IRR                 float64
	IRRWeighted         float64
	IRRAfterTax         float64
	IRRAfterTaxWeighted float64

	// LastTransaction is the latest transaction by event order, nil for an
	// empty log.
	LastTransaction  *models.Transaction
	TransactionCount int
	FirstEventTime   *time.Time
	LastEventTime    *time.Time
	// TypeTotals sums the signed effect on the ledger per transaction type.
	TypeTotals map[models.TransactionType]float64
}

// SortLog returns a copy of txs ordered by event time, ties broken by
// insertion sequence (internal id).
func SortLog(txs []models.Transaction) []models.Transaction {
	sorted := make([]models.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].EventTime.Equal(sorted[j].EventTime) {
			return sorted[i].EventTime.Before(sorted[j].EventTime)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// SignedEffect returns the change the transaction makes to the given
// ledger's balance, in the ledger's base currency. Transactions that do not
// touch the ledger have no effect.
func SignedEffect(tx *models.Transaction, ledgerID uint) decimal.Decimal {
	c := decimal.NewFromFloat(tx.ConvertedAmount)
	switch tx.Type {
	case models.TransactionTypeIncome:
		if tx.LedgerID == ledgerID {
			return c.Abs()
		}
	case models.TransactionTypeExpense:
		if tx.LedgerID == ledgerID {
			return c.Abs().Neg()
		}
	case models.TransactionTypeTransfer:
		if tx.LedgerID == ledgerID {
			return c.Abs().Neg()
		}
		if tx.ToLedgerID != nil && *tx.ToLedgerID == ledgerID {
			return c.Abs()
		}
	case models.TransactionTypeGain, models.TransactionTypeProfit:
		if tx.LedgerID == ledgerID {
			return c
		}
	}
	return decimal.Zero
}

// isExternalFlow reports whether the transaction moves capital into or out
// of the ledger, as opposed to a return on capital already there.
func isExternalFlow(t models.TransactionType) bool {
	return t == models.TransactionTypeIncome ||
		t == models.TransactionTypeExpense ||
		t == models.TransactionTypeTransfer
}

// Compute re-derives every metric of the ledger from its log. The input
// order does not matter; the log is sorted by event time first.
func Compute(txs []models.Transaction, ledgerID uint, policy Policy) Metrics {
	log := SortLog(txs)

	m := Metrics{TypeTotals: make(map[models.TransactionType]float64)}
	taxRate := decimal.NewFromFloat(policy.TaxRate)

	var (
		balance    = decimal.Zero
		floatPnL   = decimal.Zero
		realized   = decimal.Zero
		tax        = decimal.Zero
		openGains  = make(map[uint]decimal.Decimal)
		typeTotals = make(map[models.TransactionType]decimal.Decimal)

		flows        []CashFlow
		afterTaxFlow []CashFlow

		// Time-weighted return state: growth factors chained over the
		// sub-periods between external flows.
		growth, growthAfterTax         = 1.0, 1.0
		periodStart, periodStartAfterTax float64
		periods                        int
	)

	for i := range log {
		tx := &log[i]
		if !tx.Touches(ledgerID) {
			continue
		}
		effect := SignedEffect(tx, ledgerID)

		if isExternalFlow(tx.Type) {
			value, _ := balance.Float64()
			valueAfterTax, _ := balance.Sub(tax).Float64()
			if periods > 0 {
				growth = chainPeriod(growth, periodStart, value)
				growthAfterTax = chainPeriod(growthAfterTax, periodStartAfterTax, valueAfterTax)
			}

			// Investor perspective: money into the ledger is an outflow.
			amount, _ := effect.Neg().Float64()
			flows = append(flows, CashFlow{When: tx.EventTime, Amount: amount})
			afterTaxFlow = append(afterTaxFlow, CashFlow{When: tx.EventTime, Amount: amount})
		}

		balance = balance.Add(effect)

		switch tx.Type {
		case models.TransactionTypeGain:
			openGains[tx.ID] = effect
			floatPnL = floatPnL.Add(effect)
		case models.TransactionTypeProfit:
			closed := decimal.Zero
			if tx.RealizesID != nil {
				if g, ok := openGains[*tx.RealizesID]; ok {
					closed = g
					delete(openGains, *tx.RealizesID)
					floatPnL = floatPnL.Sub(g)
				}
			}
			realized = realized.Add(closed).Add(effect)
			tax = decimal.Max(decimal.Zero, realized.Mul(taxRate))
		}

		if isExternalFlow(tx.Type) {
			periodStart, _ = balance.Float64()
			periodStartAfterTax, _ = balance.Sub(tax).Float64()
			periods++
		}

		typeTotals[tx.Type] = typeTotals[tx.Type].Add(effect)

		m.TransactionCount++
		m.LastTransaction = tx
		if m.FirstEventTime == nil {
			first := tx.EventTime
			m.FirstEventTime = &first
		}
	}

	if m.LastTransaction == nil {
		m.TypeTotals = map[models.TransactionType]float64{}
		return m
	}
	last := m.LastTransaction.EventTime
	m.LastEventTime = &last

	m.Balance, _ = balance.Float64()
	m.FloatProfit, _ = floatPnL.Float64()
	m.RealizedProfit, _ = realized.Float64()
	m.TaxPending, _ = tax.Float64()
	m.AfterTaxBalance, _ = balance.Sub(tax).Float64()
	for t, v := range typeTotals {
		m.TypeTotals[t], _ = v.Float64()
	}

	m.IRR = solve(ledgerID, "irr", append(flows, CashFlow{When: last, Amount: m.Balance}))
	m.IRRAfterTax = solve(ledgerID, "irr_after_tax", append(afterTaxFlow, CashFlow{When: last, Amount: m.AfterTaxBalance}))

	if periods > 0 {
		years := last.Sub(*m.FirstEventTime).Hours() / 24 / daysPerYear
		m.IRRWeighted = annualize(chainPeriod(growth, periodStart, m.Balance), years)
		m.IRRAfterTaxWeighted = annualize(chainPeriod(growthAfterTax, periodStartAfterTax, m.AfterTaxBalance), years)
	}

	return m
}

// ComputeAsOf derives the metrics using only transactions whose event time
// is strictly before cutoff.
func ComputeAsOf(txs []models.Transaction, ledgerID uint, cutoff time.Time, policy Policy) Metrics {
	filtered := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.EventTime.Before(cutoff) {
			filtered = append(filtered, tx)
		}
	}
	return Compute(filtered, ledgerID, policy)
}

// chainPeriod multiplies in one sub-period's return. Periods that start
// with no capital at risk carry no return and are skipped.
func chainPeriod(growth, start, end float64) float64 {
	if start <= 0 {
		return growth
	}
	return growth * (end / start)
}

func solve(ledgerID uint, metric string, flows []CashFlow) float64 {
	rate, ok := IRR(flows)
	if !ok {
		logger.Get().Debugw("IRR degenerate, using 0",
			"ledger_id", ledgerID,
			"metric", metric,
			"flows", len(flows),
		)
		return 0
	}
	return rate
}
