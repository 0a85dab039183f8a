package services

import (
	"sort"
	"time"

	"ledgerbook/internal/chart"
	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
	"ledgerbook/internal/store"
	"ledgerbook/internal/valuation"
)

// chartService answers read-only range queries. It never writes; days
// without a stored snapshot are valued on the fly.
type chartService struct {
	store    store.Store
	revaluer *Revaluer
	cache    *chart.Cache
}

// NewChartService creates a new ChartServicer. A nil cache disables PNG
// caching.
func NewChartService(st store.Store, revaluer *Revaluer, cache *chart.Cache) ChartServicer {
	return &chartService{store: st, revaluer: revaluer, cache: cache}
}

// GetChart returns the ledger's metrics at the window bounds, at every
// stored snapshot date and at every transaction day inside the window.
// The window defaults to the first and last event days.
func (s *chartService) GetChart(ledgerUID string, start, end *time.Time) (*LedgerChart, error) {
	ledger, err := s.store.GetLedgerByUID(ledgerUID)
	if err != nil {
		return nil, mapStoreError(err, apperrors.ErrLedgerNotFound)
	}
	return s.buildChart(ledger, start, end)
}

// RenderChartPNG draws the chart of GetChart as a PNG image.
func (s *chartService) RenderChartPNG(ledgerUID string, start, end *time.Time) ([]byte, error) {
	ledger, err := s.store.GetLedgerByUID(ledgerUID)
	if err != nil {
		return nil, mapStoreError(err, apperrors.ErrLedgerNotFound)
	}

	lc, err := s.buildChart(ledger, start, end)
	if err != nil {
		return nil, err
	}
	if len(lc.Points) < 2 {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "chart needs at least two points")
	}

	key := chart.Key(ledger.UID, *lc.Start, *lc.End, ledger.UpdatedAt)
	if s.cache != nil {
		if png, ok := s.cache.Get(key); ok {
			return png, nil
		}
	}

	points := make([]chart.Point, len(lc.Points))
	for i, p := range lc.Points {
		points[i] = chart.Point{
			Date:            p.Date,
			Balance:         p.Balance,
			AfterTaxBalance: p.AfterTaxBalance,
			FloatProfit:     p.FloatProfit,
		}
	}

	png, err := chart.Render(ledger.Name, ledger.BaseCurrency, points)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if s.cache != nil {
		s.cache.Set(key, png)
	}
	return png, nil
}

func (s *chartService) buildChart(ledger *models.Ledger, start, end *time.Time) (*LedgerChart, error) {
	if start != nil && end != nil && start.After(*end) {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "start must not be after end")
	}

	policy, err := s.revaluer.Policy(s.store, ledger)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.GetTransactions(ledger.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	log := valuation.SortLog(txs)

	lc := &LedgerChart{
		LedgerID:     ledger.UID,
		BaseCurrency: ledger.BaseCurrency,
		Points:       []ChartPoint{},
	}

	from, to, ok := window(log, start, end)
	if !ok {
		return lc, nil
	}
	lc.Start, lc.End = &from, &to

	stored, err := s.store.SnapshotsInRange(ledger.ID, &from, &to)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byDay := make(map[time.Time]*models.LedgerSnapshot, len(stored))
	for i := range stored {
		byDay[dayOf(stored[i].SnapshotDate)] = &stored[i]
	}

	days := map[time.Time]bool{from: true, to: true}
	for day := range byDay {
		days[day] = true
	}
	for i := range log {
		if d := dayOf(log[i].EventTime); !d.Before(from) && !d.After(to) {
			days[d] = true
		}
	}

	ordered := make([]time.Time, 0, len(days))
	for d := range days {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	for _, day := range ordered {
		if snap, ok := byDay[day]; ok {
			lc.Points = append(lc.Points, pointFrom(snap, PointSourceSnapshot))
			continue
		}
		lc.Points = append(lc.Points, pointFrom(BuildSnapshot(ledger, log, policy, day), PointSourceComputed))
	}
	return lc, nil
}

// window resolves the chart bounds to UTC days. Missing bounds come from
// the log; it reports false when there is nothing to chart.
func window(log []models.Transaction, start, end *time.Time) (time.Time, time.Time, bool) {
	var from, to time.Time
	if start != nil {
		from = dayOf(*start)
	}
	if end != nil {
		to = dayOf(*end)
	}

	if len(log) > 0 {
		if start == nil {
			from = dayOf(log[0].EventTime)
		}
		if end == nil {
			to = dayOf(log[len(log)-1].EventTime)
		}
	} else {
		if start == nil && end == nil {
			return time.Time{}, time.Time{}, false
		}
		if start == nil {
			from = to
		}
		if end == nil {
			to = from
		}
	}

	// An explicit bound can fall outside the log's span.
	if from.After(to) {
		if start == nil {
			from = to
		} else {
			to = from
		}
	}
	return from, to, true
}

func pointFrom(snap *models.LedgerSnapshot, source string) ChartPoint {
	return ChartPoint{
		Date:                dayOf(snap.SnapshotDate),
		Source:              source,
		Balance:             snap.Balance,
		FloatProfit:         snap.FloatProfit,
		TaxPending:          snap.TaxPending,
		AfterTaxBalance:     snap.AfterTaxBalance,
		IRR:                 snap.IRR,
		IRRWeighted:         snap.IRRWeighted,
		IRRAfterTax:         snap.IRRAfterTax,
		IRRAfterTaxWeighted: snap.IRRAfterTaxWeighted,
	}
}
