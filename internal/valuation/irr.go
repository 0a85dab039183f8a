package valuation

import (
	"math"
	"sort"
	"time"
)

const (
	irrLowerBound    = -0.999
	irrUpperBound    = 10.0
	irrTolerance     = 1e-7
	irrMaxIterations = 200
	// Newton steps are only tried once bisection has narrowed the bracket
	// this far; before that the derivative is too unreliable.
	newtonBracketWidth = 1e-4
	daysPerYear        = 365.25
)

// CashFlow is one external flow seen from the investor: negative when money
// goes into the ledger, positive when it comes out.
type CashFlow struct {
	When   time.Time
	Amount float64
}

// IRR computes the annualized internal rate of return of a cash-flow series,
// the rate r solving sum(CF_i / (1+r)^t_i) = 0 with t_i in years from the
// first flow. The root is bracketed in [-0.999, 10], narrowed by bisection
// and polished with Newton steps that must stay inside the bracket.
//
// ok is false when the series is degenerate: fewer than two flows, no time
// span, no sign change in the bracket. The rate is then 0.
func IRR(flows []CashFlow) (rate float64, ok bool) {
	if len(flows) < 2 {
		return 0, false
	}

	sorted := make([]CashFlow, len(flows))
	copy(sorted, flows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].When.Before(sorted[j].When)
	})

	base := sorted[0].When
	years := make([]float64, len(sorted))
	hasNeg, hasPos := false, false
	for i, f := range sorted {
		years[i] = f.When.Sub(base).Hours() / 24 / daysPerYear
		if f.Amount < 0 {
			hasNeg = true
		}
		if f.Amount > 0 {
			hasPos = true
		}
	}
	if years[len(years)-1] <= 0 || !hasNeg || !hasPos {
		return 0, false
	}

	npv := func(r float64) (value, deriv float64) {
		for i, f := range sorted {
			discount := math.Pow(1+r, years[i])
			value += f.Amount / discount
			deriv -= years[i] * f.Amount / (discount * (1 + r))
		}
		return value, deriv
	}

	lo, hi := irrLowerBound, irrUpperBound
	fLo, _ := npv(lo)
	fHi, _ := npv(hi)
	if !finite(fLo) || !finite(fHi) {
		return 0, false
	}
	if fLo == 0 {
		return lo, true
	}
	if fHi == 0 {
		return hi, true
	}
	if (fLo > 0) == (fHi > 0) {
		return 0, false
	}

	rate = (lo + hi) / 2
	for iter := 0; iter < irrMaxIterations; iter++ {
		f, df := npv(rate)
		if !finite(f) {
			return 0, false
		}
		if math.Abs(f) < irrTolerance || hi-lo < irrTolerance {
			return rate, true
		}

		if (f > 0) == (fLo > 0) {
			lo, fLo = rate, f
		} else {
			hi = rate
		}

		next := (lo + hi) / 2
		if hi-lo < newtonBracketWidth && df != 0 {
			if n := rate - f/df; n > lo && n < hi {
				next = n
			}
		}
		rate = next
	}
	return rate, true
}

// annualize converts a cumulative growth factor over the given number of
// years into a yearly rate. Spans shorter than a year are reported as the
// plain period return rather than extrapolated. Either way the result stays
// inside the solver's bracket.
func annualize(growth, years float64) float64 {
	if growth <= 0 || years <= 0 {
		return 0
	}
	r := growth - 1
	if years >= 1 {
		r = math.Pow(growth, 1/years) - 1
	}
	if !finite(r) {
		return 0
	}
	return math.Max(irrLowerBound, math.Min(irrUpperBound, r))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
