// Package chart renders ledger time series as PNG images.
package chart

import (
	"bytes"
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Point is one dated sample of a ledger's metrics.
type Point struct {
	Date            time.Time
	Balance         float64
	AfterTaxBalance float64
	FloatProfit     float64
}

// FormatMoney renders v in the currency's own notation, rounded to whole
// units. Unknown currencies fall back to a plain number with the code.
func FormatMoney(v float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%.0f %s", v, currency)
	}
	minor := decimal.NewFromFloat(v).Round(0).Shift(int32(cur.Fraction))
	return money.New(minor.IntPart(), currency).Display()
}

// Render draws balance, after-tax balance and float profit over time.
// Returns raw PNG bytes.
func Render(title, currency string, points []Point) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(points))
	}

	xValues := make([]time.Time, len(points))
	balanceY := make([]float64, len(points))
	afterTaxY := make([]float64, len(points))
	floatY := make([]float64, len(points))

	lo, hi := points[0].Balance, points[0].Balance
	for i, p := range points {
		xValues[i] = p.Date
		balanceY[i] = p.Balance
		afterTaxY[i] = p.AfterTaxBalance
		floatY[i] = p.FloatProfit
		for _, v := range []float64{p.Balance, p.AfterTaxBalance, p.FloatProfit} {
			lo, hi = min(lo, v), max(hi, v)
		}
	}

	balanceSeries := chart.TimeSeries{
		Name: "Balance",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"),
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: balanceY,
	}

	afterTaxSeries := chart.TimeSeries{
		Name: "After Tax",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("16a34a"),
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: afterTaxY,
	}

	floatSeries := chart.TimeSeries{
		Name: "Float Profit",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("9ca3af"),
			StrokeWidth: 1.5,
		},
		XValues: xValues,
		YValues: floatY,
	}

	graph := chart.Chart{
		Title:  title,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("2006-01-02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return FormatMoney(f, currency)
				}
				return ""
			},
		},
		Series: []chart.Series{
			balanceSeries,
			afterTaxSeries,
			floatSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	// go-chart refuses a zero-height value range.
	if lo == hi {
		graph.YAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
