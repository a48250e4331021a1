package finance

import (
	"math"

	"github.com/shopspring/decimal"
)

// MarginTrend classifies how the operating margin moved over the last
// three periods.
type MarginTrend string

const (
	MarginImproving MarginTrend = "improving"
	MarginDeclining MarginTrend = "declining"
	MarginStable    MarginTrend = "stable"
)

// marginTrendThreshold is the relative change in operating margin over
// three periods below which the trend counts as stable.
const marginTrendThreshold = 0.05

// Trend is a least-squares slope for one metric over the full history,
// normalized as a percentage of the metric's mean per period.
type Trend struct {
	Slope     decimal.Decimal `json:"slope"`
	TrendPct  decimal.Decimal `json:"trend_pct"`
	Direction string          `json:"direction"` // "up" or "down"
}

// CAGR computes the compound annual growth rate between two endpoints in
// percent, rounded to two decimal places. It is undefined (nil) for
// non-positive endpoints or a non-positive period count.
func CAGR(start, end decimal.Decimal, periods int) *decimal.Decimal {
	if periods <= 0 || !start.IsPositive() || !end.IsPositive() {
		return nil
	}

	s := start.InexactFloat64()
	e := end.InexactFloat64()
	rate := math.Pow(e/s, 1/float64(periods)) - 1

	v := decimal.NewFromFloat(rate * 100).Round(2)
	return &v
}

// ConsecutiveGrowthYears counts how many of the most recent transitions in
// an oldest-first series were strict increases, stopping at the first
// non-increase.
func ConsecutiveGrowthYears(values []decimal.Decimal) int {
	count := 0
	for i := len(values) - 1; i > 0; i-- {
		if values[i].GreaterThan(values[i-1]) {
			count++
		} else {
			break
		}
	}
	return count
}

// ClassifyMarginTrend compares the operating margin three periods ago with
// the latest one. A relative improvement above the threshold is improving,
// a deterioration below it is declining, anything else is stable. Fewer
// than three computable margins also count as stable.
func ClassifyMarginTrend(revenues, opIncomes []decimal.Decimal) MarginTrend {
	n := len(revenues)
	if len(opIncomes) < n {
		n = len(opIncomes)
	}

	var margins []float64
	for i := 0; i < n; i++ {
		if revenues[i].IsZero() {
			continue
		}
		margins = append(margins, opIncomes[i].Div(revenues[i]).InexactFloat64())
	}

	if len(margins) < 3 {
		return MarginStable
	}

	oldest := margins[len(margins)-3]
	latest := margins[len(margins)-1]
	if oldest == 0 {
		return MarginStable
	}

	change := (latest - oldest) / oldest
	switch {
	case change > marginTrendThreshold:
		return MarginImproving
	case change < -marginTrendThreshold:
		return MarginDeclining
	default:
		return MarginStable
	}
}

// TrendFor fits a least-squares line through an oldest-first series and
// normalizes the slope against the series mean. Nil when fewer than three
// points exist or the mean is zero.
func TrendFor(values []decimal.Decimal) *Trend {
	if len(values) < 3 {
		return nil
	}

	n := float64(len(values))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		y := v.InexactFloat64()
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return nil
	}
	slope := (n*sumXY - sumX*sumY) / denom

	mean := sumY / n
	if mean == 0 {
		return nil
	}

	direction := "up"
	if slope <= 0 {
		direction = "down"
	}

	return &Trend{
		Slope:     decimal.NewFromFloat(slope),
		TrendPct:  decimal.NewFromFloat(slope / mean * 100).Round(2),
		Direction: direction,
	}
}
