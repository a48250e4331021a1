package finance

import (
	"sort"

	"github.com/shopspring/decimal"
)

// highGrowthThreshold is the 3-year revenue CAGR, in percent, above which a
// company counts as high growth.
var highGrowthThreshold = decimal.NewFromInt(10)

// Analysis is the full derived view over a company's period history.
type Analysis struct {
	LatestPeriod  string               `json:"latest_period"`
	Profitability ProfitabilityMetrics `json:"profitability"`
	Safety        SafetyMetrics        `json:"safety"`
	Efficiency    EfficiencyMetrics    `json:"efficiency"`
	GrowthYoY     map[Metric]Growth    `json:"growth_yoy,omitempty"`
	Quality       *GrowthQuality       `json:"quality,omitempty"`
	Trends        map[Metric]Trend     `json:"trends,omitempty"`
}

// GrowthQuality summarizes long-run growth over the available history.
type GrowthQuality struct {
	RevenueCAGR3Y          *decimal.Decimal `json:"revenue_cagr_3y,omitempty"`
	RevenueCAGR5Y          *decimal.Decimal `json:"revenue_cagr_5y,omitempty"`
	OpIncomeCAGR3Y         *decimal.Decimal `json:"op_income_cagr_3y,omitempty"`
	EPSCAGR3Y              *decimal.Decimal `json:"eps_cagr_3y,omitempty"`
	ConsecutiveGrowthYears int              `json:"consecutive_growth_years"`
	MarginTrend            MarginTrend      `json:"margin_trend"`
	HighGrowth             bool             `json:"high_growth"`
}

// Analyze derives the full analysis for a period history. The history is
// sorted by period end before use, so callers may pass rows in any order.
// An empty history yields a zero Analysis.
//
// One period gives point-in-time ratios only; two add YoY growth and
// period-average denominators; three or more add trends.
func Analyze(history []PeriodData) Analysis {
	if len(history) == 0 {
		return Analysis{}
	}

	sorted := make([]PeriodData, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PeriodEnd < sorted[j].PeriodEnd
	})

	latest := sorted[len(sorted)-1]
	var prior *PeriodData
	if len(sorted) > 1 {
		prior = &sorted[len(sorted)-2]
	}

	analysis := Analysis{
		LatestPeriod:  latest.PeriodEnd,
		Profitability: Profitability(latest, prior),
		Safety:        Safety(latest),
		Efficiency:    Efficiency(latest, prior),
	}

	if prior != nil {
		analysis.GrowthYoY = GrowthRates(latest, *prior)
	}

	analysis.Quality = growthQuality(sorted)

	if len(sorted) >= 3 {
		analysis.Trends = trends(sorted)
	}

	return analysis
}

// growthQuality computes CAGR, growth streak, and margin trend over the
// sorted history. A 3-year CAGR needs four data points, a 5-year CAGR six.
func growthQuality(sorted []PeriodData) *GrowthQuality {
	revenues := series(sorted, MetricRevenue)
	if len(revenues) < 2 {
		return nil
	}

	q := &GrowthQuality{
		ConsecutiveGrowthYears: ConsecutiveGrowthYears(revenues),
		MarginTrend:            ClassifyMarginTrend(revenues, series(sorted, MetricOperatingIncome)),
	}

	if n := len(revenues); n >= 4 {
		q.RevenueCAGR3Y = CAGR(revenues[n-4], revenues[n-1], 3)
	}
	if n := len(revenues); n >= 6 {
		q.RevenueCAGR5Y = CAGR(revenues[n-6], revenues[n-1], 5)
	}

	if ops := series(sorted, MetricOperatingIncome); len(ops) >= 4 {
		q.OpIncomeCAGR3Y = CAGR(ops[len(ops)-4], ops[len(ops)-1], 3)
	}
	if eps := series(sorted, MetricEPS); len(eps) >= 4 {
		q.EPSCAGR3Y = CAGR(eps[len(eps)-4], eps[len(eps)-1], 3)
	}

	if q.RevenueCAGR3Y != nil && q.RevenueCAGR3Y.GreaterThanOrEqual(highGrowthThreshold) {
		q.HighGrowth = true
	}

	return q
}

func trends(sorted []PeriodData) map[Metric]Trend {
	out := make(map[Metric]Trend)
	for _, m := range []Metric{MetricRevenue, MetricOperatingIncome, MetricEPS} {
		if t := TrendFor(series(sorted, m)); t != nil {
			out[m] = *t
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// series extracts the reported values of one metric oldest-first, skipping
// periods that did not report it.
func series(sorted []PeriodData, m Metric) []decimal.Decimal {
	var values []decimal.Decimal
	for _, p := range sorted {
		if v := p.Metric(m); v != nil {
			values = append(values, *v)
		}
	}
	return values
}
