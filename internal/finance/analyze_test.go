package finance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func period(end string, revenue, opIncome, netIncome, equity, assets float64) PeriodData {
	return PeriodData{
		PeriodEnd:       end,
		Revenue:         D(revenue),
		OperatingIncome: D(opIncome),
		NetIncome:       D(netIncome),
		Equity:          D(equity),
		TotalAssets:     D(assets),
	}
}

func TestAnalyze_Empty(t *testing.T) {
	a := Analyze(nil)
	assert.Equal(t, Analysis{}, a)
}

func TestAnalyze_SinglePeriod(t *testing.T) {
	a := Analyze([]PeriodData{
		period("2025-03-31", 1000, 100, 60, 400, 1000),
	})

	assert.Equal(t, "2025-03-31", a.LatestPeriod)
	assert.Nil(t, a.GrowthYoY, "one period cannot produce YoY growth")
	require.NotNil(t, a.Profitability.ROE)
	assert.Equal(t, BasisPointInTime, a.Profitability.ROE.Basis)
	assert.Nil(t, a.Trends)
}

func TestAnalyze_TwoPeriods(t *testing.T) {
	a := Analyze([]PeriodData{
		period("2024-03-31", 1000, 100, 50, 800, 1000),
		period("2025-03-31", 1200, 130, 100, 1200, 1400),
	})

	assert.Equal(t, "2025-03-31", a.LatestPeriod)

	require.NotNil(t, a.Profitability.ROE)
	assert.Equal(t, BasisPeriodAverage, a.Profitability.ROE.Basis)
	assert.True(t, a.Profitability.ROE.Value.Equal(decimal.NewFromInt(10)))

	require.NotNil(t, a.GrowthYoY)
	rev := a.GrowthYoY[MetricRevenue]
	assert.Equal(t, GrowthNormal, rev.Class)
	require.NotNil(t, rev.Rate)
	assert.True(t, rev.Rate.Equal(decimal.NewFromInt(20)))
}

func TestAnalyze_SortsUnorderedHistory(t *testing.T) {
	a := Analyze([]PeriodData{
		period("2025-03-31", 1200, 130, 100, 1200, 1400),
		period("2023-03-31", 900, 80, 40, 700, 900),
		period("2024-03-31", 1000, 100, 50, 800, 1000),
	})

	assert.Equal(t, "2025-03-31", a.LatestPeriod)
	// Growth must be measured against 2024, not 2023.
	rev := a.GrowthYoY[MetricRevenue]
	require.NotNil(t, rev.Rate)
	assert.True(t, rev.Rate.Equal(decimal.NewFromInt(20)))
}

func TestAnalyze_TrendsNeedThreePeriods(t *testing.T) {
	history := []PeriodData{
		period("2023-03-31", 900, 80, 40, 700, 900),
		period("2024-03-31", 1000, 100, 50, 800, 1000),
		period("2025-03-31", 1100, 120, 60, 900, 1100),
	}

	a := Analyze(history)

	require.NotNil(t, a.Trends)
	rev, ok := a.Trends[MetricRevenue]
	require.True(t, ok)
	assert.Equal(t, "up", rev.Direction)
}

func TestAnalyze_GrowthQuality(t *testing.T) {
	// Revenue doubles over three transitions: 3y CAGR is about 26%.
	history := []PeriodData{
		period("2022-03-31", 1000, 100, 50, 700, 900),
		period("2023-03-31", 1300, 120, 60, 800, 1000),
		period("2024-03-31", 1700, 150, 80, 900, 1100),
		period("2025-03-31", 2000, 200, 110, 1000, 1200),
	}

	a := Analyze(history)

	require.NotNil(t, a.Quality)
	require.NotNil(t, a.Quality.RevenueCAGR3Y)
	assert.True(t, a.Quality.HighGrowth)
	assert.Equal(t, 3, a.Quality.ConsecutiveGrowthYears)
	assert.Nil(t, a.Quality.RevenueCAGR5Y, "five-year CAGR needs six periods")
}
