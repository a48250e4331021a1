package finance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfitability_Margins(t *testing.T) {
	current := PeriodData{
		Revenue:         D(1000),
		OperatingIncome: D(100),
		OrdinaryIncome:  D(90),
		NetIncome:       D(60),
	}

	m := Profitability(current, nil)

	require.NotNil(t, m.OperatingMargin)
	assert.True(t, m.OperatingMargin.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, m.OrdinaryMargin)
	assert.True(t, m.OrdinaryMargin.Equal(decimal.NewFromInt(9)))
	require.NotNil(t, m.NetMargin)
	assert.True(t, m.NetMargin.Equal(decimal.NewFromInt(6)))
}

func TestProfitability_ZeroRevenueSkipsMargins(t *testing.T) {
	current := PeriodData{
		Revenue:         D(0),
		OperatingIncome: D(100),
	}

	m := Profitability(current, nil)

	assert.Nil(t, m.OperatingMargin)
	assert.Nil(t, m.OrdinaryMargin)
	assert.Nil(t, m.NetMargin)
}

func TestProfitability_ROEBasis(t *testing.T) {
	tests := []struct {
		name      string
		current   PeriodData
		prior     *PeriodData
		wantROE   string
		wantBasis Basis
	}{
		{
			name:      "period average when prior equity known",
			current:   PeriodData{NetIncome: D(100), Equity: D(1200)},
			prior:     &PeriodData{Equity: D(800)},
			wantROE:   "10", // 100 / ((1200+800)/2) * 100
			wantBasis: BasisPeriodAverage,
		},
		{
			name:      "point in time without prior period",
			current:   PeriodData{NetIncome: D(100), Equity: D(1000)},
			prior:     nil,
			wantROE:   "10",
			wantBasis: BasisPointInTime,
		},
		{
			name:      "point in time when prior equity missing",
			current:   PeriodData{NetIncome: D(100), Equity: D(1000)},
			prior:     &PeriodData{},
			wantROE:   "10",
			wantBasis: BasisPointInTime,
		},
		{
			name:      "point in time when prior equity zero",
			current:   PeriodData{NetIncome: D(100), Equity: D(1000)},
			prior:     &PeriodData{Equity: D(0)},
			wantROE:   "10",
			wantBasis: BasisPointInTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Profitability(tt.current, tt.prior)

			require.NotNil(t, m.ROE)
			want := decimal.RequireFromString(tt.wantROE)
			assert.True(t, m.ROE.Value.Equal(want), "ROE = %s, want %s", m.ROE.Value, want)
			assert.Equal(t, tt.wantBasis, m.ROE.Basis)
		})
	}
}

func TestProfitability_ROESkippedOnZeroDenominator(t *testing.T) {
	// Closing equity zero: no ratio at all.
	m := Profitability(PeriodData{NetIncome: D(100), Equity: D(0)}, nil)
	assert.Nil(t, m.ROE)

	// Opening and closing cancel out to a zero average: no ratio either.
	m = Profitability(PeriodData{NetIncome: D(100), Equity: D(500)}, &PeriodData{Equity: D(-500)})
	assert.Nil(t, m.ROE)
}

func TestProfitability_ROAPeriodAverage(t *testing.T) {
	current := PeriodData{NetIncome: D(60), TotalAssets: D(1400)}
	prior := &PeriodData{TotalAssets: D(1000)}

	m := Profitability(current, prior)

	require.NotNil(t, m.ROA)
	assert.True(t, m.ROA.Value.Equal(decimal.NewFromInt(5))) // 60 / 1200 * 100
	assert.Equal(t, BasisPeriodAverage, m.ROA.Basis)
}

func TestSafety(t *testing.T) {
	m := Safety(PeriodData{
		Equity:             D(400),
		TotalAssets:        D(1000),
		CurrentAssets:      D(300),
		CurrentLiabilities: D(150),
	})

	require.NotNil(t, m.EquityRatio)
	assert.True(t, m.EquityRatio.Equal(decimal.NewFromInt(40)))
	require.NotNil(t, m.CurrentRatio)
	assert.True(t, m.CurrentRatio.Equal(decimal.NewFromInt(200)))
}

func TestSafety_MissingInputs(t *testing.T) {
	m := Safety(PeriodData{Equity: D(400)})
	assert.Nil(t, m.EquityRatio)
	assert.Nil(t, m.CurrentRatio)

	m = Safety(PeriodData{CurrentAssets: D(300), CurrentLiabilities: D(0)})
	assert.Nil(t, m.CurrentRatio)
}

func TestEfficiency_AssetTurnover(t *testing.T) {
	current := PeriodData{Revenue: D(2400), TotalAssets: D(1400)}
	prior := &PeriodData{TotalAssets: D(1000)}

	m := Efficiency(current, prior)

	require.NotNil(t, m.AssetTurnover)
	// 2400 / 1200, as a multiple rather than a percentage.
	assert.True(t, m.AssetTurnover.Value.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, BasisPeriodAverage, m.AssetTurnover.Basis)
}

func TestEfficiency_PointInTimeFallback(t *testing.T) {
	m := Efficiency(PeriodData{Revenue: D(2000), TotalAssets: D(1000)}, nil)

	require.NotNil(t, m.AssetTurnover)
	assert.True(t, m.AssetTurnover.Value.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, BasisPointInTime, m.AssetTurnover.Basis)
}

func TestEfficiency_ROIC(t *testing.T) {
	current := PeriodData{
		OperatingIncome:    D(100),
		TotalAssets:        D(1000),
		CurrentLiabilities: D(200),
	}
	prior := &PeriodData{
		TotalAssets:        D(900),
		CurrentLiabilities: D(100),
	}

	m := Efficiency(current, prior)

	// NOPAT = 100 * (1 - 0.30) = 70
	require.NotNil(t, m.NOPAT)
	assert.True(t, m.NOPAT.Equal(decimal.NewFromInt(70)))

	// invested capital at close: 1000 - 200 = 800
	require.NotNil(t, m.InvestedCapital)
	assert.True(t, m.InvestedCapital.Equal(decimal.NewFromInt(800)))

	// prior invested capital 800 too, average 800: ROIC = 70/800 = 8.75%
	require.NotNil(t, m.ROIC)
	assert.True(t, m.ROIC.Value.Equal(decimal.RequireFromString("8.75")), "ROIC = %s", m.ROIC.Value)
	assert.Equal(t, BasisPeriodAverage, m.ROIC.Basis)
}

func TestEfficiency_ROICPointInTime(t *testing.T) {
	m := Efficiency(PeriodData{
		OperatingIncome:    D(140),
		TotalAssets:        D(1200),
		CurrentLiabilities: D(200),
	}, nil)

	require.NotNil(t, m.ROIC)
	// 98 / 1000 * 100
	assert.True(t, m.ROIC.Value.Equal(decimal.RequireFromString("9.8")), "ROIC = %s", m.ROIC.Value)
	assert.Equal(t, BasisPointInTime, m.ROIC.Basis)
}

func TestEfficiency_ROICMissingInputs(t *testing.T) {
	// no current liabilities: invested capital undefined, no ROIC
	m := Efficiency(PeriodData{OperatingIncome: D(100), TotalAssets: D(1000)}, nil)
	assert.Nil(t, m.InvestedCapital)
	assert.Nil(t, m.ROIC)
	require.NotNil(t, m.NOPAT)

	// no operating income: neither NOPAT nor ROIC
	m = Efficiency(PeriodData{TotalAssets: D(1000), CurrentLiabilities: D(200)}, nil)
	assert.Nil(t, m.NOPAT)
	assert.Nil(t, m.ROIC)
	require.NotNil(t, m.InvestedCapital)
}
