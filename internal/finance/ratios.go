package finance

import (
	"github.com/shopspring/decimal"
)

// Basis records which denominator a balance-sheet ratio was computed on.
type Basis string

const (
	// BasisPeriodAverage means the denominator is the mean of the opening
	// and closing balance for the period.
	BasisPeriodAverage Basis = "PERIOD_AVERAGE"
	// BasisPointInTime means only the closing balance was available.
	BasisPointInTime Basis = "POINT_IN_TIME"
)

// Ratio is a derived ratio together with its computation basis.
type Ratio struct {
	Value decimal.Decimal `json:"value"`
	Basis Basis           `json:"basis"`
}

// ProfitabilityMetrics holds margin and return ratios for one period.
// Margins are percentages of revenue; ROE and ROA are percentages of the
// period-average (or closing) balance.
type ProfitabilityMetrics struct {
	OperatingMargin *decimal.Decimal `json:"operating_margin,omitempty"`
	OrdinaryMargin  *decimal.Decimal `json:"ordinary_margin,omitempty"`
	NetMargin       *decimal.Decimal `json:"net_margin,omitempty"`
	ROE             *Ratio           `json:"roe,omitempty"`
	ROA             *Ratio           `json:"roa,omitempty"`
}

// SafetyMetrics holds balance-sheet stability ratios, in percent.
type SafetyMetrics struct {
	EquityRatio  *decimal.Decimal `json:"equity_ratio,omitempty"`
	CurrentRatio *decimal.Decimal `json:"current_ratio,omitempty"`
}

// effectiveTaxRate is the assumed rate used to derive NOPAT from
// operating income when the actual tax charge is not reported.
var effectiveTaxRate = decimal.NewFromFloat(0.30)

// EfficiencyMetrics holds asset-utilization and capital-return ratios.
// Turnover is a plain multiple, not a percentage; ROIC is a percentage
// of invested capital.
type EfficiencyMetrics struct {
	AssetTurnover   *Ratio           `json:"asset_turnover,omitempty"`
	NOPAT           *decimal.Decimal `json:"nopat,omitempty"`
	InvestedCapital *decimal.Decimal `json:"invested_capital,omitempty"`
	ROIC            *Ratio           `json:"roic,omitempty"`
}

// Profitability derives margins, ROE, and ROA for the current period.
// prior may be nil; when it is, balance-sheet denominators fall back to the
// closing balance and the ratios are tagged point-in-time.
func Profitability(current PeriodData, prior *PeriodData) ProfitabilityMetrics {
	var m ProfitabilityMetrics

	if current.Revenue != nil && !current.Revenue.IsZero() {
		m.OperatingMargin = percentOf(current.OperatingIncome, *current.Revenue)
		m.OrdinaryMargin = percentOf(current.OrdinaryIncome, *current.Revenue)
		m.NetMargin = percentOf(current.NetIncome, *current.Revenue)
	}

	if current.NetIncome != nil {
		m.ROE = balanceRatio(*current.NetIncome, current.Equity, priorField(prior, func(p PeriodData) *decimal.Decimal { return p.Equity }), true)
		m.ROA = balanceRatio(*current.NetIncome, current.TotalAssets, priorField(prior, func(p PeriodData) *decimal.Decimal { return p.TotalAssets }), true)
	}

	return m
}

// Safety derives equity ratio and current ratio for one period.
func Safety(current PeriodData) SafetyMetrics {
	var m SafetyMetrics

	if current.Equity != nil && current.TotalAssets != nil && !current.TotalAssets.IsZero() {
		v := current.Equity.Div(*current.TotalAssets).Mul(decimal.NewFromInt(100)).Round(2)
		m.EquityRatio = &v
	}

	if current.CurrentAssets != nil && current.CurrentLiabilities != nil && !current.CurrentLiabilities.IsZero() {
		v := current.CurrentAssets.Div(*current.CurrentLiabilities).Mul(decimal.NewFromInt(100)).Round(2)
		m.CurrentRatio = &v
	}

	return m
}

// Efficiency derives asset turnover and ROIC for the current period, on
// the period-average basis when the prior closing balances are known.
//
// NOPAT is operating income after the assumed effective tax rate, and
// invested capital is total assets less current liabilities.
func Efficiency(current PeriodData, prior *PeriodData) EfficiencyMetrics {
	var m EfficiencyMetrics

	if current.Revenue != nil {
		m.AssetTurnover = balanceRatio(*current.Revenue, current.TotalAssets, priorField(prior, func(p PeriodData) *decimal.Decimal { return p.TotalAssets }), false)
	}

	m.InvestedCapital = investedCapital(current)

	if current.OperatingIncome != nil {
		nopat := current.OperatingIncome.Mul(decimal.NewFromInt(1).Sub(effectiveTaxRate))
		m.NOPAT = &nopat
		m.ROIC = balanceRatio(nopat, m.InvestedCapital, priorField(prior, investedCapital), true)
	}

	return m
}

// investedCapital is total assets less current liabilities at period
// close, nil when either balance is unreported.
func investedCapital(p PeriodData) *decimal.Decimal {
	if p.TotalAssets == nil || p.CurrentLiabilities == nil {
		return nil
	}
	v := p.TotalAssets.Sub(*p.CurrentLiabilities)
	return &v
}

// balanceRatio computes numerator over a balance-sheet denominator.
//
// When the opening balance (the prior period's closing balance) is known and
// non-zero, the denominator is the mean of opening and closing balance and
// the result is tagged PERIOD_AVERAGE. Otherwise the closing balance alone
// is used and the result is tagged POINT_IN_TIME. A zero or missing
// denominator yields nil.
func balanceRatio(numerator decimal.Decimal, closing, opening *decimal.Decimal, asPercent bool) *Ratio {
	if closing == nil || closing.IsZero() {
		return nil
	}

	denom := *closing
	basis := BasisPointInTime
	if opening != nil && !opening.IsZero() {
		avg := closing.Add(*opening).Div(decimal.NewFromInt(2))
		if avg.IsZero() {
			return nil
		}
		denom = avg
		basis = BasisPeriodAverage
	}

	value := numerator.Div(denom)
	if asPercent {
		value = value.Mul(decimal.NewFromInt(100))
	}
	value = value.Round(2)

	return &Ratio{Value: value, Basis: basis}
}

func percentOf(value *decimal.Decimal, base decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	v := value.Div(base).Mul(decimal.NewFromInt(100)).Round(2)
	return &v
}

func priorField(prior *PeriodData, get func(PeriodData) *decimal.Decimal) *decimal.Decimal {
	if prior == nil {
		return nil
	}
	return get(*prior)
}
