package finance

import (
	"github.com/shopspring/decimal"
)

// Metric identifies a reported financial figure that growth rates are
// derived for.
type Metric string

const (
	MetricRevenue         Metric = "revenue"
	MetricOperatingIncome Metric = "operating_income"
	MetricOrdinaryIncome  Metric = "ordinary_income"
	MetricNetIncome       Metric = "net_income"
	MetricEPS             Metric = "eps"
	MetricOperatingCF     Metric = "operating_cf"
	MetricEquity          Metric = "equity"
	MetricTotalAssets     Metric = "total_assets"
)

// PeriodData holds the normalized figures reported for one fiscal period.
// Fields are pointers because filings routinely omit individual line items;
// a nil value means "not reported", which is different from zero.
type PeriodData struct {
	PeriodEnd          string           `json:"period_end"` // YYYY-MM-DD
	Revenue            *decimal.Decimal `json:"revenue,omitempty"`
	OperatingIncome    *decimal.Decimal `json:"operating_income,omitempty"`
	OrdinaryIncome     *decimal.Decimal `json:"ordinary_income,omitempty"`
	NetIncome          *decimal.Decimal `json:"net_income,omitempty"`
	EPS                *decimal.Decimal `json:"eps,omitempty"`
	OperatingCF        *decimal.Decimal `json:"operating_cf,omitempty"`
	Equity             *decimal.Decimal `json:"equity,omitempty"`
	TotalAssets        *decimal.Decimal `json:"total_assets,omitempty"`
	CurrentAssets      *decimal.Decimal `json:"current_assets,omitempty"`
	CurrentLiabilities *decimal.Decimal `json:"current_liabilities,omitempty"`
}

// Metric returns the value of the named metric, or nil when it was not
// reported for the period.
func (p PeriodData) Metric(m Metric) *decimal.Decimal {
	switch m {
	case MetricRevenue:
		return p.Revenue
	case MetricOperatingIncome:
		return p.OperatingIncome
	case MetricOrdinaryIncome:
		return p.OrdinaryIncome
	case MetricNetIncome:
		return p.NetIncome
	case MetricEPS:
		return p.EPS
	case MetricOperatingCF:
		return p.OperatingCF
	case MetricEquity:
		return p.Equity
	case MetricTotalAssets:
		return p.TotalAssets
	default:
		return nil
	}
}

// GrowthMetrics lists the metrics YoY growth is derived for, in display order.
var GrowthMetrics = []Metric{
	MetricRevenue,
	MetricOperatingIncome,
	MetricOrdinaryIncome,
	MetricNetIncome,
	MetricEPS,
	MetricOperatingCF,
	MetricEquity,
	MetricTotalAssets,
}

// D is a convenience constructor used by callers and tests to build
// optional decimal values from float literals.
func D(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}
