package finance

import (
	"github.com/shopspring/decimal"
)

// GrowthClass classifies the transition between two reporting periods.
// A raw percentage is misleading or undefined across sign changes and
// zero bases, so those transitions carry a class instead of a number.
type GrowthClass string

const (
	// GrowthNormal means both periods were positive and the rate is exact.
	GrowthNormal GrowthClass = "NORMAL"
	// GrowthTurnedProfitable means the prior period was a loss and the
	// current one is not. No numeric rate is defined.
	GrowthTurnedProfitable GrowthClass = "TURNED_PROFITABLE"
	// GrowthTurnedLoss means the prior period was profitable and the
	// current one is a loss. No numeric rate is defined.
	GrowthTurnedLoss GrowthClass = "TURNED_LOSS"
	// GrowthBothNegative means both periods were losses. A rate is
	// reported but flagged because its sign is easy to misread.
	GrowthBothNegative GrowthClass = "BOTH_NEGATIVE"
	// GrowthZeroBase means the prior period was exactly zero, so no rate
	// can be computed regardless of the current value.
	GrowthZeroBase GrowthClass = "ZERO_BASE"
	// GrowthUnavailable means one of the two values was not reported.
	GrowthUnavailable GrowthClass = "UNAVAILABLE"
)

// HasRate reports whether the class carries a numeric growth rate.
func (c GrowthClass) HasRate() bool {
	return c == GrowthNormal || c == GrowthBothNegative
}

// Growth is the derived YoY transition for one metric.
type Growth struct {
	Class GrowthClass `json:"class"`
	// Rate is the growth rate in percent, rounded to two decimal places.
	// Nil when the class defines no rate.
	Rate *decimal.Decimal `json:"rate,omitempty"`
	// Prior and Current echo the inputs for classes where the rate is
	// undefined, so callers can still show the underlying numbers.
	Prior   *decimal.Decimal `json:"prior,omitempty"`
	Current *decimal.Decimal `json:"current,omitempty"`
}

// ClassifyGrowth derives the growth transition for a prior/current pair.
//
// The standard rate is ((current - prior) / |prior|) * 100, which for a
// positive prior equals (current/prior - 1) * 100 exactly. Sign changes and
// a zero base produce a class with no rate; two negative periods produce a
// rate flagged BOTH_NEGATIVE.
func ClassifyGrowth(prior, current *decimal.Decimal) Growth {
	if prior == nil || current == nil {
		return Growth{Class: GrowthUnavailable}
	}

	switch {
	case prior.IsZero():
		return Growth{Class: GrowthZeroBase, Prior: prior, Current: current}

	case prior.IsNegative() && !current.IsNegative():
		return Growth{Class: GrowthTurnedProfitable, Prior: prior, Current: current}

	case prior.IsPositive() && current.IsNegative():
		return Growth{Class: GrowthTurnedLoss, Prior: prior, Current: current}

	case prior.IsNegative() && current.IsNegative():
		rate := growthRate(*prior, *current)
		return Growth{Class: GrowthBothNegative, Rate: &rate, Prior: prior, Current: current}

	default:
		rate := growthRate(*prior, *current)
		return Growth{Class: GrowthNormal, Rate: &rate, Prior: prior, Current: current}
	}
}

// GrowthRates derives the YoY transition for every metric in GrowthMetrics.
func GrowthRates(current, prior PeriodData) map[Metric]Growth {
	rates := make(map[Metric]Growth, len(GrowthMetrics))
	for _, m := range GrowthMetrics {
		rates[m] = ClassifyGrowth(prior.Metric(m), current.Metric(m))
	}
	return rates
}

func growthRate(prior, current decimal.Decimal) decimal.Decimal {
	return current.Sub(prior).Div(prior.Abs()).Mul(decimal.NewFromInt(100)).Round(2)
}
