// Package metrics derives tenure, activity, consistency and window revenue
// for a normalized customer.
package metrics

import (
	"github.com/opensource-finance/loyalty/internal/domain"
)

// Compute derives the classifier inputs for one customer. It is a pure
// function of the customer and cfg.
func Compute(c domain.NormalizedCustomer, cfg domain.LoyaltyConfig) domain.Metrics {
	years := cfg.EvaluationYears()

	m := domain.Metrics{
		TenureYears: Tenure(c.FirstOrderYear, cfg.CurrentYear),
		ActiveYears: make(map[int]bool, len(years)),
	}

	for _, y := range years {
		rev := c.RevenueByYear[y]
		active := IsActive(rev, cfg.MinRevenuePerActiveYear)
		m.ActiveYears[y] = active
		if active {
			m.YearsActive++
		}
		m.RevenueInWindow += rev
	}

	if n := len(years); n > 0 {
		m.ConsistencyRate = float64(m.YearsActive) / float64(n)
	}

	return m
}

// Tenure returns currentYear - firstYear, or absent when firstYear is absent.
func Tenure(firstYear domain.OptionalInt, currentYear int) domain.OptionalInt {
	if !firstYear.Valid {
		return domain.OptionalInt{}
	}
	return domain.SomeInt(currentYear - firstYear.Value)
}

// IsActive applies the per-year activity rule. A floor of 0 disables the
// floor and any strictly positive revenue counts; otherwise revenue must
// reach the floor.
func IsActive(revenue, floor float64) bool {
	if floor > 0 {
		return revenue >= floor
	}
	return revenue > 0
}
