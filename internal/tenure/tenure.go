// Package tenure resolves the first active year of a customer.
package tenure

import (
	"slices"
	"strings"
	"time"

	"github.com/opensource-finance/loyalty/internal/domain"
)

// dateLayouts are the order-date formats accepted, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"01/02/2006",
	"2006/01/02",
	"2006/1/2",
	"1/2/06",
	"2-Jan-2006",
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"20060102",
	"2006-01",
	"2006/01",
	"Jan 2006",
	"January 2006",
	"2006",
}

// ParseOrderDate parses a recorded first-order date. Blank or unparsable
// values return ok=false.
func ParseOrderDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ResolveFirstYear returns the customer's first active year.
//
// A parsable recorded order date is authoritative. Otherwise the first
// evaluation year (ascending) with strictly positive revenue is used. If
// neither yields a year the result is absent; no default year is invented.
// inferred reports whether the year came from revenue.
func ResolveFirstYear(rec domain.CustomerRecord, revenueByYear map[int]float64, years []int) (year domain.OptionalInt, inferred bool) {
	if t, ok := ParseOrderDate(rec.FirstOrderDate); ok {
		return domain.SomeInt(t.Year()), false
	}
	if y, ok := InferFirstYear(revenueByYear, years); ok {
		return domain.SomeInt(y), true
	}
	return domain.OptionalInt{}, false
}

// InferFirstYear scans years in ascending order for the first year with
// revenue > 0.
func InferFirstYear(revenueByYear map[int]float64, years []int) (int, bool) {
	ordered := slices.Clone(years)
	slices.Sort(ordered)
	for _, y := range ordered {
		if revenueByYear[y] > 0 {
			return y, true
		}
	}
	return 0, false
}
