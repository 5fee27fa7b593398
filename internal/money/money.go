// Package money provides decimal rounding and exact summation for revenue
// figures that are carried as float64 through the pipeline.
package money

import (
	"math"
	"slices"

	"github.com/cockroachdb/apd/v3"
)

// Output precision.
const (
	RevenuePlaces     = 2
	ConsistencyPlaces = 4
)

func decimalContext() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfEven
	return ctx
}

func toDecimal(f float64) (*apd.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	d, err := new(apd.Decimal).SetFloat64(f)
	if err != nil {
		return nil, false
	}
	return d, true
}

// Round rounds f to places decimal places using banker's rounding on the
// shortest decimal representation of f. Non-finite values are returned as is.
func Round(f float64, places int) float64 {
	d, ok := toDecimal(f)
	if !ok {
		return f
	}
	var out apd.Decimal
	if _, err := decimalContext().Quantize(&out, d, int32(-places)); err != nil {
		return f
	}
	r, err := out.Float64()
	if err != nil {
		return f
	}
	if r == 0 {
		return 0
	}
	return r
}

// Sum adds values exactly in decimal and converts the total back to float64.
// Non-finite values are skipped.
func Sum(values ...float64) float64 {
	ctx := decimalContext()
	total := new(apd.Decimal)
	for _, v := range values {
		d, ok := toDecimal(v)
		if !ok {
			continue
		}
		if _, err := ctx.Add(total, total, d); err != nil {
			continue
		}
	}
	f, err := total.Float64()
	if err != nil {
		return 0
	}
	return f
}

// Mean returns the arithmetic mean, or 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values...) / float64(len(values))
}

// Median returns the middle value, averaging the two middle values for an
// even count, or 0 for no values.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
