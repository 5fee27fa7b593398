// Package domain defines the core types shared by the loyalty pipeline.
package domain

// UnknownSubSegment is used when a record carries no sub-segment.
const UnknownSubSegment = "UNKNOWN"

// OptionalInt is an int that may be absent.
type OptionalInt struct {
	Value int
	Valid bool
}

// SomeInt returns a present OptionalInt.
func SomeInt(v int) OptionalInt {
	return OptionalInt{Value: v, Valid: true}
}

// Or returns the value if present, otherwise fallback.
func (o OptionalInt) Or(fallback int) int {
	if !o.Valid {
		return fallback
	}
	return o.Value
}

// CustomerRecord is one input row as read from the revenue file.
type CustomerRecord struct {
	AccountID      string
	Name           string
	SubSegment     string
	FirstOrderDate string // raw cell, may be blank or unparsable

	// RawRevenueByYear holds the raw revenue cell for each evaluation year.
	RawRevenueByYear map[int]string
}

// NormalizedCustomer is a CustomerRecord after currency normalization and
// tenure resolution.
type NormalizedCustomer struct {
	Record         CustomerRecord
	RevenueByYear  map[int]float64
	FirstOrderYear OptionalInt

	// FirstYearInferred is true when FirstOrderYear came from revenue
	// rather than the recorded order date.
	FirstYearInferred bool
}

// Metrics are the per-customer values the classifier decides on.
type Metrics struct {
	TenureYears     OptionalInt
	ActiveYears     map[int]bool
	YearsActive     int
	ConsistencyRate float64
	RevenueInWindow float64
}

// EvaluatedCustomer is the result of the per-record pipeline.
type EvaluatedCustomer struct {
	Customer       NormalizedCustomer
	Metrics        Metrics
	Classification ClassificationResult
}
