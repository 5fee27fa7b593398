package domain

import "time"

// TenureSentinel encodes an undefined tenure in output rows.
const TenureSentinel = -1

// TimestampLayout is the format of OutputRow.AnalysisTimestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// OutputRow is one flat, persisted customer record.
type OutputRow struct {
	CustomerID        string
	CustomerName      string
	SubSegment        string
	Status            Status
	TenureYears       int
	YearsActive       int
	ConsistencyRate   float64
	RevenueInWindow   float64
	RevenueByYear     map[int]float64
	Reason            string
	AnalysisTimestamp string
}

// Dataset is the assembled, sorted output of one run.
type Dataset struct {
	RunID   string
	RunTime time.Time
	Years   []int
	Rows    []OutputRow
}

// StatusCounts returns the number of rows per status.
func (d *Dataset) StatusCounts() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, r := range d.Rows {
		counts[r.Status]++
	}
	return counts
}

// Validation check names.
const (
	CheckRowCount       = "row_count"
	CheckStatusAssigned = "status_assigned"
	CheckRevenueTotal   = "revenue_total"
)

// ValidationCheck is the outcome of one dataset invariant check.
type ValidationCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// ValidationReport collects the invariant checks run before persistence.
type ValidationReport struct {
	Checks []ValidationCheck `json:"checks"`
}

// Passed reports whether every check passed.
func (v ValidationReport) Passed() bool {
	for _, c := range v.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed returns the checks that did not pass.
func (v ValidationReport) Failed() []ValidationCheck {
	var failed []ValidationCheck
	for _, c := range v.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}
