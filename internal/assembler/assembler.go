// Package assembler turns evaluated customers into the sorted, validated
// dataset that is persisted at the end of a run.
package assembler

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/loyalty/internal/domain"
	"github.com/opensource-finance/loyalty/internal/money"
)

// DefaultRevenueTolerance is the allowed drift between input and output
// revenue totals, absorbing per-row rounding.
const DefaultRevenueTolerance = 1.0

// Assembler projects, sorts and validates evaluated customers.
type Assembler struct {
	// Evaluation years, ascending. One revenue column per year.
	Years []int

	RevenueTolerance float64
}

// New creates an assembler for the given evaluation years.
func New(years []int) *Assembler {
	return &Assembler{
		Years:            slices.Clone(years),
		RevenueTolerance: DefaultRevenueTolerance,
	}
}

// Assemble builds the output dataset. Every row shares runTime as its
// analysis timestamp. expectedRows is the deduplicated input count the row
// count is checked against. Validation failures are reported, never fatal.
func (a *Assembler) Assemble(customers []domain.EvaluatedCustomer, expectedRows int, runTime time.Time) (domain.Dataset, domain.ValidationReport) {
	ds := domain.Dataset{
		RunID:   uuid.NewString(),
		RunTime: runTime,
		Years:   slices.Clone(a.Years),
		Rows:    make([]domain.OutputRow, 0, len(customers)),
	}

	stamp := runTime.Format(domain.TimestampLayout)
	for _, c := range customers {
		ds.Rows = append(ds.Rows, a.project(c, stamp))
	}

	SortRows(ds.Rows)

	report := a.Validate(&ds, expectedRows, InputRevenue(customers, a.Years))
	return ds, report
}

func (a *Assembler) project(c domain.EvaluatedCustomer, stamp string) domain.OutputRow {
	rec := c.Customer.Record

	row := domain.OutputRow{
		CustomerID:        rec.AccountID,
		CustomerName:      rec.Name,
		SubSegment:        rec.SubSegment,
		Status:            c.Classification.Status,
		TenureYears:       c.Metrics.TenureYears.Or(domain.TenureSentinel),
		YearsActive:       c.Metrics.YearsActive,
		ConsistencyRate:   money.Round(c.Metrics.ConsistencyRate, money.ConsistencyPlaces),
		RevenueInWindow:   money.Round(c.Metrics.RevenueInWindow, money.RevenuePlaces),
		RevenueByYear:     make(map[int]float64, len(a.Years)),
		Reason:            c.Classification.Reason,
		AnalysisTimestamp: stamp,
	}
	if row.SubSegment == "" {
		row.SubSegment = domain.UnknownSubSegment
	}
	for _, y := range a.Years {
		row.RevenueByYear[y] = money.Round(c.Customer.RevenueByYear[y], money.RevenuePlaces)
	}
	if row.Status == domain.StatusLoyal {
		row.Reason = ""
	}
	return row
}

// SortRows orders rows by status rank, then window revenue descending.
// Ties keep their input order.
func SortRows(rows []domain.OutputRow) {
	slices.SortStableFunc(rows, func(x, y domain.OutputRow) int {
		if rx, ry := x.Status.Rank(), y.Status.Rank(); rx != ry {
			return rx - ry
		}
		switch {
		case x.RevenueInWindow > y.RevenueInWindow:
			return -1
		case x.RevenueInWindow < y.RevenueInWindow:
			return 1
		}
		return 0
	})
}

// InputRevenue is the exact total of normalized revenue over the window.
func InputRevenue(customers []domain.EvaluatedCustomer, years []int) float64 {
	values := make([]float64, 0, len(customers)*len(years))
	for _, c := range customers {
		for _, y := range years {
			values = append(values, c.Customer.RevenueByYear[y])
		}
	}
	return money.Sum(values...)
}

// Validate checks the dataset against the deduplicated input it was built from.
func (a *Assembler) Validate(ds *domain.Dataset, expectedRows int, inputRevenue float64) domain.ValidationReport {
	var report domain.ValidationReport

	report.Checks = append(report.Checks, domain.ValidationCheck{
		Name:   domain.CheckRowCount,
		Passed: len(ds.Rows) == expectedRows,
		Detail: fmt.Sprintf("%d rows, %d unique customers", len(ds.Rows), expectedRows),
	})

	undefined := 0
	for _, r := range ds.Rows {
		if !r.Status.Valid() {
			undefined++
		}
	}
	report.Checks = append(report.Checks, domain.ValidationCheck{
		Name:   domain.CheckStatusAssigned,
		Passed: undefined == 0,
		Detail: fmt.Sprintf("%d rows without a valid status", undefined),
	})

	revenues := make([]float64, 0, len(ds.Rows))
	for _, r := range ds.Rows {
		revenues = append(revenues, r.RevenueInWindow)
	}
	outputRevenue := money.Sum(revenues...)
	diff := math.Abs(outputRevenue - inputRevenue)
	report.Checks = append(report.Checks, domain.ValidationCheck{
		Name:   domain.CheckRevenueTotal,
		Passed: diff <= a.RevenueTolerance,
		Detail: fmt.Sprintf("output %.2f, input %.2f, difference %.2f", outputRevenue, inputRevenue, diff),
	})

	return report
}
