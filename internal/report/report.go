// Package report builds the executive summary of a persisted loyalty
// dataset. It only aggregates; every decision was made by the pipeline.
package report

import (
	"cmp"
	"math"
	"slices"

	"github.com/opensource-finance/loyalty/internal/domain"
	"github.com/opensource-finance/loyalty/internal/money"
)

// Section sizes.
const (
	TopAccounts        = 10
	NearMedianAccounts = 5
)

// StatusLine is one row of the status breakdown.
type StatusLine struct {
	Status       domain.Status
	Count        int
	Share        float64 // of customers, 0..1
	Revenue      float64
	RevenueShare float64 // of total revenue, 0..1
	AvgRevenue   float64
}

// Account is a customer listed by name in the report.
type Account struct {
	ID          string
	Name        string
	Segment     string
	TenureYears int
	YearsActive int
	Revenue     float64
}

// ReasonLine counts Not Qualified customers per reason.
type ReasonLine struct {
	Reason string
	Count  int
	Share  float64 // of Not Qualified customers, 0..1
}

// SegmentLine aggregates loyal customers per sub-segment.
type SegmentLine struct {
	Segment    string
	Count      int
	Revenue    float64
	AvgRevenue float64
}

// Summary is the executive summary of one dataset.
type Summary struct {
	Source       string
	WindowYears  int
	Customers    int
	TotalRevenue float64

	Statuses []StatusLine

	LoyalCount         int
	LoyalRevenue       float64
	LoyalAvgRevenue    float64
	LoyalMedianRevenue float64

	Top        []Account
	NearMedian []Account
	Reasons    []ReasonLine
	Segments   []SegmentLine

	// Validation is the stored quality report, when the dataset carries one.
	Validation *domain.ValidationReport
}

// Build aggregates ds. Empty groups produce zero values.
func Build(ds *domain.Dataset, source string) Summary {
	s := Summary{
		Source:      source,
		WindowYears: len(ds.Years),
		Customers:   len(ds.Rows),
	}

	byStatus := make(map[domain.Status][]domain.OutputRow, len(domain.Statuses))
	all := make([]float64, 0, len(ds.Rows))
	for _, r := range ds.Rows {
		byStatus[r.Status] = append(byStatus[r.Status], r)
		all = append(all, r.RevenueInWindow)
	}
	s.TotalRevenue = money.Sum(all...)

	for _, status := range domain.Statuses {
		rows := byStatus[status]
		rev := revenues(rows)
		line := StatusLine{
			Status:     status,
			Count:      len(rows),
			Share:      ratio(float64(len(rows)), float64(s.Customers)),
			Revenue:    money.Sum(rev...),
			AvgRevenue: money.Mean(rev),
		}
		line.RevenueShare = ratio(line.Revenue, s.TotalRevenue)
		s.Statuses = append(s.Statuses, line)
	}

	loyal := byStatus[domain.StatusLoyal]
	loyalRev := revenues(loyal)
	s.LoyalCount = len(loyal)
	s.LoyalRevenue = money.Sum(loyalRev...)
	s.LoyalAvgRevenue = money.Mean(loyalRev)
	s.LoyalMedianRevenue = money.Median(loyalRev)

	s.Top = topByRevenue(loyal, TopAccounts)
	s.NearMedian = nearest(loyal, s.LoyalMedianRevenue, NearMedianAccounts)
	s.Reasons = reasonBreakdown(byStatus[domain.StatusNotQualified])
	s.Segments = segmentBreakdown(loyal)

	return s
}

func revenues(rows []domain.OutputRow) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.RevenueInWindow)
	}
	return out
}

func ratio(part, whole float64) float64 {
	if whole == 0 || math.IsNaN(whole) {
		return 0
	}
	return part / whole
}

func account(r domain.OutputRow) Account {
	return Account{
		ID:          r.CustomerID,
		Name:        r.CustomerName,
		Segment:     r.SubSegment,
		TenureYears: r.TenureYears,
		YearsActive: r.YearsActive,
		Revenue:     r.RevenueInWindow,
	}
}

func topByRevenue(rows []domain.OutputRow, n int) []Account {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b domain.OutputRow) int {
		return cmp.Compare(b.RevenueInWindow, a.RevenueInWindow)
	})
	return accounts(sorted, n)
}

func nearest(rows []domain.OutputRow, target float64, n int) []Account {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b domain.OutputRow) int {
		return cmp.Compare(math.Abs(a.RevenueInWindow-target), math.Abs(b.RevenueInWindow-target))
	})
	return accounts(sorted, n)
}

func accounts(rows []domain.OutputRow, n int) []Account {
	out := make([]Account, 0, min(n, len(rows)))
	for _, r := range rows[:min(n, len(rows))] {
		out = append(out, account(r))
	}
	return out
}

func reasonBreakdown(rows []domain.OutputRow) []ReasonLine {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Reason]++
	}

	lines := make([]ReasonLine, 0, len(counts))
	for reason, count := range counts {
		lines = append(lines, ReasonLine{
			Reason: reason,
			Count:  count,
			Share:  ratio(float64(count), float64(len(rows))),
		})
	}
	slices.SortFunc(lines, func(a, b ReasonLine) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Reason, b.Reason)
	})
	return lines
}

func segmentBreakdown(rows []domain.OutputRow) []SegmentLine {
	bySegment := make(map[string][]float64)
	for _, r := range rows {
		bySegment[r.SubSegment] = append(bySegment[r.SubSegment], r.RevenueInWindow)
	}

	lines := make([]SegmentLine, 0, len(bySegment))
	for segment, rev := range bySegment {
		lines = append(lines, SegmentLine{
			Segment:    segment,
			Count:      len(rev),
			Revenue:    money.Sum(rev...),
			AvgRevenue: money.Mean(rev),
		})
	}
	slices.SortFunc(lines, func(a, b SegmentLine) int {
		if c := cmp.Compare(b.Revenue, a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.Segment, b.Segment)
	})
	return lines
}
