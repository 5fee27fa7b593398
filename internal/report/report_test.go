package report

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/loyalty/internal/domain"
)

func row(id string, status domain.Status, reason, segment string, revenue float64) domain.OutputRow {
	return domain.OutputRow{
		CustomerID:      id,
		CustomerName:    "Customer " + id,
		SubSegment:      segment,
		Status:          status,
		Reason:          reason,
		TenureYears:     6,
		YearsActive:     4,
		RevenueInWindow: revenue,
	}
}

func sample() *domain.Dataset {
	ds := &domain.Dataset{Years: []int{2020, 2021, 2022, 2023, 2024}}
	for i := 1; i <= 12; i++ {
		segment := "Dental"
		if i%3 == 0 {
			segment = "Veterinary"
		}
		ds.Rows = append(ds.Rows, row(fmt.Sprintf("L%02d", i), domain.StatusLoyal, "", segment, float64(i)*10000))
	}
	ds.Rows = append(ds.Rows,
		row("N1", domain.StatusNotQualified, domain.ReasonBelowRevenue, "Dental", 20000),
		row("N2", domain.StatusNotQualified, domain.ReasonBelowRevenue, "Dental", 10000),
		row("N3", domain.StatusNotQualified, domain.ReasonBelowConsistency, "Dental", 50000),
		row("I1", domain.StatusIneligible, domain.ReasonInsufficientTenure, domain.UnknownSubSegment, 20000),
	)
	return ds
}

func TestBuild(t *testing.T) {
	s := Build(sample(), "loyalty_analysis_20241231_093000.csv")

	assert.Equal(t, 16, s.Customers)
	assert.Equal(t, 5, s.WindowYears)
	assert.InDelta(t, 780000+80000+20000, s.TotalRevenue, 1e-6)

	require.Len(t, s.Statuses, 3)
	loyal := s.Statuses[0]
	assert.Equal(t, domain.StatusLoyal, loyal.Status)
	assert.Equal(t, 12, loyal.Count)
	assert.InDelta(t, 0.75, loyal.Share, 1e-12)
	assert.InDelta(t, 780000, loyal.Revenue, 1e-6)
	assert.InDelta(t, 65000, loyal.AvgRevenue, 1e-6)
	assert.InDelta(t, 780000.0/880000.0, loyal.RevenueShare, 1e-12)

	assert.Equal(t, 12, s.LoyalCount)
	assert.InDelta(t, 65000, s.LoyalMedianRevenue, 1e-6)

	t.Run("top accounts", func(t *testing.T) {
		require.Len(t, s.Top, TopAccounts)
		assert.Equal(t, "L12", s.Top[0].ID)
		assert.Equal(t, "L03", s.Top[9].ID)
	})

	t.Run("near median", func(t *testing.T) {
		require.Len(t, s.NearMedian, NearMedianAccounts)
		ids := map[string]bool{}
		for _, a := range s.NearMedian {
			ids[a.ID] = true
		}
		for _, id := range []string{"L06", "L07", "L05", "L08"} {
			assert.True(t, ids[id], "expected %s near the median", id)
		}
	})

	t.Run("reasons", func(t *testing.T) {
		require.Len(t, s.Reasons, 2)
		assert.Equal(t, domain.ReasonBelowRevenue, s.Reasons[0].Reason)
		assert.Equal(t, 2, s.Reasons[0].Count)
		assert.InDelta(t, 2.0/3.0, s.Reasons[0].Share, 1e-12)
	})

	t.Run("segments", func(t *testing.T) {
		require.Len(t, s.Segments, 2)
		assert.Equal(t, "Dental", s.Segments[0].Segment)
		assert.Equal(t, 8, s.Segments[0].Count)
		assert.Equal(t, "Veterinary", s.Segments[1].Segment)
		assert.InDelta(t, 300000, s.Segments[1].Revenue, 1e-6)
		assert.InDelta(t, 75000, s.Segments[1].AvgRevenue, 1e-6)
	})
}

func TestBuildEmptyGroups(t *testing.T) {
	ds := &domain.Dataset{
		Years: []int{2024},
		Rows:  []domain.OutputRow{row("I1", domain.StatusIneligible, domain.ReasonInsufficientTenure, "Dental", 0)},
	}

	s := Build(ds, "x.csv")
	for _, l := range s.Statuses {
		assert.False(t, math.IsNaN(l.RevenueShare), "NaN share for %s", l.Status)
		assert.False(t, math.IsNaN(l.AvgRevenue), "NaN average for %s", l.Status)
	}
	assert.Zero(t, s.LoyalCount)
	assert.Zero(t, s.LoyalMedianRevenue)
	assert.Empty(t, s.Top)
	assert.Empty(t, s.Reasons)
	assert.Empty(t, s.Segments)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, s))
	assert.NotContains(t, buf.String(), "NaN")
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Build(sample(), "loyalty_analysis_20241231_093000.csv")))
	out := buf.String()

	for _, want := range []string{
		"EXECUTIVE SUMMARY",
		"Source File: loyalty_analysis_20241231_093000.csv",
		"Total Customers Evaluated: 16",
		"Total 5-Year Revenue: $880,000",
		"STATUS BREAKDOWN",
		"75.0%",
		"Median Revenue:    $65,000",
		"TOP 10 LOYAL ACCOUNTS",
		"Customer L12",
		"Active: 4/5yr",
		domain.ReasonBelowRevenue,
		"(66.7%)",
		"LOYAL CUSTOMERS BY SEGMENT",
		"Veterinary",
		"END OF REPORT",
	} {
		assert.Contains(t, out, want)
	}

	assert.Less(t, strings.Index(out, "Customer L12"), strings.Index(out, "Customer L11"))
}

func TestRenderValidation(t *testing.T) {
	s := Build(sample(), "loyalty_analysis_20241231_093000.db")

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, s))
	assert.NotContains(t, buf.String(), "DATA QUALITY CHECKS")

	s.Validation = &domain.ValidationReport{Checks: []domain.ValidationCheck{
		{Name: domain.CheckRowCount, Passed: true, Detail: "16 rows, 16 unique customers"},
		{Name: domain.CheckRevenueTotal, Passed: false, Detail: "input $10.00, output $12.00"},
	}}

	buf.Reset()
	require.NoError(t, Render(&buf, s))
	out := buf.String()
	assert.Contains(t, out, "DATA QUALITY CHECKS")
	assert.Contains(t, out, "✓ row_count")
	assert.Contains(t, out, "✗ revenue_total")
	assert.Contains(t, out, "input $10.00, output $12.00")
}
