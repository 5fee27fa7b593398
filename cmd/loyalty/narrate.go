package main

import (
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/opensource-finance/loyalty/internal/domain"
	"github.com/opensource-finance/loyalty/internal/ingest"
	"github.com/opensource-finance/loyalty/internal/pipeline"
)

const narrationWidth = 80

// narrator prints the human-readable run narration. Structured logs go
// through slog; this is only for the operator's console.
type narrator struct {
	w io.Writer
	p *message.Printer
}

func newNarrator(w io.Writer) *narrator {
	return &narrator{w: w, p: message.NewPrinter(language.English)}
}

func (n *narrator) printf(format string, args ...any) {
	n.p.Fprintf(n.w, format, args...)
}

func (n *narrator) header(cfg *domain.Config, now time.Time) {
	l := cfg.Loyalty
	banner := strings.Repeat("=", narrationWidth)

	n.printf("%s\nCUSTOMER LOYALTY FRAMEWORK ANALYSIS\n%s\n", banner, banner)
	n.printf("Analysis Date: %s\n", now.Format(domain.TimestampLayout))
	n.printf("Framework Version: %s\n", Version)
	n.printf("Input File: %s\n", cfg.Input.Path)
	n.printf("\nConfiguration:\n")
	n.printf("  • Minimum Tenure: %d years\n", l.MinTenureYears)
	n.printf("  • Minimum Consistency: %.0f%% (%d of %d years)\n",
		l.MinConsistencyRate*100, requiredActiveYears(l), l.NumEvaluationYears())
	n.printf("  • Minimum Window Revenue: $%.0f\n", l.MinRevenueWindow)
	state := "DISABLED"
	if l.PerYearFloorEnabled() {
		state = "ENABLED"
	}
	n.printf("  • Min Revenue Per Active Year: $%.0f (%s)\n", l.MinRevenuePerActiveYear, state)
	// Years are passed as strings so the printer does not group digits
	n.printf("  • Evaluation Window: %s-%s\n", strconv.Itoa(l.EvaluationStartYear), strconv.Itoa(l.EvaluationEndYear))
	n.printf("%s\n", banner)
}

// requiredActiveYears is the number of active years the consistency
// threshold demands, rounded down as a whole year count.
func requiredActiveYears(l domain.LoyaltyConfig) int {
	return int(l.MinConsistencyRate * float64(l.NumEvaluationYears()))
}

func (n *narrator) step(i int, title string) {
	rule := strings.Repeat("-", narrationWidth)
	n.printf("\n%s\nSTEP %d: %s\n%s\n", rule, i, title, rule)
}

func (n *narrator) missingColumns(err *ingest.MissingColumnsError) {
	n.printf("ERROR: Missing required columns: %v\n", err.Missing)
	n.printf("\nExpected columns: %v\n", err.Expected)
	n.printf("Found columns: %v\n", err.Found)
}

func (n *narrator) loaded(count int) {
	n.printf("✓ Successfully loaded %d customer records\n", count)
	n.printf("✓ All required columns present\n")
}

func (n *narrator) duplicates(s pipeline.Stats) {
	if s.Duplicates > 0 {
		n.printf("WARNING: %d duplicate Account_IDs found\n", s.Duplicates)
		n.printf("Keeping first occurrence of each duplicate\n")
	}
}

func (n *narrator) cleaning(s pipeline.Stats, years []int) {
	n.printf("Cleaning revenue columns...\n")
	for _, y := range years {
		if c := s.NegativesByYear[y]; c > 0 {
			n.printf("  • %s: %d negative values (returns/credits)\n", strconv.Itoa(y), c)
		}
	}
	n.printf("✓ Revenue columns cleaned for %d years\n", len(years))

	n.printf("\nParsing First Order Date...\n")
	if missing := s.BlankDates + s.InvalidDates; missing > 0 {
		n.printf("  • %d blank/invalid dates found\n", missing)
		n.printf("  • Inferring from first year with revenue...\n")
		n.printf("  • Successfully inferred %d dates from revenue data\n", s.InferredFirstYear)
	}
	if s.UnresolvedFirstYear > 0 {
		n.printf("  • WARNING: %d customers have no date and no revenue\n", s.UnresolvedFirstYear)
		n.printf("  • These are kept and classified Ineligible (Insufficient Tenure)\n")
	}
	n.printf("✓ First Order Date processed\n")
}

func (n *narrator) metrics(s pipeline.Stats, l domain.LoyaltyConfig) {
	if s.MinTenure.Valid {
		n.printf("✓ Tenure calculated (range: %d to %d years)\n", s.MinTenure.Value, s.MaxTenure.Value)
	} else {
		n.printf("✓ Tenure calculated (no customer has a known first year)\n")
	}

	n.printf("\nCalculating consistency...\n")
	if l.PerYearFloorEnabled() {
		n.printf("  • Per-year minimum ENABLED: $%.0f\n", l.MinRevenuePerActiveYear)
		n.printf("  • Years with revenue >= $%.0f count as active\n", l.MinRevenuePerActiveYear)
	} else {
		n.printf("  • Per-year minimum DISABLED\n")
		n.printf("  • Any positive revenue counts as active\n")
	}
	n.printf("✓ Consistency calculated\n")
	n.printf("  • Distribution of years active:\n")
	for k, count := range s.YearsActive {
		n.printf("    %d/%d years: %6d customers (%5.1f%%)\n", k, len(s.YearsActive)-1, count, percent(count, s.Customers))
	}

	n.printf("\n✓ Window revenue calculated\n")
	n.printf("  • Total revenue: $%.2f\n", s.TotalRevenue)
	n.printf("  • Average per customer: $%.2f\n", s.MeanRevenue)
	n.printf("  • Median per customer: $%.2f\n", s.MedianRevenue)
}

func (n *narrator) statuses(s pipeline.Stats) {
	marks := map[domain.Status]string{
		domain.StatusLoyal:        "✓",
		domain.StatusNotQualified: "✗",
		domain.StatusIneligible:   "⊘",
	}

	n.printf("\nLoyalty Status Results:\n")
	for _, status := range domain.Statuses {
		c := s.StatusCounts[status]
		n.printf("  %s %s: %d customers (%.2f%%)\n", marks[status], status, c, percent(c, s.Customers))
	}

	n.printf("\nEconomic Impact:\n")
	n.printf("  • Total window revenue: $%.2f\n", s.TotalRevenue)
	n.printf("  • Revenue from loyal customers: $%.2f\n", s.LoyalRevenue)
	n.printf("  • Revenue concentration: %.1f%%\n", s.LoyalRevenueShare*100)
	n.printf("  • Avg revenue (loyal): $%.2f\n", s.AvgLoyalRevenue)
	n.printf("  • Avg revenue (non-loyal): $%.2f\n", s.AvgNonLoyalRevenue)
}

func (n *narrator) prepared(rows int) {
	n.printf("✓ Output dataset prepared with %d rows\n", rows)
}

func (n *narrator) validation(report domain.ValidationReport, ds *domain.Dataset) {
	for _, c := range report.Checks {
		mark := "✓"
		if !c.Passed {
			mark = "✗ FAIL:"
		}
		n.printf("%s %s (%s)\n", mark, c.Name, c.Detail)
	}

	counts := ds.StatusCounts()
	n.printf("\n✓ Loyalty status distribution:\n")
	for _, status := range domain.Statuses {
		if c := counts[status]; c > 0 {
			n.printf("  • %s: %d\n", status, c)
		}
	}

	if report.Passed() {
		n.printf("✓ All quality checks passed\n")
	} else {
		n.printf("WARNING: %d quality checks failed; output is still written\n", len(report.Failed()))
	}
}

func (n *narrator) saved(path string, ds domain.Dataset) {
	n.printf("✓ Output saved: %s\n", path)
	n.printf("  • Run ID: %s\n", ds.RunID)
	n.printf("  • Rows: %d\n", len(ds.Rows))
}

func (n *narrator) complete(path string, s pipeline.Stats, done time.Time) {
	banner := strings.Repeat("=", narrationWidth)
	n.printf("\n%s\nANALYSIS COMPLETE\n%s\n", banner, banner)

	n.printf("\nFramework Summary:\n")
	n.printf("  • %d loyal customers identified\n", s.StatusCounts[domain.StatusLoyal])
	n.printf("  • Representing $%.2f (%.1f%% of total revenue)\n", s.LoyalRevenue, s.LoyalRevenueShare*100)
	if multiple, ok := valueMultiple(s); ok {
		n.printf("  • Loyal customers are %.1fx more valuable on average\n", multiple)
	} else {
		n.printf("  • Loyal value multiple unavailable (no loyal customers or no non-loyal revenue)\n")
	}

	n.printf("\nOutput File: %s\n", path)
	n.printf("Ready for PowerBI import or further analysis.\n")
	n.printf("\n%s\nCompleted at %s\n%s\n", banner, done.Format(domain.TimestampLayout), banner)
}

// valueMultiple is the average loyal revenue over the average non-loyal
// revenue. It is undefined without loyal customers or when the non-loyal
// average is not positive.
func valueMultiple(s pipeline.Stats) (float64, bool) {
	if s.StatusCounts[domain.StatusLoyal] == 0 || s.AvgNonLoyalRevenue <= 0 {
		return 0, false
	}
	return s.AvgLoyalRevenue / s.AvgNonLoyalRevenue, true
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
