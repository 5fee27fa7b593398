package report

import (
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const width = 70

// Render writes the summary as a plain-text executive report.
func Render(w io.Writer, s Summary) error {
	p := message.NewPrinter(language.English)
	rule := strings.Repeat("-", width) + "\n"
	banner := strings.Repeat("=", width) + "\n"

	var b strings.Builder

	b.WriteString(banner)
	b.WriteString("LOYALTY ANALYSIS: EXECUTIVE SUMMARY\n")
	b.WriteString(banner)
	p.Fprintf(&b, "Source File: %s\n", s.Source)
	p.Fprintf(&b, "Total Customers Evaluated: %d\n", s.Customers)
	p.Fprintf(&b, "Total %d-Year Revenue: $%.0f\n\n", s.WindowYears, s.TotalRevenue)

	b.WriteString(rule)
	b.WriteString("STATUS BREAKDOWN\n")
	b.WriteString(rule)
	p.Fprintf(&b, "%-20s %8s %8s %16s %10s %14s\n", "Status", "Count", "% Base", "Window Revenue", "% Revenue", "Avg Revenue")
	b.WriteString(rule)
	for _, l := range s.Statuses {
		p.Fprintf(&b, "%-20s %8d %7.1f%% $%14.0f %9.1f%% $%12.0f\n",
			l.Status, l.Count, l.Share*100, l.Revenue, l.RevenueShare*100, l.AvgRevenue)
	}

	b.WriteString("\n" + rule)
	b.WriteString("LOYAL CUSTOMER PROFILE\n")
	b.WriteString(rule)
	p.Fprintf(&b, "  Count:             %d\n", s.LoyalCount)
	p.Fprintf(&b, "  Total Revenue:     $%.0f\n", s.LoyalRevenue)
	p.Fprintf(&b, "  Average Revenue:   $%.0f\n", s.LoyalAvgRevenue)
	p.Fprintf(&b, "  Median Revenue:    $%.0f\n", s.LoyalMedianRevenue)

	b.WriteString("\n" + rule)
	p.Fprintf(&b, "TOP %d LOYAL ACCOUNTS (by window revenue)\n", TopAccounts)
	b.WriteString(rule)
	for i, a := range s.Top {
		p.Fprintf(&b, "  %2d. ", i+1)
		writeAccount(&b, p, a, s.WindowYears)
	}

	b.WriteString("\n" + rule)
	b.WriteString("SAMPLE MID-RANGE LOYAL ACCOUNTS (near median revenue)\n")
	b.WriteString(rule)
	for _, a := range s.NearMedian {
		b.WriteString("  ")
		writeAccount(&b, p, a, s.WindowYears)
	}

	b.WriteString("\n" + rule)
	b.WriteString("WHY CUSTOMERS DON'T QUALIFY\n")
	b.WriteString(rule)
	for _, r := range s.Reasons {
		p.Fprintf(&b, "  %-50s %6d (%.1f%%)\n", r.Reason, r.Count, r.Share*100)
	}

	b.WriteString("\n" + rule)
	b.WriteString("LOYAL CUSTOMERS BY SEGMENT\n")
	b.WriteString(rule)
	p.Fprintf(&b, "%-30s %6s %16s %14s\n", "Segment", "Count", "Total Revenue", "Avg Revenue")
	b.WriteString(rule)
	for _, l := range s.Segments {
		p.Fprintf(&b, "  %-28s %6d $%14.0f $%12.0f\n", l.Segment, l.Count, l.Revenue, l.AvgRevenue)
	}

	if s.Validation != nil {
		b.WriteString("\n" + rule)
		b.WriteString("DATA QUALITY CHECKS\n")
		b.WriteString(rule)
		for _, c := range s.Validation.Checks {
			mark := "✓"
			if !c.Passed {
				mark = "✗"
			}
			p.Fprintf(&b, "  %s %-16s %s\n", mark, c.Name, c.Detail)
		}
	}

	b.WriteString("\n" + banner)
	b.WriteString("END OF REPORT\n")
	b.WriteString(banner)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeAccount(b *strings.Builder, p *message.Printer, a Account, windowYears int) {
	p.Fprintf(b, "%-40s %-20s Tenure: %dyr  Active: %d/%dyr  Rev: $%.0f\n",
		a.Name, a.Segment, a.TenureYears, a.YearsActive, windowYears, a.Revenue)
}
