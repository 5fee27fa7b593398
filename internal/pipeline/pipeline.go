// Package pipeline composes the per-record transforms (normalize, resolve
// tenure, compute metrics, classify) and the final assemble stage.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/loyalty/internal/assembler"
	"github.com/opensource-finance/loyalty/internal/currency"
	"github.com/opensource-finance/loyalty/internal/domain"
	"github.com/opensource-finance/loyalty/internal/ingest"
	"github.com/opensource-finance/loyalty/internal/metrics"
	"github.com/opensource-finance/loyalty/internal/tenure"
)

var tracer = otel.Tracer("loyalty-pipeline")

// Classifier assigns a status to one customer's metrics.
type Classifier interface {
	Classify(m domain.Metrics, cfg domain.LoyaltyConfig) domain.ClassificationResult
}

// Options control a single run.
type Options struct {
	// Now returns the run timestamp. Defaults to time.Now.
	Now func() time.Time

	// Progress is called once per evaluated customer.
	Progress func()
}

// Result is the output of one run.
type Result struct {
	Dataset    domain.Dataset
	Validation domain.ValidationReport
	Stats      Stats
}

// Normalize converts the raw revenue cells and resolves the first year.
func Normalize(rec domain.CustomerRecord, years []int) domain.NormalizedCustomer {
	nc := domain.NormalizedCustomer{
		Record:        rec,
		RevenueByYear: make(map[int]float64, len(years)),
	}
	for _, y := range years {
		nc.RevenueByYear[y] = currency.Normalize(rec.RawRevenueByYear[y])
	}
	nc.FirstOrderYear, nc.FirstYearInferred = tenure.ResolveFirstYear(rec, nc.RevenueByYear, years)
	return nc
}

// Evaluate runs the per-record chain for one customer.
func Evaluate(rec domain.CustomerRecord, cfg domain.LoyaltyConfig, c Classifier) domain.EvaluatedCustomer {
	nc := Normalize(rec, cfg.EvaluationYears())
	m := metrics.Compute(nc, cfg)
	return domain.EvaluatedCustomer{
		Customer:       nc,
		Metrics:        m,
		Classification: c.Classify(m, cfg),
	}
}

// Run deduplicates records, evaluates each customer and assembles the
// dataset. Validation failures are logged and returned, not treated as
// errors. Run only fails when ctx is done.
func Run(ctx context.Context, records []domain.CustomerRecord, cfg domain.LoyaltyConfig, c Classifier, opts Options) (*Result, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	runTime := now()

	_, span := tracer.Start(ctx, "deduplicate",
		trace.WithAttributes(attribute.Int("records", len(records))),
	)
	unique, duplicates := ingest.Deduplicate(records)
	span.End()
	if duplicates > 0 {
		slog.Warn("duplicate account IDs removed, first occurrence kept", "duplicates", duplicates)
	}

	_, span = tracer.Start(ctx, "evaluate",
		trace.WithAttributes(attribute.Int("customers", len(unique))),
	)
	evaluated := make([]domain.EvaluatedCustomer, 0, len(unique))
	for i, rec := range unique {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				span.End()
				return nil, err
			}
		}
		evaluated = append(evaluated, Evaluate(rec, cfg, c))
		if opts.Progress != nil {
			opts.Progress()
		}
	}
	span.End()

	_, span = tracer.Start(ctx, "assemble",
		trace.WithAttributes(attribute.Int("customers", len(evaluated))),
	)
	ds, report := assembler.New(cfg.EvaluationYears()).Assemble(evaluated, len(records)-duplicates, runTime)
	span.End()

	stats := ComputeStats(evaluated, cfg)
	stats.Loaded = len(records)
	stats.Duplicates = duplicates

	if stats.UnresolvedFirstYear > 0 {
		slog.Warn("customers without a resolvable first year are classified Ineligible",
			"unresolved_first_year", stats.UnresolvedFirstYear,
		)
	}
	for _, check := range report.Failed() {
		slog.Warn("dataset validation failed", "check", check.Name, "detail", check.Detail)
	}

	slog.Info("pipeline complete",
		"run_id", ds.RunID,
		"rows", len(ds.Rows),
		"loyal", stats.StatusCounts[domain.StatusLoyal],
		"not_qualified", stats.StatusCounts[domain.StatusNotQualified],
		"ineligible", stats.StatusCounts[domain.StatusIneligible],
	)

	return &Result{
		Dataset:    ds,
		Validation: report,
		Stats:      stats,
	}, nil
}
