// Loyalty - Customer loyalty classification from yearly revenue.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/opensource-finance/loyalty/internal/domain"
	"github.com/opensource-finance/loyalty/internal/report"
	"github.com/opensource-finance/loyalty/internal/repository"
)

func main() {
	defaults := domain.DefaultConfig().Output

	dir := flag.String("dir", defaults.Dir, "directory holding loyalty analysis outputs")
	prefix := flag.String("prefix", defaults.FilePrefix, "dataset file name prefix")
	file := flag.String("file", "", "read this dataset instead of the latest one")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	path := *file
	if path == "" {
		latest, err := repository.Latest(*dir, *prefix)
		if err != nil {
			slog.Error("no analysis output found", "dir", *dir, "error", err)
			fmt.Fprintf(os.Stderr, "ERROR: No %s*.csv or %s*.db files found in %s.\n", *prefix, *prefix, *dir)
			fmt.Fprintln(os.Stderr, "Run loyalty first to generate the analysis output.")
			os.Exit(1)
		}
		path = latest
	}
	fmt.Printf("Reading: %s\n\n", path)

	summary, err := load(context.Background(), path)
	if err != nil {
		slog.Error("failed to read dataset", "path", path, "error", err)
		os.Exit(1)
	}

	if err := report.Render(os.Stdout, summary); err != nil {
		slog.Error("failed to render report", "error", err)
		os.Exit(1)
	}
}

// load reads the dataset at path and builds its summary. SQLite datasets
// also carry the quality checks recorded when they were written.
func load(ctx context.Context, path string) (report.Summary, error) {
	ds, err := repository.ReadFile(ctx, path)
	if err != nil {
		return report.Summary{}, err
	}
	summary := report.Build(ds, path)

	if strings.EqualFold(filepath.Ext(path), ".db") {
		validation, err := (&repository.SQLiteStore{}).ReadValidation(ctx, path)
		if err != nil {
			return report.Summary{}, err
		}
		summary.Validation = &validation
	}
	return summary, nil
}
