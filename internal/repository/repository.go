// Package repository persists run datasets as single flat files and loads
// them back for reporting.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/loyalty/internal/domain"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrNoDataset         = errors.New("no dataset found")
	ErrInvalidDataset    = errors.New("invalid dataset file")
)

// FileStampLayout is the run timestamp embedded in output file names.
const FileStampLayout = "20060102_150405"

// Output column names.
const (
	ColCustomerID        = "customer_id"
	ColCustomerName      = "customer_name"
	ColSubSegment        = "sub_segment"
	ColStatus            = "loyalty_status"
	ColTenureYears       = "tenure_years"
	ColYearsActive       = "years_active_in_window"
	ColConsistencyRate   = "consistency_rate"
	ColRevenueInWindow   = "revenue_5yr"
	ColRevenueYearPrefix = "revenue_"
	ColReason            = "ineligibility_reason"
	ColAnalysisTimestamp = "analysis_timestamp"
)

// Columns returns the output header for the given evaluation years.
func Columns(years []int) []string {
	cols := []string{
		ColCustomerID,
		ColCustomerName,
		ColSubSegment,
		ColStatus,
		ColTenureYears,
		ColYearsActive,
		ColConsistencyRate,
		ColRevenueInWindow,
	}
	for _, y := range years {
		cols = append(cols, ColRevenueYearPrefix+strconv.Itoa(y))
	}
	return append(cols, ColReason, ColAnalysisTimestamp)
}

// Extension returns the file extension used for a format.
func Extension(format string) (string, error) {
	switch format {
	case domain.FormatCSV:
		return ".csv", nil
	case domain.FormatSQLite:
		return ".db", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// FileName returns the dataset file name for a run.
func FileName(prefix string, runTime time.Time, format string) (string, error) {
	ext, err := Extension(format)
	if err != nil {
		return "", err
	}
	return prefix + runTime.Format(FileStampLayout) + ext, nil
}

// New creates the dataset writer for the configured format.
func New(cfg domain.OutputConfig) (domain.DatasetWriter, error) {
	switch cfg.Format {
	case domain.FormatCSV:
		return &CSVStore{Dir: cfg.Dir, Prefix: cfg.FilePrefix}, nil
	case domain.FormatSQLite:
		return &SQLiteStore{Dir: cfg.Dir, Prefix: cfg.FilePrefix}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, cfg.Format)
	}
}

// ReaderFor returns the reader matching the file extension of path.
func ReaderFor(path string) (domain.DatasetReader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return &CSVStore{}, nil
	case ".db":
		return &SQLiteStore{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ReadFile loads a dataset from a csv or sqlite file.
func ReadFile(ctx context.Context, path string) (*domain.Dataset, error) {
	r, err := ReaderFor(path)
	if err != nil {
		return nil, err
	}
	return r.Read(ctx, path)
}

// Latest returns the lexicographically latest dataset file in dir whose
// name starts with prefix.
func Latest(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w in %s: %v", ErrNoDataset, dir, err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if _, err := ReaderFor(name); err != nil {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w in %s matching %s*", ErrNoDataset, dir, prefix)
	}

	return filepath.Join(dir, slices.Max(names)), nil
}

// maxNameCollisions bounds the numeric suffixes tried for one run name.
const maxNameCollisions = 99

// writeAtomic lets fill write a temp file in dir and publishes it under
// name. An existing file is never replaced: when name is taken within the
// same second the file gets a numeric suffix before its extension. On error
// the temp file is removed.
func writeAtomic(dir, name string, fill func(tmpPath string) error) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	err = tmp.Chmod(0644)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to prepare output file: %w", err)
	}

	if err := fill(tmpPath); err != nil {
		return "", err
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 0; i <= maxNameCollisions; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%02d%s", base, i, ext)
		}
		final := filepath.Join(dir, candidate)

		// Link fails instead of replacing an existing file
		err := os.Link(tmpPath, final)
		if err == nil {
			return final, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to move output into place: %w", err)
		}
	}
	return "", fmt.Errorf("failed to move output into place: %s taken %d times", name, maxNameCollisions+1)
}

func parseRunTime(stamp string) (time.Time, error) {
	return time.ParseInLocation(domain.TimestampLayout, stamp, time.Local)
}
