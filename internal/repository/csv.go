package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/opensource-finance/loyalty/internal/domain"
)

// CSVStore writes and reads datasets as CSV files.
type CSVStore struct {
	Dir    string
	Prefix string
}

// Write stores ds as <prefix><timestamp>.csv. The validation report is not
// part of the CSV layout.
func (s *CSVStore) Write(ctx context.Context, ds *domain.Dataset, _ domain.ValidationReport) (string, error) {
	name, err := FileName(s.Prefix, ds.RunTime, domain.FormatCSV)
	if err != nil {
		return "", err
	}

	return writeAtomic(s.Dir, name, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
		if err := writeCSV(ctx, f, ds); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

func writeCSV(ctx context.Context, w io.Writer, ds *domain.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(ds.Years)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range ds.Rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		record := []string{
			r.CustomerID,
			r.CustomerName,
			r.SubSegment,
			string(r.Status),
			strconv.Itoa(r.TenureYears),
			strconv.Itoa(r.YearsActive),
			formatFloat(r.ConsistencyRate, 4),
			formatFloat(r.RevenueInWindow, 2),
		}
		for _, y := range ds.Years {
			record = append(record, formatFloat(r.RevenueByYear[y], 2))
		}
		record = append(record, r.Reason, r.AnalysisTimestamp)

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %s: %w", r.CustomerID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64, places int) string {
	return strconv.FormatFloat(f, 'f', places, 64)
}

// Read loads a CSV dataset. Years are recovered from the revenue_<year>
// columns and the run time from the first row's timestamp.
func (s *CSVStore) Read(ctx context.Context, path string) (*domain.Dataset, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoDataset, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDataset, path, err)
	}

	index := make(map[string]int, len(header))
	ds := &domain.Dataset{}
	for i, h := range header {
		index[h] = i
		if rest, ok := strings.CutPrefix(h, ColRevenueYearPrefix); ok {
			if y, err := strconv.Atoi(rest); err == nil {
				ds.Years = append(ds.Years, y)
			}
		}
	}
	for _, col := range []string{ColCustomerID, ColStatus, ColRevenueInWindow} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s: missing column %s", ErrInvalidDataset, path, col)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrInvalidDataset, path, line, err)
		}

		r := domain.OutputRow{
			CustomerID:        cell(row, ColCustomerID),
			CustomerName:      cell(row, ColCustomerName),
			SubSegment:        cell(row, ColSubSegment),
			Status:            domain.Status(cell(row, ColStatus)),
			TenureYears:       atoiOr(cell(row, ColTenureYears), domain.TenureSentinel),
			YearsActive:       atoiOr(cell(row, ColYearsActive), 0),
			ConsistencyRate:   parseFloat(cell(row, ColConsistencyRate)),
			RevenueInWindow:   parseFloat(cell(row, ColRevenueInWindow)),
			RevenueByYear:     make(map[int]float64, len(ds.Years)),
			Reason:            cell(row, ColReason),
			AnalysisTimestamp: cell(row, ColAnalysisTimestamp),
		}
		for _, y := range ds.Years {
			r.RevenueByYear[y] = parseFloat(cell(row, ColRevenueYearPrefix+strconv.Itoa(y)))
		}
		ds.Rows = append(ds.Rows, r)
	}

	if len(ds.Rows) > 0 {
		if t, err := parseRunTime(ds.Rows[0].AnalysisTimestamp); err == nil {
			ds.RunTime = t
		}
	}

	return ds, nil
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
