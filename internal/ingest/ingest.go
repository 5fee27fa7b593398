// Package ingest reads the customer revenue file and adapts its
// year-named columns into per-year maps.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/opensource-finance/loyalty/internal/domain"
)

var (
	ErrInputNotFound  = errors.New("input file not found")
	ErrMissingColumns = errors.New("missing required columns")
	ErrEmptyInput     = errors.New("input file has no header row")
)

// MissingColumnsError lists the required columns absent from the header.
type MissingColumnsError struct {
	Missing  []string
	Expected []string
	Found    []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns, strings.Join(e.Missing, ", "))
}

func (e *MissingColumnsError) Unwrap() error {
	return ErrMissingColumns
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RevenueColumn returns the input column name for a year.
func RevenueColumn(cfg domain.InputConfig, year int) string {
	return cfg.RevenueColumnPrefix + strconv.Itoa(year)
}

// RequiredColumns returns the header names the input must contain.
func RequiredColumns(cfg domain.InputConfig, years []int) []string {
	cols := []string{
		cfg.AccountIDColumn,
		cfg.NameColumn,
		cfg.SubSegmentColumn,
		cfg.FirstOrderDateColumn,
	}
	for _, y := range years {
		cols = append(cols, RevenueColumn(cfg, y))
	}
	return cols
}

// LoadFile opens path and reads every customer record from it.
func LoadFile(path string, cfg domain.InputConfig, years []int) ([]domain.CustomerRecord, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	records, err := Read(f, cfg, years)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return records, nil
}

// Read parses CSV input. The header must contain every required column;
// extra columns are ignored. A UTF-8 byte order mark is skipped.
func Read(r io.Reader, cfg domain.InputConfig, years []int) ([]domain.CustomerRecord, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	required := RequiredColumns(cfg, years)
	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing, Expected: required, Found: header}
	}

	cell := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []domain.CustomerRecord
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if isBlankRow(row) {
			continue
		}

		rec := domain.CustomerRecord{
			AccountID:        strings.TrimSpace(cell(row, cfg.AccountIDColumn)),
			Name:             strings.TrimSpace(cell(row, cfg.NameColumn)),
			SubSegment:       strings.TrimSpace(cell(row, cfg.SubSegmentColumn)),
			FirstOrderDate:   cell(row, cfg.FirstOrderDateColumn),
			RawRevenueByYear: make(map[int]string, len(years)),
		}
		if rec.SubSegment == "" {
			rec.SubSegment = domain.UnknownSubSegment
		}
		for _, y := range years {
			rec.RawRevenueByYear[y] = cell(row, RevenueColumn(cfg, y))
		}
		records = append(records, rec)
	}

	return records, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Deduplicate keeps the first record for each account ID, preserving input
// order, and returns the number of records dropped.
func Deduplicate(records []domain.CustomerRecord) ([]domain.CustomerRecord, int) {
	seen := make(map[string]struct{}, len(records))
	kept := make([]domain.CustomerRecord, 0, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.AccountID]; dup {
			continue
		}
		seen[rec.AccountID] = struct{}{}
		kept = append(kept, rec)
	}
	return kept, len(records) - len(kept)
}
