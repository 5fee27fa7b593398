package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/loyalty/internal/domain"
)

var runTime = time.Date(2024, 12, 31, 9, 30, 5, 0, time.Local)

func sampleDataset() (*domain.Dataset, domain.ValidationReport) {
	stamp := runTime.Format(domain.TimestampLayout)
	ds := &domain.Dataset{
		RunID:   "run-001",
		RunTime: runTime,
		Years:   []int{2023, 2024},
		Rows: []domain.OutputRow{
			{
				CustomerID: "A1", CustomerName: "Acme, Inc.", SubSegment: "Dental",
				Status: domain.StatusLoyal, TenureYears: 5, YearsActive: 2,
				ConsistencyRate: 1, RevenueInWindow: 40000.5,
				RevenueByYear:     map[int]float64{2023: 20000.25, 2024: 20000.25},
				AnalysisTimestamp: stamp,
			},
			{
				CustomerID: "B2", CustomerName: "Beta", SubSegment: domain.UnknownSubSegment,
				Status: domain.StatusIneligible, TenureYears: domain.TenureSentinel, YearsActive: 0,
				ConsistencyRate: 0, RevenueInWindow: -12.34,
				RevenueByYear:     map[int]float64{2023: -12.34, 2024: 0},
				Reason:            domain.ReasonInsufficientTenure,
				AnalysisTimestamp: stamp,
			},
		},
	}
	report := domain.ValidationReport{Checks: []domain.ValidationCheck{
		{Name: domain.CheckRowCount, Passed: true, Detail: "2 rows, 2 unique customers"},
		{Name: domain.CheckRevenueTotal, Passed: false, Detail: "off by 3"},
	}}
	return ds, report
}

func assertSameRows(t *testing.T, want, got *domain.Dataset) {
	t.Helper()
	if len(got.Rows) != len(want.Rows) {
		t.Fatalf("expected %d rows, got %d", len(want.Rows), len(got.Rows))
	}
	if len(got.Years) != len(want.Years) || got.Years[0] != want.Years[0] {
		t.Errorf("expected years %v, got %v", want.Years, got.Years)
	}
	for i := range want.Rows {
		w, g := want.Rows[i], got.Rows[i]
		if g.CustomerID != w.CustomerID || g.CustomerName != w.CustomerName || g.SubSegment != w.SubSegment {
			t.Errorf("row %d: identity mismatch: %+v", i, g)
		}
		if g.Status != w.Status || g.Reason != w.Reason {
			t.Errorf("row %d: expected %s/%q, got %s/%q", i, w.Status, w.Reason, g.Status, g.Reason)
		}
		if g.TenureYears != w.TenureYears || g.YearsActive != w.YearsActive {
			t.Errorf("row %d: expected tenure %d active %d, got %d %d", i, w.TenureYears, w.YearsActive, g.TenureYears, g.YearsActive)
		}
		if g.RevenueInWindow != w.RevenueInWindow || g.ConsistencyRate != w.ConsistencyRate {
			t.Errorf("row %d: expected revenue %v consistency %v, got %v %v", i, w.RevenueInWindow, w.ConsistencyRate, g.RevenueInWindow, g.ConsistencyRate)
		}
		for _, y := range want.Years {
			if g.RevenueByYear[y] != w.RevenueByYear[y] {
				t.Errorf("row %d year %d: expected %v, got %v", i, y, w.RevenueByYear[y], g.RevenueByYear[y])
			}
		}
		if g.AnalysisTimestamp != w.AnalysisTimestamp {
			t.Errorf("row %d: expected timestamp %q, got %q", i, w.AnalysisTimestamp, g.AnalysisTimestamp)
		}
	}
}

func TestCSVStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ds, report := sampleDataset()

	writer, err := New(domain.OutputConfig{Format: domain.FormatCSV, Dir: dir, FilePrefix: "loyalty_analysis_"})
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}

	path, err := writer.Write(ctx, ds, report)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	t.Run("FileName", func(t *testing.T) {
		if filepath.Base(path) != "loyalty_analysis_20241231_093005.csv" {
			t.Errorf("unexpected file name %s", path)
		}
	})

	t.Run("Header", func(t *testing.T) {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		header := strings.SplitN(string(data), "\n", 2)[0]
		want := "customer_id,customer_name,sub_segment,loyalty_status,tenure_years,years_active_in_window," +
			"consistency_rate,revenue_5yr,revenue_2023,revenue_2024,ineligibility_reason,analysis_timestamp"
		if header != want {
			t.Errorf("unexpected header:\n%s", header)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		got, err := ReadFile(ctx, path)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		assertSameRows(t, ds, got)
		if !got.RunTime.Equal(runTime) {
			t.Errorf("expected run time %v, got %v", runTime, got.RunTime)
		}
	})

	t.Run("NoTempFilesLeft", func(t *testing.T) {
		entries, _ := os.ReadDir(dir)
		if len(entries) != 1 {
			t.Errorf("expected exactly one file, got %d", len(entries))
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ds, report := sampleDataset()

	writer, err := New(domain.OutputConfig{Format: domain.FormatSQLite, Dir: dir, FilePrefix: "loyalty_analysis_"})
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}

	path, err := writer.Write(ctx, ds, report)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if filepath.Ext(path) != ".db" {
		t.Errorf("expected .db file, got %s", path)
	}

	t.Run("RoundTrip", func(t *testing.T) {
		got, err := ReadFile(ctx, path)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		assertSameRows(t, ds, got)
		if got.RunID != ds.RunID {
			t.Errorf("expected run ID %s, got %s", ds.RunID, got.RunID)
		}
		if !got.RunTime.Equal(runTime) {
			t.Errorf("expected run time %v, got %v", runTime, got.RunTime)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		got, err := (&SQLiteStore{}).ReadValidation(ctx, path)
		if err != nil {
			t.Fatalf("ReadValidation failed: %v", err)
		}
		if len(got.Checks) != 2 {
			t.Fatalf("expected 2 checks, got %d", len(got.Checks))
		}
		if got.Passed() {
			t.Error("expected stored report to be failing")
		}
		if got.Checks[0].Name != domain.CheckRowCount || !got.Checks[0].Passed {
			t.Errorf("unexpected first check %+v", got.Checks[0])
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		missing := filepath.Join(dir, "missing.db")
		_, err := ReadFile(ctx, missing)
		if !errors.Is(err, ErrNoDataset) {
			t.Errorf("expected ErrNoDataset, got %v", err)
		}
		if _, err := os.Stat(missing); !os.IsNotExist(err) {
			t.Error("reading a missing dataset should not create it")
		}
	})
}

func TestWriteFailureLeavesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	ds, report := sampleDataset()

	store := &CSVStore{Dir: dir, Prefix: "loyalty_analysis_"}
	if _, err := store.Write(ctx, ds, report); err == nil {
		t.Fatal("expected write to fail on cancelled context")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected empty directory, found %d entries", len(entries))
	}
}

func TestWriteSameSecondKeepsPrior(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ds, report := sampleDataset()
	store := &CSVStore{Dir: dir, Prefix: "loyalty_analysis_"}

	first, err := store.Write(ctx, ds, report)
	if err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	second, err := store.Write(ctx, ds, report)
	if err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	if first == second {
		t.Fatalf("expected distinct paths, both were %s", first)
	}
	if filepath.Base(second) != "loyalty_analysis_20241231_093005_01.csv" {
		t.Errorf("unexpected second file name %s", second)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("expected 2 files, got %d", len(entries))
	}

	latest, err := Latest(dir, "loyalty_analysis_")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest != second {
		t.Errorf("expected latest %s, got %s", second, latest)
	}

	if runtime.GOOS != "windows" {
		for _, path := range []string{first, second} {
			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("Stat failed: %v", err)
			}
			if info.Mode().Perm() != 0644 {
				t.Errorf("expected mode 0644 for %s, got %v", path, info.Mode().Perm())
			}
		}
	}
}

func TestSQLiteStoreSpecialCharsInDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("? is not allowed in windows file names")
	}

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "out?#%20dir")
	ds, report := sampleDataset()

	path, err := (&SQLiteStore{Dir: dir, Prefix: "loyalty_analysis_"}).Write(ctx, ds, report)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("expected file in %s, got %s", dir, path)
	}

	got, err := ReadFile(ctx, path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	assertSameRows(t, ds, got)
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := New(domain.OutputConfig{Format: "xlsx"}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := ReaderFor("out.xlsx"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()

	t.Run("Empty", func(t *testing.T) {
		if _, err := Latest(dir, "loyalty_analysis_"); !errors.Is(err, ErrNoDataset) {
			t.Errorf("expected ErrNoDataset, got %v", err)
		}
	})

	for _, name := range []string{
		"loyalty_analysis_20240101_000000.csv",
		"loyalty_analysis_20241231_235959.csv",
		"loyalty_analysis_20240615_120000.db",
		"loyalty_analysis_20991231_000000.txt",
		"other_20991231_000000.csv",
		".loyalty_analysis_20991231_000000.csv.123.tmp",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	t.Run("PicksLexicographicallyLatest", func(t *testing.T) {
		got, err := Latest(dir, "loyalty_analysis_")
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if filepath.Base(got) != "loyalty_analysis_20241231_235959.csv" {
			t.Errorf("unexpected latest file %s", got)
		}
	})

	t.Run("MissingDir", func(t *testing.T) {
		if _, err := Latest(filepath.Join(dir, "nope"), "loyalty_analysis_"); !errors.Is(err, ErrNoDataset) {
			t.Errorf("expected ErrNoDataset, got %v", err)
		}
	})
}
