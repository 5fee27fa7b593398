package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/opensource-finance/loyalty/internal/domain"
)

// SQLiteStore writes and reads datasets as single-file SQLite databases.
type SQLiteStore struct {
	Dir    string
	Prefix string
}

// sqlitePragmas are applied to every connection.
// The rollback journal keeps the dataset in one file.
const sqlitePragmas = "_pragma=journal_mode(DELETE)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"

// openSQLite opens a SQLite database file.
// Uses modernc.org/sqlite for pure Go implementation (no CGO required).
func openSQLite(path string) (*sql.DB, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return db, nil
}

// sqliteDSN builds a file URI for path, escaping characters such as
// '?', '#' and '%' that would otherwise end the file name.
func sqliteDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve sqlite path: %w", err)
	}
	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		abs = "/" + abs
	}
	u := url.URL{Scheme: "file", Path: abs, RawQuery: sqlitePragmas}
	return u.String(), nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, schema := range AllSchemas() {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			return err
		}
	}
	return nil
}

// Write stores ds and its validation report as <prefix><timestamp>.db.
func (s *SQLiteStore) Write(ctx context.Context, ds *domain.Dataset, report domain.ValidationReport) (string, error) {
	name, err := FileName(s.Prefix, ds.RunTime, domain.FormatSQLite)
	if err != nil {
		return "", err
	}

	return writeAtomic(s.Dir, name, func(tmpPath string) error {
		db, err := openSQLite(tmpPath)
		if err != nil {
			return err
		}
		if err := writeDataset(ctx, db, ds, report); err != nil {
			db.Close()
			return err
		}
		return db.Close()
	})
}

func writeDataset(ctx context.Context, db *sql.DB, ds *domain.Dataset, report domain.ValidationReport) error {
	if err := migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	years, _ := json.Marshal(ds.Years)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, run_time, years, row_count, validation_passed) VALUES (?, ?, ?, ?, ?)`,
		ds.RunID, ds.RunTime.Format(time.RFC3339Nano), string(years), len(ds.Rows), report.Passed(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	customerStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO customers (
			run_id, position, customer_id, customer_name, sub_segment,
			loyalty_status, tenure_years, years_active_in_window,
			consistency_rate, revenue_5yr, ineligibility_reason, analysis_timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer customerStmt.Close()

	revenueStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO customer_revenue (run_id, customer_id, year, revenue) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer revenueStmt.Close()

	for i, r := range ds.Rows {
		var reason sql.NullString
		if r.Reason != "" {
			reason = sql.NullString{String: r.Reason, Valid: true}
		}
		_, err := customerStmt.ExecContext(ctx,
			ds.RunID, i, r.CustomerID, r.CustomerName, r.SubSegment,
			string(r.Status), r.TenureYears, r.YearsActive,
			r.ConsistencyRate, r.RevenueInWindow, reason, r.AnalysisTimestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to save customer %s: %w", r.CustomerID, err)
		}
		for _, y := range ds.Years {
			if _, err := revenueStmt.ExecContext(ctx, ds.RunID, r.CustomerID, y, r.RevenueByYear[y]); err != nil {
				return fmt.Errorf("failed to save revenue for %s: %w", r.CustomerID, err)
			}
		}
	}

	for _, c := range report.Checks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO validation_checks (run_id, name, passed, detail) VALUES (?, ?, ?, ?)`,
			ds.RunID, c.Name, c.Passed, c.Detail,
		)
		if err != nil {
			return fmt.Errorf("failed to save validation check %s: %w", c.Name, err)
		}
	}

	return tx.Commit()
}

// Read loads the dataset stored in a SQLite file.
func (s *SQLiteStore) Read(ctx context.Context, path string) (*domain.Dataset, error) {
	db, err := openExisting(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ds, _, err := readDataset(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDataset, path, err)
	}
	return ds, nil
}

// ReadValidation loads the validation report stored alongside a dataset.
func (s *SQLiteStore) ReadValidation(ctx context.Context, path string) (domain.ValidationReport, error) {
	db, err := openExisting(path)
	if err != nil {
		return domain.ValidationReport{}, err
	}
	defer db.Close()

	_, report, err := readDataset(ctx, db)
	return report, err
}

// openExisting opens path without letting the driver create a new file.
func openExisting(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoDataset, path)
	}
	return openSQLite(path)
}

func readDataset(ctx context.Context, db *sql.DB) (*domain.Dataset, domain.ValidationReport, error) {
	var report domain.ValidationReport
	ds := &domain.Dataset{}

	var runTime, years string
	err := db.QueryRowContext(ctx, `SELECT id, run_time, years FROM runs LIMIT 1`).Scan(&ds.RunID, &runTime, &years)
	if err != nil {
		return nil, report, fmt.Errorf("failed to read run: %w", err)
	}
	if ds.RunTime, err = time.Parse(time.RFC3339Nano, runTime); err != nil {
		return nil, report, fmt.Errorf("failed to parse run time: %w", err)
	}
	if err := json.Unmarshal([]byte(years), &ds.Years); err != nil {
		return nil, report, fmt.Errorf("failed to parse years: %w", err)
	}

	revenue := make(map[string]map[int]float64)
	rows, err := db.QueryContext(ctx, `SELECT customer_id, year, revenue FROM customer_revenue WHERE run_id = ?`, ds.RunID)
	if err != nil {
		return nil, report, err
	}
	for rows.Next() {
		var id string
		var year int
		var amount float64
		if err := rows.Scan(&id, &year, &amount); err != nil {
			rows.Close()
			return nil, report, err
		}
		if revenue[id] == nil {
			revenue[id] = make(map[int]float64, len(ds.Years))
		}
		revenue[id][year] = amount
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, report, err
	}

	rows, err = db.QueryContext(ctx, `
		SELECT customer_id, customer_name, sub_segment, loyalty_status, tenure_years,
			   years_active_in_window, consistency_rate, revenue_5yr,
			   ineligibility_reason, analysis_timestamp
		FROM customers
		WHERE run_id = ?
		ORDER BY position
	`, ds.RunID)
	if err != nil {
		return nil, report, err
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.OutputRow
		var status string
		var reason sql.NullString
		if err := rows.Scan(
			&r.CustomerID, &r.CustomerName, &r.SubSegment, &status, &r.TenureYears,
			&r.YearsActive, &r.ConsistencyRate, &r.RevenueInWindow,
			&reason, &r.AnalysisTimestamp,
		); err != nil {
			return nil, report, err
		}
		r.Status = domain.Status(status)
		r.Reason = reason.String
		r.RevenueByYear = revenue[r.CustomerID]
		if r.RevenueByYear == nil {
			r.RevenueByYear = map[int]float64{}
		}
		ds.Rows = append(ds.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, report, err
	}

	checks, err := db.QueryContext(ctx, `SELECT name, passed, detail FROM validation_checks WHERE run_id = ? ORDER BY rowid`, ds.RunID)
	if err != nil {
		return nil, report, err
	}
	defer checks.Close()
	for checks.Next() {
		var c domain.ValidationCheck
		if err := checks.Scan(&c.Name, &c.Passed, &c.Detail); err != nil {
			return nil, report, err
		}
		report.Checks = append(report.Checks, c)
	}

	return ds, report, checks.Err()
}
