package repository

// Schema of a per-run SQLite dataset file.

const schemaRuns = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    run_time TEXT NOT NULL,
    years TEXT NOT NULL,
    row_count INTEGER NOT NULL,
    validation_passed INTEGER NOT NULL
);
`

const schemaCustomers = `
CREATE TABLE IF NOT EXISTS customers (
    run_id TEXT NOT NULL REFERENCES runs(id),
    position INTEGER NOT NULL,
    customer_id TEXT NOT NULL,
    customer_name TEXT NOT NULL,
    sub_segment TEXT NOT NULL,
    loyalty_status TEXT NOT NULL,
    tenure_years INTEGER NOT NULL,
    years_active_in_window INTEGER NOT NULL,
    consistency_rate REAL NOT NULL,
    revenue_5yr REAL NOT NULL,
    ineligibility_reason TEXT,
    analysis_timestamp TEXT NOT NULL,
    PRIMARY KEY (run_id, customer_id)
);

CREATE INDEX IF NOT EXISTS idx_customers_status ON customers(run_id, loyalty_status);
CREATE INDEX IF NOT EXISTS idx_customers_position ON customers(run_id, position);
`

// schemaCustomerRevenue holds one row per customer and evaluation year.
const schemaCustomerRevenue = `
CREATE TABLE IF NOT EXISTS customer_revenue (
    run_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    year INTEGER NOT NULL,
    revenue REAL NOT NULL,
    PRIMARY KEY (run_id, customer_id, year),
    FOREIGN KEY (run_id, customer_id) REFERENCES customers(run_id, customer_id)
);
`

const schemaValidationChecks = `
CREATE TABLE IF NOT EXISTS validation_checks (
    run_id TEXT NOT NULL REFERENCES runs(id),
    name TEXT NOT NULL,
    passed INTEGER NOT NULL,
    detail TEXT NOT NULL,
    PRIMARY KEY (run_id, name)
);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaRuns,
		schemaCustomers,
		schemaCustomerRevenue,
		schemaValidationChecks,
	}
}
