package domain

// Config holds the complete loyalty analysis configuration.
type Config struct {
	// Business rules and thresholds
	Loyalty LoyaltyConfig `yaml:"loyalty"`

	// Input file layout
	Input InputConfig `yaml:"input"`

	// Dataset sink
	Output OutputConfig `yaml:"output"`

	// Observability
	Logging LoggingConfig `yaml:"logging"`
}

// LoyaltyConfig is the business-rule table. It is passed by value into the
// metric calculator and the classifier; nothing reads it from global state.
type LoyaltyConfig struct {
	// CurrentYear anchors tenure: tenure = CurrentYear - first order year.
	CurrentYear int `yaml:"current_year" env:"LOYALTY_CURRENT_YEAR" validate:"required,gt=0"`

	// MinTenureYears is the tenure gate.
	MinTenureYears int `yaml:"min_tenure_years" env:"LOYALTY_MIN_TENURE_YEARS" validate:"gte=0"`

	// Evaluation window, inclusive on both ends.
	EvaluationStartYear int `yaml:"evaluation_start_year" env:"LOYALTY_EVALUATION_START_YEAR" validate:"required,gt=0"`
	EvaluationEndYear   int `yaml:"evaluation_end_year" env:"LOYALTY_EVALUATION_END_YEAR" validate:"required,gtefield=EvaluationStartYear"`

	// MinConsistencyRate is the fraction of active window years required.
	MinConsistencyRate float64 `yaml:"min_consistency_rate" env:"LOYALTY_MIN_CONSISTENCY_RATE" validate:"gte=0,lte=1"`

	// MinRevenueWindow is the total window revenue floor for Loyal.
	MinRevenueWindow float64 `yaml:"min_revenue_5yr" env:"LOYALTY_MIN_REVENUE_5YR" validate:"gte=0"`

	// MinRevenuePerActiveYear is the per-year activity floor.
	// 0 disables it: any positive revenue makes a year active.
	MinRevenuePerActiveYear float64 `yaml:"min_revenue_per_active_year" env:"LOYALTY_MIN_REVENUE_PER_ACTIVE_YEAR" validate:"gte=0"`
}

// EvaluationYears returns the window years in ascending order.
func (c LoyaltyConfig) EvaluationYears() []int {
	if c.EvaluationEndYear < c.EvaluationStartYear {
		return nil
	}
	years := make([]int, 0, c.EvaluationEndYear-c.EvaluationStartYear+1)
	for y := c.EvaluationStartYear; y <= c.EvaluationEndYear; y++ {
		years = append(years, y)
	}
	return years
}

// NumEvaluationYears returns the window length.
func (c LoyaltyConfig) NumEvaluationYears() int {
	return len(c.EvaluationYears())
}

// PerYearFloorEnabled reports whether MinRevenuePerActiveYear applies.
func (c LoyaltyConfig) PerYearFloorEnabled() bool {
	return c.MinRevenuePerActiveYear > 0
}

// InputConfig names the input file and its columns.
type InputConfig struct {
	Path string `yaml:"path" env:"LOYALTY_INPUT_FILE"`

	AccountIDColumn      string `yaml:"account_id_column" validate:"required"`
	NameColumn           string `yaml:"name_column" validate:"required"`
	SubSegmentColumn     string `yaml:"sub_segment_column" validate:"required"`
	FirstOrderDateColumn string `yaml:"first_order_date_column" validate:"required"`

	// RevenueColumnPrefix is followed by the year, e.g. "TY Net Product Revenue 2024".
	RevenueColumnPrefix string `yaml:"revenue_column_prefix" validate:"required"`
}

// Output formats.
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// OutputConfig selects where the dataset is written.
type OutputConfig struct {
	// Format is "csv" or "sqlite".
	Format string `yaml:"format" env:"LOYALTY_OUTPUT_FORMAT" validate:"oneof=csv sqlite"`

	// Dir receives loyalty_analysis_<timestamp>.<ext> files.
	Dir string `yaml:"dir" env:"LOYALTY_OUTPUT_DIR"`

	// FilePrefix is the output file name prefix.
	FilePrefix string `yaml:"file_prefix" validate:"required"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOYALTY_LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"LOYALTY_LOG_FORMAT" validate:"oneof=json text"`

	// Debug forces the debug level.
	Debug bool `yaml:"debug" env:"LOYALTY_DEBUG"`

	// File, when set, also writes logs to a rotating file.
	File       string `yaml:"file" env:"LOYALTY_LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DefaultConfig returns the framework v1.0 business rules and the standard
// file layout.
func DefaultConfig() *Config {
	return &Config{
		Loyalty: LoyaltyConfig{
			CurrentYear:             2024,
			MinTenureYears:          4,
			EvaluationStartYear:     2020,
			EvaluationEndYear:       2024,
			MinConsistencyRate:      0.60,
			MinRevenueWindow:        35000,
			MinRevenuePerActiveYear: 0, // disabled
		},
		Input: InputConfig{
			Path:                 "customer_annual_revenue.csv",
			AccountIDColumn:      "Account_ID",
			NameColumn:           "Name",
			SubSegmentColumn:     "Sub Segment",
			FirstOrderDateColumn: "First Order Date",
			RevenueColumnPrefix:  "TY Net Product Revenue ",
		},
		Output: OutputConfig{
			Format:     FormatCSV,
			Dir:        ".",
			FilePrefix: "loyalty_analysis_",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}
