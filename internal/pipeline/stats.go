package pipeline

import (
	"strings"

	"github.com/opensource-finance/loyalty/internal/domain"
	"github.com/opensource-finance/loyalty/internal/money"
	"github.com/opensource-finance/loyalty/internal/tenure"
)

// Stats summarizes data quality and outcomes of one run.
type Stats struct {
	Loaded     int
	Duplicates int
	Customers  int

	NegativesByYear     map[int]int
	BlankDates          int
	InvalidDates        int
	InferredFirstYear   int
	UnresolvedFirstYear int

	// Tenure range over customers with a resolved first year.
	MinTenure domain.OptionalInt
	MaxTenure domain.OptionalInt

	// YearsActive[k] is the number of customers active in exactly k years.
	YearsActive []int

	TotalRevenue  float64
	MeanRevenue   float64
	MedianRevenue float64

	StatusCounts map[domain.Status]int

	LoyalRevenue       float64
	LoyalRevenueShare  float64
	AvgLoyalRevenue    float64
	AvgNonLoyalRevenue float64
}

// ComputeStats aggregates evaluated customers. Empty groups yield zeros.
func ComputeStats(customers []domain.EvaluatedCustomer, cfg domain.LoyaltyConfig) Stats {
	years := cfg.EvaluationYears()
	s := Stats{
		Customers:       len(customers),
		NegativesByYear: make(map[int]int, len(years)),
		YearsActive:     make([]int, len(years)+1),
		StatusCounts:    make(map[domain.Status]int, len(domain.Statuses)),
	}

	revenues := make([]float64, 0, len(customers))
	var loyal, nonLoyal []float64

	for _, c := range customers {
		for _, y := range years {
			if c.Customer.RevenueByYear[y] < 0 {
				s.NegativesByYear[y]++
			}
		}

		raw := c.Customer.Record.FirstOrderDate
		if strings.TrimSpace(raw) == "" {
			s.BlankDates++
		} else if _, ok := tenure.ParseOrderDate(raw); !ok {
			s.InvalidDates++
		}
		if c.Customer.FirstYearInferred {
			s.InferredFirstYear++
		}
		if !c.Customer.FirstOrderYear.Valid {
			s.UnresolvedFirstYear++
		}

		if t := c.Metrics.TenureYears; t.Valid {
			if !s.MinTenure.Valid || t.Value < s.MinTenure.Value {
				s.MinTenure = t
			}
			if !s.MaxTenure.Valid || t.Value > s.MaxTenure.Value {
				s.MaxTenure = t
			}
		}

		if k := c.Metrics.YearsActive; k >= 0 && k < len(s.YearsActive) {
			s.YearsActive[k]++
		}

		s.StatusCounts[c.Classification.Status]++

		rev := c.Metrics.RevenueInWindow
		revenues = append(revenues, rev)
		if c.Classification.Status == domain.StatusLoyal {
			loyal = append(loyal, rev)
		} else {
			nonLoyal = append(nonLoyal, rev)
		}
	}

	s.TotalRevenue = money.Sum(revenues...)
	s.MeanRevenue = money.Mean(revenues)
	s.MedianRevenue = money.Median(revenues)

	s.LoyalRevenue = money.Sum(loyal...)
	if s.TotalRevenue != 0 {
		s.LoyalRevenueShare = s.LoyalRevenue / s.TotalRevenue
	}
	s.AvgLoyalRevenue = money.Mean(loyal)
	s.AvgNonLoyalRevenue = money.Mean(nonLoyal)

	return s
}
