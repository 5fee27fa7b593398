package tenure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/loyalty/internal/domain"
)

var window = []int{2020, 2021, 2022, 2023, 2024}

func TestParseOrderDate(t *testing.T) {
	tests := []struct {
		raw  string
		year int
		ok   bool
	}{
		{"2019-03-15", 2019, true},
		{"2019-03-15 10:22:00", 2019, true},
		{"2019-03-15T10:22:00Z", 2019, true},
		{"3/15/2019", 2019, true},
		{"03/15/2019", 2019, true},
		{"2019/03/15", 2019, true},
		{"15-Mar-2019", 2019, true},
		{"Mar 15, 2019", 2019, true},
		{"  2018-01-01  ", 2018, true},
		{"2019-03-15 00:00:00+00:00", 2019, true},
		{"2019-03-15 10:22:00.123", 2019, true},
		{"2019-03-15T10:22:00+05:30", 2019, true},
		{"Jun 1 2015", 2015, true},
		{"June 1 2015", 2015, true},
		{"1 June 2015", 2015, true},
		{"2019-03", 2019, true},
		{"Mar 2019", 2019, true},
		{"2015", 2015, true},
		{"20150601", 2015, true},
		{"", 0, false},
		{"   ", 0, false},
		{"not a date", 0, false},
		{"2019-13-45", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseOrderDate(tt.raw)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.year, got.Year())
			}
		})
	}
}

func TestResolveFirstYear(t *testing.T) {
	t.Run("recorded date is authoritative", func(t *testing.T) {
		rec := domain.CustomerRecord{FirstOrderDate: "2023-06-01"}
		revenue := map[int]float64{2020: 1000, 2021: 500}

		year, inferred := ResolveFirstYear(rec, revenue, window)
		assert.Equal(t, domain.SomeInt(2023), year)
		assert.False(t, inferred)
	})

	t.Run("blank date infers earliest positive year", func(t *testing.T) {
		rec := domain.CustomerRecord{FirstOrderDate: ""}
		revenue := map[int]float64{2020: 0, 2021: -50, 2022: 5000, 2023: 0, 2024: 10}

		year, inferred := ResolveFirstYear(rec, revenue, window)
		assert.Equal(t, domain.SomeInt(2022), year)
		assert.True(t, inferred)
	})

	t.Run("unparsable date falls back to revenue", func(t *testing.T) {
		rec := domain.CustomerRecord{FirstOrderDate: "unknown"}
		revenue := map[int]float64{2021: 1}

		year, inferred := ResolveFirstYear(rec, revenue, window)
		assert.Equal(t, domain.SomeInt(2021), year)
		assert.True(t, inferred)
	})

	t.Run("all zero or negative revenue is absent", func(t *testing.T) {
		rec := domain.CustomerRecord{}
		revenue := map[int]float64{2020: 0, 2021: -100, 2022: 0, 2023: -1, 2024: 0}

		year, inferred := ResolveFirstYear(rec, revenue, window)
		assert.False(t, year.Valid)
		assert.False(t, inferred)
	})

	t.Run("scan order ignores slice order", func(t *testing.T) {
		revenue := map[int]float64{2020: 10, 2024: 10}
		year, ok := InferFirstYear(revenue, []int{2024, 2022, 2020})
		require.True(t, ok)
		assert.Equal(t, 2020, year)
	})
}
