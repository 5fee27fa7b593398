package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	tests := []struct {
		in     float64
		places int
		want   float64
	}{
		{1234.5678, 2, 1234.57},
		{0.8, 4, 0.8},
		{2.0 / 3.0, 4, 0.6667},
		{0.125, 2, 0.12}, // half-even
		{0.135, 2, 0.14}, // half-even
		{-500.005, 2, -500.0},
		{-0.001, 2, 0},
		{35000, 2, 35000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round(tt.in, tt.places), "Round(%v, %d)", tt.in, tt.places)
	}
}

func TestRoundNonFinite(t *testing.T) {
	assert.True(t, math.IsNaN(Round(math.NaN(), 2)))
	assert.True(t, math.IsInf(Round(math.Inf(1), 2), 1))
}

func TestRoundNeverNegativeZero(t *testing.T) {
	assert.False(t, math.Signbit(Round(-0.001, 2)))
}

func TestSum(t *testing.T) {
	assert.Equal(t, 0.0, Sum())
	assert.Equal(t, 0.3, Sum(0.1, 0.2))
	assert.Equal(t, 35000.0, Sum(8000, 0, 9000, 8000, 10000))
	assert.Equal(t, -100.0, Sum(50, -150))
	assert.Equal(t, 10.0, Sum(10, math.NaN(), math.Inf(-1)))
}

func TestMeanAndMedian(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 2.5, Mean([]float64{4, 1, 3, 2}))

	values := []float64{3, 1, 2}
	Median(values)
	assert.Equal(t, []float64{3, 1, 2}, values, "Median must not reorder its input")
}
