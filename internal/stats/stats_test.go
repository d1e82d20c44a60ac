package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanSkipsNaN(t *testing.T) {
	assert.InDelta(t, 30.25, Mean([]float64{22, 38, 26, 35, math.NaN()}), 1e-12)
	assert.True(t, math.IsNaN(Mean(nil)))
}

func TestStdDevIsSampleStd(t *testing.T) {
	// sample std of 2,4,4,4,5,5,7,9 is sqrt(32/7)
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, math.Sqrt(32.0/7.0), got, 1e-12)
	assert.True(t, math.IsNaN(StdDev([]float64{3})))
}

func TestQuantileLinearInterpolation(t *testing.T) {
	fare := []float64{7.25, 71.28, 7.92, 53.10, 1000.0}
	q1, q3 := Quartiles(fare)
	assert.InDelta(t, 7.92, q1, 1e-12)
	assert.InDelta(t, 71.28, q3, 1e-12)
	assert.InDelta(t, 53.10, Median(fare), 1e-12)

	assert.InDelta(t, 2.5, Median([]float64{4, 1, 3, 2}), 1e-12)
	assert.InDelta(t, 1.75, Quantile([]float64{1, 2, 3, 4}, 0.25), 1e-12)
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestMinMax(t *testing.T) {
	lo, hi := MinMax([]float64{3, math.NaN(), -1, 8})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 8.0, hi)

	lo, hi = MinMax([]float64{math.NaN()})
	assert.True(t, math.IsNaN(lo))
	assert.True(t, math.IsNaN(hi))
}

func TestPearson(t *testing.T) {
	r := Pearson([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8})
	require.False(t, math.IsNaN(r))
	assert.InDelta(t, 1.0, r, 1e-12)

	r = Pearson([]float64{1, 2, 3}, []float64{3, 2, 1})
	assert.InDelta(t, -1.0, r, 1e-12)

	assert.True(t, math.IsNaN(Pearson([]float64{1, 1, 1}, []float64{1, 2, 3})))
}

func TestSortedDropsNaN(t *testing.T) {
	in := []float64{3, math.NaN(), 1}
	out := Sorted(in)
	assert.Equal(t, []float64{1, 3}, out)
	assert.Equal(t, 3.0, in[0], "input must not be reordered")
}
