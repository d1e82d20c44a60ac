// Package stats holds the small set of descriptive statistics the
// preprocessing stages need. All functions ignore NaN inputs and leave their
// arguments untouched.
package stats

import (
	"math"
	"sort"
)

// Mean computes the average of x. It returns NaN for an empty slice.
func Mean(x []float64) float64 {
	n := 0
	sum := 0.0
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// StdDev computes the sample standard deviation (n-1 denominator) using
// Welford's update. Fewer than two values yield NaN.
func StdDev(x []float64) float64 {
	var (
		n    int
		mean float64
		m2   float64
	)
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		n++
		delta := v - mean
		mean += delta / float64(n)
		m2 += delta * (v - mean)
	}
	if n < 2 {
		return math.NaN()
	}
	return math.Sqrt(m2 / float64(n-1))
}

// MinMax returns the smallest and largest values of x, or NaN, NaN when x
// has no values.
func MinMax(x []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	seen := false
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		seen = true
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if !seen {
		return math.NaN(), math.NaN()
	}
	return lo, hi
}

// Median returns the 50th percentile of x.
func Median(x []float64) float64 {
	return Quantile(x, 0.5)
}

// Quantile returns the q-th quantile (0 <= q <= 1) of x using linear
// interpolation between closest ranks.
func Quantile(x []float64, q float64) float64 {
	sorted := Sorted(x)
	if len(sorted) == 0 {
		return math.NaN()
	}
	return quantileSorted(sorted, q)
}

// Quartiles returns the 25th and 75th percentiles of x in one sort.
func Quartiles(x []float64) (q1, q3 float64) {
	sorted := Sorted(x)
	if len(sorted) == 0 {
		return math.NaN(), math.NaN()
	}
	return quantileSorted(sorted, 0.25), quantileSorted(sorted, 0.75)
}

// Sorted returns an ascending copy of x without NaN values.
func Sorted(x []float64) []float64 {
	cp := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			cp = append(cp, v)
		}
	}
	sort.Float64s(cp)
	return cp
}

func quantileSorted(sorted []float64, q float64) float64 {
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Pearson computes the correlation coefficient of the pairs (x[i], y[i])
// where both sides are present. It returns NaN when fewer than two pairs
// exist or either side has no variance.
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) {
		return math.NaN()
	}
	var n, sumX, sumY, sumXX, sumYY, sumXY float64
	for i := range x {
		a, b := x[i], y[i]
		if math.IsNaN(a) || math.IsNaN(b) {
			continue
		}
		n++
		sumX += a
		sumY += b
		sumXX += a * a
		sumYY += b * b
		sumXY += a * b
	}
	if n < 2 {
		return math.NaN()
	}
	denom := math.Sqrt((n*sumXX - sumX*sumX) * (n*sumYY - sumY*sumY))
	if denom == 0 {
		return math.NaN()
	}
	r := (n*sumXY - sumX*sumY) / denom
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}
