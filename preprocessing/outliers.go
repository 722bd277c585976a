package preprocessing

import (
	"math"
	"sort"
)

// Default outlier fences follow the usual conventions: IQR with a 1.5
// multiplier and z-score with a threshold of 3 standard deviations.
const (
	DefaultIQRFactor       = 1.5
	DefaultZScoreThreshold = 3.0
)

// quantile computes the q-th quantile of values with linear interpolation
// between order statistics. values must be non-empty; the slice is not
// modified.
func quantile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// IQRKeepMask returns a per-row mask that is false for values outside the
// interquartile fences [Q1 - factor*IQR, Q3 + factor*IQR].
func IQRKeepMask(values []float64, factor float64) []bool {
	q1 := quantile(values, 0.25)
	q3 := quantile(values, 0.75)
	iqr := q3 - q1
	lower := q1 - factor*iqr
	upper := q3 + factor*iqr

	keep := make([]bool, len(values))
	for i, v := range values {
		keep[i] = v >= lower && v <= upper
	}
	return keep
}

// ZScoreKeepMask returns a per-row mask that is false for values more than
// threshold sample standard deviations away from the mean. A column with zero
// variance keeps every row.
func ZScoreKeepMask(values []float64, threshold float64) []bool {
	keep := make([]bool, len(values))
	n := len(values)
	if n < 2 {
		for i := range keep {
			keep[i] = true
		}
		return keep
	}

	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	var sumSquares float64
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	std := math.Sqrt(sumSquares / float64(n-1))

	if std == 0 {
		for i := range keep {
			keep[i] = true
		}
		return keep
	}
	for i, v := range values {
		keep[i] = math.Abs((v-mean)/std) <= threshold
	}
	return keep
}
