package series

import (
	"math"
	"sort"
)

// Quantile returns the p-quantile of values using linear interpolation
// between order statistics at position p*(n-1) (Hyndman-Fan type 7).
// Non-finite values are ignored; NaN is returned when nothing is left.
func Quantile(values []float64, p float64) float64 {
	sorted := FiniteValues(values)
	if len(sorted) == 0 || math.IsNaN(p) {
		return math.NaN()
	}
	sort.Float64s(sorted)
	return quantileSorted(sorted, p)
}

func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	h := p * float64(n-1)
	lo := int(math.Floor(h))
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Median returns the 0.5 quantile
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}
