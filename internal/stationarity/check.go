package stationarity

import (
	"math"

	apierrors "wellcast/internal/errors"
	"wellcast/internal/series"
)

// Diagnosis reports the level test and, when the level looks
// non-stationary, the test on the first difference
type Diagnosis struct {
	Level      Result  `json:"level"`
	Difference *Result `json:"difference,omitempty"`
	// SuggestedD is the number of differences that produced a stationary
	// result, capped at 2
	SuggestedD int `json:"suggested_d"`
}

// Check runs ADF on s and, if needed, on its first difference. The result
// is informational; the series handed to models is not changed.
func Check(s series.Series, lags int) (Diagnosis, error) {
	if s.Empty() {
		return Diagnosis{}, apierrors.EmptySeries("stationarity check")
	}

	level, err := ADF(s.Values(), lags)
	if err != nil {
		return Diagnosis{}, err
	}
	d := Diagnosis{Level: level}
	if level.Stationary {
		return d, nil
	}

	diff, err := ADF(s.Diff().Values(), lags)
	if err != nil {
		// too short or flat after differencing: report the level test alone
		d.SuggestedD = 1
		return d, nil
	}
	d.Difference = &diff
	if diff.Stationary {
		d.SuggestedD = 1
	} else {
		d.SuggestedD = 2
	}
	return d, nil
}

// ACF returns the sample autocorrelations for lags 0..maxLag. Lag 0 is 1.
func ACF(values []float64, maxLag int) []float64 {
	n := len(values)
	if n == 0 || maxLag < 0 {
		return nil
	}
	if maxLag >= n {
		maxLag = n - 1
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	denom := 0.0
	for _, v := range values {
		denom += (v - mean) * (v - mean)
	}

	out := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		if denom == 0 {
			out[k] = math.NaN()
			continue
		}
		num := 0.0
		for t := 0; t+k < n; t++ {
			num += (values[t] - mean) * (values[t+k] - mean)
		}
		out[k] = num / denom
	}
	return out
}

// ACFBand is the approximate 95% white-noise band ±1.96/√n
func ACFBand(n int) float64 {
	if n <= 0 {
		return math.NaN()
	}
	return 1.96 / math.Sqrt(float64(n))
}
