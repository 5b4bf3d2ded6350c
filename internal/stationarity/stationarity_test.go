package stationarity

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "wellcast/internal/errors"
	"wellcast/internal/series"
)

func explosive(n int) []float64 {
	out := make([]float64, n)
	for t := range out {
		out[t] = math.Pow(1.05, float64(t)) + 0.1*math.Sin(1.3*float64(t))
	}
	return out
}

func alternating(n int) []float64 {
	out := make([]float64, n)
	for t := range out {
		sign := 1.0
		if t%2 == 1 {
			sign = -1
		}
		out[t] = sign + 0.3*math.Sin(0.7*float64(t))
	}
	return out
}

func toSeries(values []float64) series.Series {
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]series.Point, len(values))
	for i, v := range values {
		points[i] = series.Point{Date: start.AddDate(0, i, 0), Value: v}
	}
	return series.Series{Name: "s", Points: points}
}

func TestADF_FixedLag(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		stationary bool
	}{
		{"explosive growth", explosive(60), false},
		{"mean reverting", alternating(60), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ADF(tt.values, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.stationary, res.Stationary)
			assert.Equal(t, 0, res.Lags)
			assert.Equal(t, 59, res.NObs)
			assert.Len(t, res.CriticalValues, 3)
			assert.True(t, res.PValue >= 0 && res.PValue <= 1)
			if tt.stationary {
				assert.Less(t, res.PValue, 0.01)
			} else {
				assert.Greater(t, res.Statistic, 0.0)
			}
		})
	}
}

func TestADF_AutoLag(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	noise := make([]float64, 200)
	for i := range noise {
		noise[i] = rng.NormFloat64()
	}

	res, err := ADF(noise, AutoLag)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Lags, 0)
	assert.LessOrEqual(t, res.Lags, SchwertLag(200))
	assert.Equal(t, 199-res.Lags, res.NObs)
	assert.True(t, res.Stationary)
}

func TestADF_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		lags   int
	}{
		{"too short", []float64{1, 2, 3}, 0},
		{"non finite", []float64{1, 2, math.NaN(), 4, 5, 6, 7}, 0},
		{"lag too large", explosive(20), 9},
		{"negative lag", explosive(20), -3},
		{"constant", []float64{4, 4, 4, 4, 4, 4, 4, 4}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ADF(tt.values, tt.lags)
			require.Error(t, err)
			assert.True(t, apierrors.IsKind(err, apierrors.KindInvalidInput))
		})
	}
}

func TestCriticalValues(t *testing.T) {
	cv := CriticalValues(100)
	assert.InDelta(t, -3.4975, cv["1%"], 1e-3)
	assert.InDelta(t, -2.8909, cv["5%"], 1e-3)
	assert.InDelta(t, -2.5825, cv["10%"], 1e-3)
	assert.Less(t, cv["1%"], cv["5%"])
	assert.Less(t, cv["5%"], cv["10%"])
}

func TestPValue(t *testing.T) {
	assert.InDelta(t, 0.05, PValue(-2.86154), 0.002)
	assert.InDelta(t, 0.01, PValue(-3.43035), 0.002)
	assert.Equal(t, 1.0, PValue(3))
	assert.Equal(t, 0.0, PValue(-25))
	assert.True(t, math.IsNaN(PValue(math.NaN())))

	prev := 0.0
	for stat := -6.0; stat <= 2.5; stat += 0.25 {
		p := PValue(stat)
		assert.GreaterOrEqual(t, p, prev, "stat %v", stat)
		prev = p
	}
}

func TestSchwertLag(t *testing.T) {
	assert.Equal(t, 12, SchwertLag(100))
	assert.Equal(t, 14, SchwertLag(200))
}

func TestCheck(t *testing.T) {
	d, err := Check(toSeries(alternating(48)), 0)
	require.NoError(t, err)
	assert.True(t, d.Level.Stationary)
	assert.Nil(t, d.Difference)
	assert.Equal(t, 0, d.SuggestedD)

	d, err = Check(toSeries(explosive(48)), 0)
	require.NoError(t, err)
	assert.False(t, d.Level.Stationary)
	require.NotNil(t, d.Difference)
	assert.Equal(t, 47-1, d.Difference.NObs)
	assert.GreaterOrEqual(t, d.SuggestedD, 1)

	_, err = Check(series.Series{}, 0)
	assert.ErrorIs(t, err, apierrors.ErrEmptySeries)
}

func TestACF(t *testing.T) {
	acf := ACF([]float64{1, -1, 1, -1, 1, -1}, 2)
	require.Len(t, acf, 3)
	assert.InDelta(t, 1, acf[0], 1e-12)
	assert.InDelta(t, -5.0/6, acf[1], 1e-12)
	assert.InDelta(t, 4.0/6, acf[2], 1e-12)

	assert.Len(t, ACF([]float64{1, 2, 3}, 10), 3)
	assert.Nil(t, ACF(nil, 3))
	assert.True(t, math.IsNaN(ACF([]float64{2, 2, 2}, 1)[1]))
	assert.InDelta(t, 0.196, ACFBand(100), 1e-12)
}
