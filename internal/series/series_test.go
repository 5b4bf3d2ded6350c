package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "wellcast/internal/errors"
)

func monthly(start time.Time, values ...float64) Series {
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{Date: start.AddDate(0, i, 0), Value: v}
	}
	return Series{Name: "test", Points: points}
}

var jan2020 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	d := []time.Time{jan2020, jan2020.AddDate(0, 1, 0)}

	s, err := New("oil", d, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []float64{1, 2}, s.Values())
	assert.Equal(t, d, s.Dates())

	_, err = New("oil", d, []float64{1})
	assert.True(t, apierrors.IsKind(err, apierrors.KindInvalidInput))

	_, err = New("oil", []time.Time{d[1], d[0]}, []float64{1, 2})
	assert.Error(t, err)

	_, err = New("oil", []time.Time{d[0], d[0]}, []float64{1, 2})
	assert.Error(t, err)
}

func TestSeries_CopySemantics(t *testing.T) {
	s := monthly(jan2020, 1, 2, 3)

	c := s.Clone()
	c.Points[0].Value = 99
	assert.Equal(t, 1.0, s.Points[0].Value)

	v, err := s.WithValues([]float64{7, 8, 9})
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 8, 9}, v.Values())
	assert.Equal(t, s.Dates(), v.Dates())
	assert.Equal(t, []float64{1, 2, 3}, s.Values())

	_, err = s.WithValues([]float64{1})
	assert.Error(t, err)
}

func TestDiff(t *testing.T) {
	s := monthly(jan2020, 1, 4, 9, 16)
	d := s.Diff()
	assert.Equal(t, []float64{3, 5, 7}, d.Values())
	assert.Equal(t, s.Dates()[1:], d.Dates())
	assert.True(t, monthly(jan2020, 5).Diff().Empty())
}

func TestFrom(t *testing.T) {
	s := monthly(jan2020, 1, 2, 3, 4)

	cut := From(s, jan2020.AddDate(0, 2, 0))
	assert.Equal(t, []float64{3, 4}, cut.Values())

	assert.Equal(t, s, From(s, time.Time{}))
	assert.True(t, From(s, jan2020.AddDate(1, 0, 0)).Empty())
}

func TestQuantile(t *testing.T) {
	values := []float64{100, 1, 5, 3, 2, 4}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.25, 2.25},
		{0.5, 3.5},
		{0.75, 4.75},
		{1, 100},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Quantile(values, tt.p), 1e-12, "p=%v", tt.p)
	}

	assert.Equal(t, 7.0, Median([]float64{7}))
	assert.True(t, math.IsNaN(Median(nil)))
	assert.Equal(t, 2.0, Median([]float64{1, math.NaN(), 3, math.Inf(1)}))
}

func TestClip(t *testing.T) {
	s := monthly(jan2020, 1, 2, 3, 4, 5, 100)

	clipped, report, err := Clip(s, 1.5)
	require.NoError(t, err)

	assert.InDelta(t, 2.25, report.Q1, 1e-12)
	assert.InDelta(t, 4.75, report.Q3, 1e-12)
	assert.InDelta(t, 2.5, report.IQR, 1e-12)
	assert.InDelta(t, -1.5, report.Lower, 1e-12)
	assert.InDelta(t, 8.5, report.Upper, 1e-12)
	assert.InDelta(t, 3.5, report.Median, 1e-12)
	assert.Equal(t, 1, report.Replaced)
	assert.Equal(t, []int{5}, report.Indices)

	assert.Equal(t, []float64{1, 2, 3, 4, 5, 3.5}, clipped.Values())
	assert.Equal(t, s.Dates(), clipped.Dates())
	// input untouched
	assert.Equal(t, 100.0, s.Last().Value)
}

func TestClip_Properties(t *testing.T) {
	inputs := [][]float64{
		{5, 5, 5, 5},
		{-50, 1, 2, 3, 2, 1, 2, 3, 80},
		{10, 12, 11, 300, 9, 13, -200, 12, 11},
		{1},
	}

	for _, values := range inputs {
		s := monthly(jan2020, values...)
		clipped, report, err := Clip(s, DefaultIQRMultiplier)
		require.NoError(t, err)

		require.Equal(t, s.Len(), clipped.Len())
		assert.Equal(t, s.Dates(), clipped.Dates())
		for i, p := range clipped.Points {
			inside := p.Value >= report.Lower && p.Value <= report.Upper
			assert.True(t, inside || p.Value == report.Median, "index %d value %v", i, p.Value)
		}
	}
}

func TestClip_SinglePass(t *testing.T) {
	// after replacing 1000 the fences would tighten, but 20 must survive
	s := monthly(jan2020, 10, 11, 12, 13, 14, 20, 1000)
	clipped, report, err := Clip(s, 1.5)
	require.NoError(t, err)
	assert.Equal(t, []int{6}, report.Indices)
	assert.Equal(t, 20.0, clipped.Points[5].Value)
}

func TestClip_Errors(t *testing.T) {
	_, _, err := Clip(Series{}, 1.5)
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrEmptySeries)
	assert.True(t, apierrors.IsKind(err, apierrors.KindInvalidInput))

	_, _, err = Clip(monthly(jan2020, 1, 2), -1)
	assert.Error(t, err)

	_, _, err = Clip(monthly(jan2020, math.NaN()), 1.5)
	assert.Error(t, err)
}

func TestSplitCount(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(i)
	}
	s := monthly(jan2020, values...)

	for _, window := range []int{1, 12, 29} {
		plan, err := SplitCount(s, window)
		require.NoError(t, err)
		assert.Equal(t, window, plan.Window())
		assert.Equal(t, 30-window, plan.Training.Len())
		assert.Equal(t, s, plan.Training.Concat(plan.Testing))
		assert.True(t, plan.Training.Last().Date.Before(plan.Testing.First().Date))
	}
}

func TestSplit_Errors(t *testing.T) {
	s := monthly(jan2020, 1, 2, 3)

	tests := []struct {
		name string
		run  func() error
	}{
		{"empty count", func() error { _, err := SplitCount(Series{}, 1); return err }},
		{"empty fraction", func() error { _, err := SplitFraction(Series{}, 0.2); return err }},
		{"zero window", func() error { _, err := SplitCount(s, 0); return err }},
		{"window covers series", func() error { _, err := SplitCount(s, 3); return err }},
		{"fraction zero", func() error { _, err := SplitFraction(s, 0); return err }},
		{"fraction one", func() error { _, err := SplitFraction(s, 1); return err }},
		{"fraction leaves nothing", func() error { _, err := SplitFraction(monthly(jan2020, 1), 0.5); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, apierrors.IsKind(err, apierrors.KindInvalidInput))
		})
	}
}

func TestSplitFraction(t *testing.T) {
	tests := []struct {
		n        int
		fraction float64
		want     int
	}{
		{60, 0.2, 12},
		{61, 0.2, 13},
		{10, 0.25, 3},
		{24, 0.2, 5},
		{5, 0.1, 1},
	}

	for _, tt := range tests {
		values := make([]float64, tt.n)
		s := monthly(jan2020, values...)
		plan, err := SplitFraction(s, tt.fraction)
		require.NoError(t, err)
		assert.Equal(t, tt.want, plan.Window(), "n=%d f=%v", tt.n, tt.fraction)
		assert.Equal(t, s, plan.Training.Concat(plan.Testing))
	}
}

func TestInferFrequency(t *testing.T) {
	day := func(n int) time.Time { return jan2020.AddDate(0, 0, n) }

	assert.Equal(t, Monthly, InferFrequency(monthly(jan2020, 1, 2, 3).Dates()))
	assert.Equal(t, Daily, InferFrequency([]time.Time{day(0), day(1), day(2), day(4)}))
	assert.Equal(t, Weekly, InferFrequency([]time.Time{day(0), day(7), day(14)}))
	assert.Equal(t, Quarterly, InferFrequency([]time.Time{day(0), day(91), day(182)}))
	assert.Equal(t, Yearly, InferFrequency([]time.Time{day(0), day(366), day(731)}))
	assert.Equal(t, Monthly, InferFrequency(nil))
	assert.Equal(t, 12, Monthly.PeriodsPerYear())
	assert.Equal(t, "monthly", Monthly.String())
}

func TestFutureDates(t *testing.T) {
	got := FutureDates(time.Date(2021, 11, 1, 0, 0, 0, 0, time.UTC), 3, Monthly)
	assert.Equal(t, []time.Time{
		time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC),
	}, got)

	// month ends stay at month end
	got = FutureDates(time.Date(2021, 1, 31, 0, 0, 0, 0, time.UTC), 2, Monthly)
	assert.Equal(t, time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC), got[0])
	assert.Equal(t, time.Date(2021, 3, 31, 0, 0, 0, 0, time.UTC), got[1])

	got = FutureDates(time.Date(2021, 1, 15, 0, 0, 0, 0, time.UTC), 1, Daily)
	assert.Equal(t, time.Date(2021, 1, 16, 0, 0, 0, 0, time.UTC), got[0])
}
