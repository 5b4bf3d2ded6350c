package forecast

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellcast/internal/config"
	apierrors "wellcast/internal/errors"
	"wellcast/internal/infrastructure"
	"wellcast/internal/models"
	"wellcast/internal/production"
	"wellcast/internal/series"
)

var start = time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC)

func seasonalSeries(n int) series.Series {
	dates := make([]time.Time, n)
	values := make([]float64, n)
	for i := range dates {
		dates[i] = start.AddDate(0, i, 0)
		values[i] = 500 - 2*float64(i) + 20*math.Sin(2*math.Pi*float64(i)/12)
	}
	s, _ := series.New("total_oil", dates, values)
	return s
}

func wellRecords() []production.Record {
	var records []production.Record
	for i := 0; i < 48; i++ {
		period := start.AddDate(0, i, 0)
		oil := 1000*math.Exp(-0.03*float64(i)) + 25*math.Cos(2*math.Pi*float64(i)/12)
		if i == 40 {
			oil = 1e6
		}
		records = append(records,
			production.Record{WellID: "W-1", Period: period, Oil: oil, Gas: 3 * oil},
			production.Record{WellID: "W-2", Period: period, Oil: 200, Gas: 400},
		)
	}
	return records
}

func quietForecaster() *Forecaster {
	logger := infrastructure.NewLogger(&bytes.Buffer{}, "error")
	return New(logger, nil)
}

func TestRefit(t *testing.T) {
	s := seasonalSeries(36)
	ms := []models.Model{
		models.NewRidge("ridge", models.RidgeOptions{Lambda: 1}),
		models.NewARIMA("too_big", models.ARIMAOrder{P: 10, D: 2, Q: 10}),
		models.NewDecomposition("decomposition", models.DecompositionOptions{
			Changepoints: 3, ChangepointRange: 0.8, ChangepointPenalty: 10, FourierOrder: 2,
		}),
	}

	set, err := quietForecaster().Refit(context.Background(), ms, s, 6, 0.95)
	require.NoError(t, err)
	require.Len(t, set.Outcomes, 3)
	assert.Equal(t, 6, set.Horizon)

	failed := set.Outcomes[1]
	assert.Equal(t, "too_big", failed.ModelName)
	assert.True(t, apierrors.IsKind(failed.Err, apierrors.KindModel))
	assert.Nil(t, failed.Result)

	results := set.Successful()
	require.Len(t, results, 2)
	for _, res := range results {
		require.Equal(t, 6, res.Point.Len())
		assert.Equal(t, s.Last().Date.AddDate(0, 1, 0), res.Point.First().Date)
		assert.Equal(t, s.Last().Date.AddDate(0, 6, 0), res.Point.Last().Date)
		assert.Equal(t, 0.95, res.Confidence)
	}

	_, err = Refit(context.Background(), ms, series.Series{}, 6, 0.95)
	assert.ErrorIs(t, err, apierrors.ErrEmptySeries)
	_, err = Refit(context.Background(), ms, s, 0, 0.95)
	assert.True(t, apierrors.IsKind(err, apierrors.KindInvalidInput))
}

func TestForecastWell(t *testing.T) {
	settings := Settings{
		Target:        "oil",
		Cutoff:        time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		IQRMultiplier: 1.5,
		TestFraction:  0.2,
		Horizon:       6,
		Confidence:    0.95,
		Models: []models.Model{
			models.NewRidge("ridge", models.RidgeOptions{Lambda: 1}),
			models.NewARIMA("arima", models.ARIMAOrder{P: 1, D: 1, Q: 0}),
		},
	}

	wf, err := quietForecaster().ForecastWell(context.Background(), "W-1", wellRecords(), settings)
	require.NoError(t, err)

	// 2010-01 through 2011-12
	assert.Equal(t, 24, wf.Series.Len())
	assert.Equal(t, settings.Cutoff, wf.Series.First().Date)
	assert.Equal(t, "W-1_oil", wf.Series.Name)

	assert.Equal(t, 1, wf.Clip.Replaced)
	assert.Equal(t, []int{16}, wf.Clip.Indices)
	assert.Equal(t, 1e6, wf.Raw.Points[16].Value)
	assert.Equal(t, wf.Clip.Median, wf.Series.Points[16].Value)

	// ceil(0.2 * 24) = 5
	assert.Equal(t, 5, wf.Split.Window())
	assert.Equal(t, 5, wf.Accuracy.Window)
	require.Len(t, wf.Accuracy.Entries, 2)

	require.Len(t, wf.Forecasts.Outcomes, 2)
	for _, res := range wf.Forecasts.Successful() {
		assert.Equal(t, time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC), res.Point.First().Date)
	}
}

func TestForecastWell_Errors(t *testing.T) {
	settings := Settings{Target: "oil", IQRMultiplier: 1.5, TestFraction: 0.2, Horizon: 6, Confidence: 0.95}

	_, err := ForecastWell(context.Background(), "W-9", wellRecords(), settings)
	assert.ErrorIs(t, err, apierrors.ErrUnknownWell)

	settings.Target = "water"
	_, err = ForecastWell(context.Background(), "W-1", wellRecords(), settings)
	assert.Error(t, err)

	settings.Target = "gas"
	settings.Cutoff = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = ForecastWell(context.Background(), "W-1", wellRecords(), settings)
	assert.ErrorIs(t, err, apierrors.ErrEmptySeries)
}

func TestSettingsFrom(t *testing.T) {
	cfg := config.Default()
	cfg.Forecast.Models = []string{"ridge"}

	settings, err := SettingsFrom(cfg)
	require.NoError(t, err)
	assert.Equal(t, "oil", settings.Target)
	assert.Equal(t, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), settings.Cutoff)
	assert.Equal(t, 0.2, settings.TestFraction)
	assert.Len(t, settings.Models, len(config.ModelKinds))
	require.Len(t, settings.ForecastModels, 1)
	assert.Equal(t, "ridge", settings.ForecastModels[0].Name())
}
