// Package models implements the forecasting models compared by the
// evaluator. Every model fits a series and returns a Fitted value behind a
// single interface, so callers never branch on the concrete estimator.
package models

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	apierrors "wellcast/internal/errors"
	"wellcast/internal/features"
	"wellcast/internal/series"
)

// Kind tags the estimator behind a model
type Kind string

const (
	KindARIMA              Kind = "arima"
	KindDecomposition      Kind = "decomposition"
	KindRidge              Kind = "ridge"
	KindARIMABoost         Kind = "arima_boost"
	KindDecompositionBoost Kind = "decomposition_boost"
)

// Model is an unfitted, named model specification
type Model interface {
	Name() string
	Kind() Kind
	Fit(ctx context.Context, s series.Series) (Fitted, error)
}

// Fitted is a model trained on a series
type Fitted interface {
	Name() string
	Kind() Kind
	// Params returns the estimated parameters by name
	Params() map[string]float64
	// FittedValues returns in-sample predictions aligned with the training
	// series. Entries the model cannot predict are NaN.
	FittedValues() []float64
	// Forecast predicts h periods after the training series with a
	// central prediction interval at the given level, e.g. 0.95.
	Forecast(h int, level float64) (ForecastResult, error)
}

// ForecastResult holds a point forecast and its interval bounds, dated at
// the forecast periods only
type ForecastResult struct {
	ModelName  string             `json:"model_name"`
	Kind       Kind               `json:"kind"`
	Horizon    int                `json:"horizon"`
	Confidence float64            `json:"confidence"`
	Point      series.Series      `json:"point"`
	Lower      series.Series      `json:"lower"`
	Upper      series.Series      `json:"upper"`
	Params     map[string]float64 `json:"params,omitempty"`
}

// Fit trains m on s. A panic inside the estimator and any returned error
// are reported as a model failure carrying the model name.
func Fit(ctx context.Context, m Model, s series.Series) (fitted Fitted, err error) {
	defer func() {
		if r := recover(); r != nil {
			fitted = nil
			err = apierrors.ModelFailure(m.Name(), fmt.Errorf("panic during fit: %v", r))
		}
	}()

	fitted, err = m.Fit(ctx, s)
	if err != nil {
		return nil, asModelError(m.Name(), err)
	}
	return fitted, nil
}

// Forecast calls f.Forecast with the same failure handling as Fit
func Forecast(f Fitted, h int, level float64) (res ForecastResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = ForecastResult{}
			err = apierrors.ModelFailure(f.Name(), fmt.Errorf("panic during forecast: %v", r))
		}
	}()

	res, err = f.Forecast(h, level)
	if err != nil {
		return ForecastResult{}, asModelError(f.Name(), err)
	}
	return res, nil
}

func asModelError(name string, err error) error {
	if apierrors.IsKind(err, apierrors.KindModel) {
		return err
	}
	return apierrors.ModelFailure(name, err)
}

// base carries what every fitted model needs to date its forecasts
type base struct {
	name  string
	kind  Kind
	train series.Series
	freq  series.Frequency
}

func newBase(name string, kind Kind, train series.Series) base {
	return base{
		name:  name,
		kind:  kind,
		train: train.Clone(),
		freq:  series.InferFrequency(train.Dates()),
	}
}

func (b base) Name() string { return b.name }
func (b base) Kind() Kind   { return b.kind }

func (b base) futureDates(h int) []time.Time {
	return features.FuturePeriods(b.train.Last().Date, h, b.freq)
}

// result assembles a ForecastResult and rejects non-finite output
func (b base) result(h int, level float64, point, lower, upper []float64, params map[string]float64) (ForecastResult, error) {
	for i := 0; i < h; i++ {
		if !finite(point[i]) || !finite(lower[i]) || !finite(upper[i]) {
			return ForecastResult{}, fmt.Errorf("forecast step %d is not finite", i+1)
		}
	}

	dates := b.futureDates(h)
	build := func(suffix string, values []float64) series.Series {
		points := make([]series.Point, h)
		for i := range points {
			points[i] = series.Point{Date: dates[i], Value: values[i]}
		}
		return series.Series{Name: b.name + suffix, Points: points}
	}

	return ForecastResult{
		ModelName:  b.name,
		Kind:       b.kind,
		Horizon:    h,
		Confidence: level,
		Point:      build("", point),
		Lower:      build("_lower", lower),
		Upper:      build("_upper", upper),
		Params:     params,
	}, nil
}

func checkForecastArgs(h int, level float64) error {
	if h < 1 {
		return apierrors.InvalidInput("forecast", fmt.Sprintf("horizon must be at least 1, got %d", h))
	}
	if !(level > 0 && level < 1) {
		return apierrors.InvalidInput("forecast", fmt.Sprintf("confidence must be in (0, 1), got %g", level))
	}
	return nil
}

// zValue is the two-sided standard normal quantile for level
func zValue(level float64) float64 {
	return distuv.UnitNormal.Quantile(0.5 + level/2)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func checkFinite(s series.Series) error {
	for i, p := range s.Points {
		if !finite(p.Value) {
			return fmt.Errorf("training value %d is not finite", i)
		}
	}
	return nil
}

func copyParams(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
