package models

import (
	"context"
	"fmt"

	"wellcast/internal/features"
	"wellcast/internal/series"
)

// Boosted fits a base model, then a tree ensemble on the base residuals
// using calendar features. Forecasts add the ensemble correction to the
// base forecast and shift its interval by the same amount.
type Boosted struct {
	name  string
	kind  Kind
	base  Model
	boost BoostOptions
}

// NewBoosted wraps base with a residual ensemble
func NewBoosted(name string, kind Kind, base Model, opts BoostOptions) *Boosted {
	return &Boosted{name: name, kind: kind, base: base, boost: opts}
}

func (m *Boosted) Name() string { return m.name }
func (m *Boosted) Kind() Kind   { return m.kind }

// Fit trains the base model and the residual ensemble
func (m *Boosted) Fit(ctx context.Context, s series.Series) (Fitted, error) {
	if err := m.boost.validate(); err != nil {
		return nil, err
	}

	baseFit, err := m.base.Fit(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("base model: %w", err)
	}

	baseValues := baseFit.FittedValues()
	cal := features.NewCalendar(s.Dates())

	var x [][]float64
	var resid []float64
	for i, p := range s.Points {
		if !finite(baseValues[i]) {
			continue
		}
		x = append(x, cal.Row(i))
		resid = append(resid, p.Value-baseValues[i])
	}
	if len(resid) < 2*m.boost.MinLeaf {
		return nil, fmt.Errorf("boosting needs at least %d residuals, got %d", 2*m.boost.MinLeaf, len(resid))
	}

	ensemble, err := FitGradientBoosting(x, resid, m.boost)
	if err != nil {
		return nil, err
	}

	fitted := make([]float64, len(baseValues))
	for i := range fitted {
		fitted[i] = baseValues[i]
		if finite(baseValues[i]) {
			fitted[i] += ensemble.Predict(cal.Row(i))
		}
	}

	return &boostedFit{
		base:     newBase(m.name, m.kind, s),
		baseFit:  baseFit,
		ensemble: ensemble,
		opts:     m.boost,
		fitted:   fitted,
	}, nil
}

type boostedFit struct {
	base
	baseFit  Fitted
	ensemble *GradientBoosting
	opts     BoostOptions
	fitted   []float64
}

func (f *boostedFit) Params() map[string]float64 {
	params := make(map[string]float64)
	for k, v := range f.baseFit.Params() {
		params["base_"+k] = v
	}
	params["boost_trees"] = float64(f.ensemble.Trees())
	params["boost_depth"] = float64(f.opts.Depth)
	params["boost_learning_rate"] = f.opts.LearningRate
	params["boost_init"] = f.ensemble.init
	return params
}

func (f *boostedFit) FittedValues() []float64 {
	return append([]float64(nil), f.fitted...)
}

func (f *boostedFit) Forecast(h int, level float64) (ForecastResult, error) {
	if err := checkForecastArgs(h, level); err != nil {
		return ForecastResult{}, err
	}

	baseRes, err := f.baseFit.Forecast(h, level)
	if err != nil {
		return ForecastResult{}, fmt.Errorf("base forecast: %w", err)
	}

	cal := features.NewCalendar(baseRes.Point.Dates())
	point := make([]float64, h)
	lower := make([]float64, h)
	upper := make([]float64, h)
	for i := 0; i < h; i++ {
		correction := f.ensemble.Predict(cal.Row(i))
		point[i] = baseRes.Point.Points[i].Value + correction
		lower[i] = baseRes.Lower.Points[i].Value + correction
		upper[i] = baseRes.Upper.Points[i].Value + correction
	}
	return f.result(h, level, point, lower, upper, f.Params())
}
