package models

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"wellcast/internal/features"
	"wellcast/internal/regress"
	"wellcast/internal/series"
)

// minRidgePenalty keeps month indicators identifiable when lambda is zero
// and a month is missing from the training window
const minRidgePenalty = 1e-8

// RidgeOptions configures the calendar regression
type RidgeOptions struct {
	Lambda float64
}

// Ridge regresses the series on calendar features: a standardized numeric
// date and month indicators (January is the reference level). The
// intercept is not penalised.
type Ridge struct {
	name string
	opts RidgeOptions
}

// NewRidge creates a ridge regression model
func NewRidge(name string, opts RidgeOptions) *Ridge {
	return &Ridge{name: name, opts: opts}
}

func (m *Ridge) Name() string { return m.name }
func (m *Ridge) Kind() Kind   { return KindRidge }

// Fit solves the penalised least-squares problem
func (m *Ridge) Fit(ctx context.Context, s series.Series) (Fitted, error) {
	if s.Len() < 2 {
		return nil, fmt.Errorf("ridge needs at least 2 observations, got %d", s.Len())
	}
	if err := checkFinite(s); err != nil {
		return nil, err
	}
	if m.opts.Lambda < 0 || math.IsNaN(m.opts.Lambda) {
		return nil, fmt.Errorf("lambda must be non-negative, got %g", m.opts.Lambda)
	}

	cal := features.NewCalendar(s.Dates())
	mean, sd := stat.MeanStdDev(cal.Years, nil)
	if sd == 0 || math.IsNaN(sd) {
		sd = 1
	}

	f := &ridgeFit{
		base:     newBase(m.name, KindRidge, s),
		lambda:   m.opts.Lambda,
		yearMean: mean,
		yearSD:   sd,
	}

	rows := f.design(cal)
	penalty := make([]float64, len(rows[0]))
	for j := 1; j < len(penalty); j++ {
		penalty[j] = math.Max(m.opts.Lambda, minRidgePenalty)
	}

	res, err := regress.Ridge(regress.Design(rows), s.Values(), penalty)
	if err != nil {
		return nil, fmt.Errorf("ridge regression: %w", err)
	}
	f.coef = res.Coef
	f.fitted = res.Fitted

	dof := res.N - res.P
	if dof < 1 {
		dof = 1
	}
	f.sigma = math.Sqrt(res.SSR / float64(dof))

	return f, nil
}

type ridgeFit struct {
	base
	lambda           float64
	yearMean, yearSD float64
	coef             []float64
	fitted           []float64
	sigma            float64
}

// design is [1, standardized date, Feb..Dec indicators]
func (f *ridgeFit) design(cal features.Calendar) [][]float64 {
	rows := make([][]float64, cal.Len())
	for i := range rows {
		row := make([]float64, 0, 13)
		row = append(row, 1, (cal.Years[i]-f.yearMean)/f.yearSD)
		row = append(row, cal.Months[i][1:]...)
		rows[i] = row
	}
	return rows
}

func (f *ridgeFit) predict(dates []time.Time) []float64 {
	rows := f.design(features.NewCalendar(dates))
	out := make([]float64, len(rows))
	for i, row := range rows {
		for j, c := range f.coef {
			out[i] += c * row[j]
		}
	}
	return out
}

func (f *ridgeFit) Params() map[string]float64 {
	params := map[string]float64{
		"intercept": f.coef[0],
		"date":      f.coef[1],
		"lambda":    f.lambda,
		"sigma":     f.sigma,
	}
	names := features.ColumnNames()
	// names[1] is January, the reference level
	for j := 2; j < len(f.coef); j++ {
		params[names[j]] = f.coef[j]
	}
	return params
}

func (f *ridgeFit) FittedValues() []float64 {
	return append([]float64(nil), f.fitted...)
}

// Forecast evaluates the regression on future calendar features
func (f *ridgeFit) Forecast(h int, level float64) (ForecastResult, error) {
	if err := checkForecastArgs(h, level); err != nil {
		return ForecastResult{}, err
	}

	point := f.predict(f.futureDates(h))
	half := zValue(level) * f.sigma
	lower := make([]float64, h)
	upper := make([]float64, h)
	for i, v := range point {
		lower[i] = v - half
		upper[i] = v + half
	}
	return f.result(h, level, point, lower, upper, f.Params())
}
