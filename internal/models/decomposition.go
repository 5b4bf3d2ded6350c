package models

import (
	"context"
	"fmt"
	"math"
	"time"

	"wellcast/internal/features"
	"wellcast/internal/regress"
	"wellcast/internal/series"
)

// seasonalityPenalty keeps Fourier terms identifiable when the history is
// shorter than a year or sampled once per cycle
const seasonalityPenalty = 1e-4

// DecompositionOptions configures the additive trend plus seasonality model
type DecompositionOptions struct {
	// Changepoints is the number of potential trend slope changes
	Changepoints int
	// ChangepointRange is the leading share of history they are placed in
	ChangepointRange float64
	// ChangepointPenalty is the ridge penalty on slope changes
	ChangepointPenalty float64
	// FourierOrder is the number of yearly sine/cosine pairs
	FourierOrder int
}

// Decomposition fits y(t) = g(t) + s(t) + ε where g is a piecewise linear
// trend with changepoints spread evenly over the first part of history and
// s is a yearly Fourier series. Slope changes are ridge penalised.
// Intervals use the residual standard deviation.
type Decomposition struct {
	name string
	opts DecompositionOptions
}

// NewDecomposition creates a decomposition model
func NewDecomposition(name string, opts DecompositionOptions) *Decomposition {
	return &Decomposition{name: name, opts: opts}
}

func (m *Decomposition) Name() string { return m.name }
func (m *Decomposition) Kind() Kind   { return KindDecomposition }

// Fit estimates trend, changepoint deltas and seasonal coefficients
func (m *Decomposition) Fit(ctx context.Context, s series.Series) (Fitted, error) {
	if s.Len() < 3 {
		return nil, fmt.Errorf("decomposition needs at least 3 observations, got %d", s.Len())
	}
	if err := checkFinite(s); err != nil {
		return nil, err
	}
	if m.opts.ChangepointRange <= 0 || m.opts.ChangepointRange > 1 {
		return nil, fmt.Errorf("changepoint range must be in (0, 1], got %g", m.opts.ChangepointRange)
	}

	years := features.NewCalendar(s.Dates()).Years
	f := &decompositionFit{
		base:  newBase(m.name, KindDecomposition, s),
		opts:  m.opts,
		t0:    years[0],
		span:  years[len(years)-1] - years[0],
		scale: 0,
	}
	for _, v := range s.Values() {
		f.scale = math.Max(f.scale, math.Abs(v))
	}
	if f.scale == 0 {
		f.scale = 1
	}

	t := make([]float64, len(years))
	for i, yr := range years {
		t[i] = f.scaledTime(yr)
	}
	f.changepoints = placeChangepoints(t, m.opts.Changepoints, m.opts.ChangepointRange)

	rows := make([][]float64, len(t))
	penalty := f.penalties()
	y := make([]float64, len(t))
	for i := range t {
		rows[i] = f.row(t[i], years[i])
		y[i] = s.Points[i].Value / f.scale
	}

	res, err := regress.Ridge(regress.Design(rows), y, penalty)
	if err != nil {
		return nil, fmt.Errorf("decomposition regression: %w", err)
	}
	f.coef = res.Coef

	f.fitted = make([]float64, len(y))
	ssr := 0.0
	for i := range y {
		f.fitted[i] = res.Fitted[i] * f.scale
		r := s.Points[i].Value - f.fitted[i]
		ssr += r * r
	}
	dof := len(y) - len(f.coef)
	if dof < 1 {
		dof = 1
	}
	f.sigma = math.Sqrt(ssr / float64(dof))

	return f, nil
}

type decompositionFit struct {
	base
	opts         DecompositionOptions
	t0, span     float64 // time origin and length in years
	scale        float64 // max |y|
	changepoints []float64
	coef         []float64
	fitted       []float64
	sigma        float64
}

// scaledTime maps a decimal year onto [0, 1] over the training history
func (f *decompositionFit) scaledTime(year float64) float64 {
	if f.span == 0 {
		return 0
	}
	return (year - f.t0) / f.span
}

// row is [1, t, (t-c_1)+ ... (t-c_K)+, sin/cos pairs]
func (f *decompositionFit) row(t, year float64) []float64 {
	row := make([]float64, 0, 2+len(f.changepoints)+2*f.opts.FourierOrder)
	row = append(row, 1, t)
	for _, c := range f.changepoints {
		row = append(row, math.Max(t-c, 0))
	}
	for k := 1; k <= f.opts.FourierOrder; k++ {
		angle := 2 * math.Pi * float64(k) * year
		row = append(row, math.Sin(angle), math.Cos(angle))
	}
	return row
}

func (f *decompositionFit) penalties() []float64 {
	p := make([]float64, 0, 2+len(f.changepoints)+2*f.opts.FourierOrder)
	p = append(p, 0, 0)
	for range f.changepoints {
		p = append(p, f.opts.ChangepointPenalty)
	}
	for k := 0; k < 2*f.opts.FourierOrder; k++ {
		p = append(p, seasonalityPenalty)
	}
	return p
}

// placeChangepoints spreads k points evenly over the first share of the
// observed times, skipping the first observation
func placeChangepoints(t []float64, k int, share float64) []float64 {
	hist := int(math.Floor(float64(len(t)) * share))
	if hist < 2 || k < 1 {
		return nil
	}
	k = min(k, hist-1)
	var out []float64
	for i := 1; i <= k; i++ {
		idx := int(math.Round(float64(i) * float64(hist-1) / float64(k)))
		out = append(out, t[idx])
	}
	return out
}

func (f *decompositionFit) predict(dates []time.Time) []float64 {
	years := features.NewCalendar(dates).Years
	out := make([]float64, len(dates))
	for i, yr := range years {
		row := f.row(f.scaledTime(yr), yr)
		v := 0.0
		for j, c := range f.coef {
			v += c * row[j]
		}
		out[i] = v * f.scale
	}
	return out
}

func (f *decompositionFit) Params() map[string]float64 {
	params := map[string]float64{
		"offset": f.coef[0] * f.scale,
		"slope":  f.coef[1] * f.scale,
		"sigma":  f.sigma,
	}
	for i := range f.changepoints {
		params[fmt.Sprintf("delta%d", i+1)] = f.coef[2+i] * f.scale
	}
	base := 2 + len(f.changepoints)
	for k := 0; k < f.opts.FourierOrder; k++ {
		params[fmt.Sprintf("sin%d", k+1)] = f.coef[base+2*k] * f.scale
		params[fmt.Sprintf("cos%d", k+1)] = f.coef[base+2*k+1] * f.scale
	}
	return params
}

func (f *decompositionFit) FittedValues() []float64 {
	return append([]float64(nil), f.fitted...)
}

// Forecast extends the last trend segment and the seasonal pattern
func (f *decompositionFit) Forecast(h int, level float64) (ForecastResult, error) {
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
