package models

import (
	"context"
	"fmt"
	"math"

	apierrors "wellcast/internal/errors"
	"wellcast/internal/regress"
	"wellcast/internal/series"
)

// ARIMAOrder is the (p, d, q) order of an ARIMA model
type ARIMAOrder struct {
	P int
	D int
	Q int
}

func (o ARIMAOrder) String() string {
	return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
}

// ARIMA fits an ARIMA(p,d,q) model with constant by the Hannan-Rissanen
// two-stage regression: a long autoregression estimates the innovations,
// then the differenced series is regressed on its own lags and the lagged
// innovation estimates.
type ARIMA struct {
	name  string
	order ARIMAOrder
}

// NewARIMA creates an ARIMA model
func NewARIMA(name string, order ARIMAOrder) *ARIMA {
	return &ARIMA{name: name, order: order}
}

func (m *ARIMA) Name() string { return m.name }
func (m *ARIMA) Kind() Kind   { return KindARIMA }

// Fit estimates the model on s
func (m *ARIMA) Fit(ctx context.Context, s series.Series) (Fitted, error) {
	if s.Empty() {
		return nil, apierrors.EmptySeries("fit " + m.name)
	}
	if err := checkFinite(s); err != nil {
		return nil, err
	}
	p, d, q := m.order.P, m.order.D, m.order.Q
	if p < 0 || d < 0 || q < 0 {
		return nil, fmt.Errorf("invalid order %s", m.order)
	}

	levels := differences(s.Values(), d)
	w := levels[d]
	n := len(w)

	start := p
	var innov []float64
	if q > 0 {
		longOrder := longAROrder(n, p, q)
		var err error
		innov, err = longARResiduals(w, longOrder)
		if err != nil {
			return nil, fmt.Errorf("%s innovations: %w", m.order, err)
		}
		start = max(p, longOrder+q)
	}

	regressors := 1 + p + q
	if n-start <= regressors {
		return nil, fmt.Errorf("%s needs more than %d observations after differencing, got %d",
			m.order, start+regressors, n)
	}

	var rows [][]float64
	var y []float64
	for t := start; t < n; t++ {
		row := make([]float64, 0, regressors)
		row = append(row, 1)
		for i := 1; i <= p; i++ {
			row = append(row, w[t-i])
		}
		for j := 1; j <= q; j++ {
			row = append(row, innov[t-j])
		}
		rows = append(rows, row)
		y = append(y, w[t])
	}

	res, err := regress.OLS(regress.Design(rows), y)
	if err != nil {
		return nil, fmt.Errorf("%s regression: %w", m.order, err)
	}

	f := &arimaFit{
		base:   newBase(m.name, KindARIMA, s),
		order:  m.order,
		levels: levels,
		c:      res.Coef[0],
		phi:    append([]float64(nil), res.Coef[1:1+p]...),
		theta:  append([]float64(nil), res.Coef[1+p:]...),
		sigma2: res.Sigma2(),
	}
	if err := f.filter(); err != nil {
		return nil, err
	}
	return f, nil
}

type arimaFit struct {
	base
	order  ARIMAOrder
	levels [][]float64 // levels[k] is the k-th difference of the series
	c      float64
	phi    []float64
	theta  []float64
	sigma2 float64

	resid  []float64 // one-step innovations of the differenced series
	fitted []float64
}

// filter runs the fitted recursion over the sample to recover the
// innovations and the in-sample one-step predictions
func (f *arimaFit) filter() error {
	w := f.levels[f.order.D]
	n := len(w)
	p := f.order.P

	f.resid = make([]float64, n)
	y := f.levels[0]
	f.fitted = make([]float64, len(y))
	for i := range f.fitted {
		f.fitted[i] = math.NaN()
	}

	for t := p; t < n; t++ {
		pred := f.predict(w, f.resid, t)
		f.resid[t] = w[t] - pred
		if !finite(f.resid[t]) {
			return fmt.Errorf("%s recursion diverged at observation %d", f.order, t)
		}
		// the one-step prediction of y differs from y by the same innovation
		f.fitted[t+f.order.D] = y[t+f.order.D] - f.resid[t]
	}
	return nil
}

// predict is the conditional mean of w[t] given the past
func (f *arimaFit) predict(w, e []float64, t int) float64 {
	pred := f.c
	for i, phi := range f.phi {
		pred += phi * w[t-i-1]
	}
	for j, theta := range f.theta {
		if t-j-1 >= 0 {
			pred += theta * e[t-j-1]
		}
	}
	return pred
}

func (f *arimaFit) Params() map[string]float64 {
	params := map[string]float64{
		"const":  f.c,
		"sigma2": f.sigma2,
		"p":      float64(f.order.P),
		"d":      float64(f.order.D),
		"q":      float64(f.order.Q),
	}
	for i, v := range f.phi {
		params[fmt.Sprintf("ar%d", i+1)] = v
	}
	for j, v := range f.theta {
		params[fmt.Sprintf("ma%d", j+1)] = v
	}
	return params
}

func (f *arimaFit) FittedValues() []float64 {
	return append([]float64(nil), f.fitted...)
}

// Forecast iterates the recursion with zero future innovations, then
// integrates d times. Interval variance at step h is σ²·Σ_{j<h} ψ_j².
func (f *arimaFit) Forecast(h int, level float64) (ForecastResult, error) {
	if err := checkForecastArgs(h, level); err != nil {
		return ForecastResult{}, err
	}

	d := f.order.D
	w := append([]float64(nil), f.levels[d]...)
	e := append([]float64(nil), f.resid...)
	n := len(w)
	for k := 0; k < h; k++ {
		w = append(w, f.predict(w, e, n+k))
		e = append(e, 0)
	}
	point := w[n:]

	for lvl := d - 1; lvl >= 0; lvl-- {
		last := f.levels[lvl][len(f.levels[lvl])-1]
		integrated := make([]float64, h)
		for k := 0; k < h; k++ {
			prev := last
			if k > 0 {
				prev = integrated[k-1]
			}
			integrated[k] = prev + point[k]
		}
		point = integrated
	}

	psi := psiWeights(f.phi, f.theta, d, h)
	z := zValue(level)
	lower := make([]float64, h)
	upper := make([]float64, h)
	cum := 0.0
	for k := 0; k < h; k++ {
		cum += psi[k] * psi[k]
		half := z * math.Sqrt(f.sigma2*cum)
		lower[k] = point[k] - half
		upper[k] = point[k] + half
	}

	return f.result(h, level, point, lower, upper, f.Params())
}

// differences returns the series and its first d differences
func differences(y []float64, d int) [][]float64 {
	levels := make([][]float64, d+1)
	levels[0] = append([]float64(nil), y...)
	for k := 1; k <= d; k++ {
		prev := levels[k-1]
		if len(prev) < 2 {
			levels[k] = nil
			continue
		}
		cur := make([]float64, len(prev)-1)
		for i := range cur {
			cur[i] = prev[i+1] - prev[i]
		}
		levels[k] = cur
	}
	return levels
}

// longAROrder picks the order of the innovation-estimating autoregression
func longAROrder(n, p, q int) int {
	m := int(math.Ceil(10 * math.Log10(float64(max(n, 1)))))
	m = min(m, n/4)
	return max(m, p+q, 1)
}

// longARResiduals fits AR(m) with constant and returns its residuals,
// zero before the first usable observation
func longARResiduals(w []float64, m int) ([]float64, error) {
	n := len(w)
	if n-m <= m+1 {
		return nil, fmt.Errorf("AR(%d) needs more than %d observations, got %d", m, 2*m+1, n)
	}

	var rows [][]float64
	var y []float64
	for t := m; t < n; t++ {
		row := make([]float64, 0, m+1)
		row = append(row, 1)
		for i := 1; i <= m; i++ {
			row = append(row, w[t-i])
		}
		rows = append(rows, row)
		y = append(y, w[t])
	}

	res, err := regress.OLS(regress.Design(rows), y)
	if err != nil {
		return nil, err
	}

	resid := make([]float64, n)
	copy(resid[m:], res.Residuals)
	return resid, nil
}

// psiWeights returns ψ_0..ψ_{h-1} of the MA(∞) form of the integrated
// model φ(B)(1-B)^d y_t = θ(B) e_t
func psiWeights(phi, theta []float64, d, h int) []float64 {
	// coefficients of φ(B)(1-B)^d as 1 + a_1 B + a_2 B² + ...
	poly := make([]float64, len(phi)+1)
	poly[0] = 1
	for i, v := range phi {
		poly[i+1] = -v
	}
	for k := 0; k < d; k++ {
		next := make([]float64, len(poly)+1)
		for i, v := range poly {
			next[i] += v
			next[i+1] -= v
		}
		poly = next
	}
	phiStar := make([]float64, len(poly)-1)
	for i := range phiStar {
		phiStar[i] = -poly[i+1]
	}

	psi := make([]float64, h)
	psi[0] = 1
	for j := 1; j < h; j++ {
		v := 0.0
		if j <= len(theta) {
			v = theta[j-1]
		}
		for i := 1; i <= min(j, len(phiStar)); i++ {
			v += phiStar[i-1] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}
