package evaluation

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Metric names accepted by Metrics.Value and Report.Ranked
const (
	MetricRMSE  = "rmse"
	MetricMAE   = "mae"
	MetricMAPE  = "mape"
	MetricSMAPE = "smape"
	MetricMASE  = "mase"
	MetricME    = "me"
	MetricRSQ   = "rsq"
)

// MetricNames lists the metrics in report column order
var MetricNames = []string{MetricRMSE, MetricMAE, MetricMAPE, MetricSMAPE, MetricMASE, MetricME, MetricRSQ}

// Metrics are point-error statistics over the finite (actual, predicted)
// pairs of one partition. Undefined values are NaN.
type Metrics struct {
	N     int     `json:"n"`
	RMSE  float64 `json:"rmse"`
	MAE   float64 `json:"mae"`
	MAPE  float64 `json:"mape"`  // percent, zero actuals skipped
	SMAPE float64 `json:"smape"` // percent
	MASE  float64 `json:"mase"`
	ME    float64 `json:"me"`
	RSQ   float64 `json:"rsq"`
}

// Value returns the named metric
func (m Metrics) Value(name string) (float64, bool) {
	switch strings.ToLower(name) {
	case MetricRMSE:
		return m.RMSE, true
	case MetricMAE:
		return m.MAE, true
	case MetricMAPE:
		return m.MAPE, true
	case MetricSMAPE:
		return m.SMAPE, true
	case MetricMASE:
		return m.MASE, true
	case MetricME:
		return m.ME, true
	case MetricRSQ:
		return m.RSQ, true
	}
	return math.NaN(), false
}

// MarshalJSON writes undefined metrics as null
func (m Metrics) MarshalJSON() ([]byte, error) {
	type wire struct {
		N     int      `json:"n"`
		RMSE  *float64 `json:"rmse"`
		MAE   *float64 `json:"mae"`
		MAPE  *float64 `json:"mape"`
		SMAPE *float64 `json:"smape"`
		MASE  *float64 `json:"mase"`
		ME    *float64 `json:"me"`
		RSQ   *float64 `json:"rsq"`
	}
	return json.Marshal(wire{
		N:     m.N,
		RMSE:  nullable(m.RMSE),
		MAE:   nullable(m.MAE),
		MAPE:  nullable(m.MAPE),
		SMAPE: nullable(m.SMAPE),
		MASE:  nullable(m.MASE),
		ME:    nullable(m.ME),
		RSQ:   nullable(m.RSQ),
	})
}

func nullable(v float64) *float64 {
	if !finite(v) {
		return nil
	}
	return &v
}

func emptyMetrics() Metrics {
	nan := math.NaN()
	return Metrics{RMSE: nan, MAE: nan, MAPE: nan, SMAPE: nan, MASE: nan, ME: nan, RSQ: nan}
}

// Compute scores predicted against actual. scale is the MASE denominator,
// usually NaiveScale of the training values.
func Compute(actual, predicted []float64, scale float64) Metrics {
	var a, p []float64
	for i := 0; i < len(actual) && i < len(predicted); i++ {
		if finite(actual[i]) && finite(predicted[i]) {
			a = append(a, actual[i])
			p = append(p, predicted[i])
		}
	}
	m := emptyMetrics()
	m.N = len(a)
	if m.N == 0 {
		return m
	}

	errs := make([]float64, m.N)
	floats.SubTo(errs, a, p)
	n := float64(m.N)

	sse := floats.Dot(errs, errs)
	m.RMSE = math.Sqrt(sse / n)
	m.MAE = floats.Norm(errs, 1) / n
	m.ME = floats.Sum(errs) / n

	var pctSum, symSum float64
	var pctN, symN int
	for i, e := range errs {
		if a[i] != 0 {
			pctSum += math.Abs(e / a[i])
			pctN++
		}
		if denom := math.Abs(a[i]) + math.Abs(p[i]); denom != 0 {
			symSum += 2 * math.Abs(e) / denom
			symN++
		}
	}
	if pctN > 0 {
		m.MAPE = 100 * pctSum / float64(pctN)
	}
	if symN > 0 {
		m.SMAPE = 100 * symSum / float64(symN)
	}

	if finite(scale) && scale > 0 {
		m.MASE = m.MAE / scale
	}

	mean := floats.Sum(a) / n
	sst := 0.0
	for _, v := range a {
		sst += (v - mean) * (v - mean)
	}
	if sst > 0 {
		m.RSQ = 1 - sse/sst
	}
	return m
}

// NaiveScale is the in-sample mean absolute one-step change of values,
// skipping pairs with a non-finite member
func NaiveScale(values []float64) float64 {
	sum, n := 0.0, 0
	for i := 1; i < len(values); i++ {
		if finite(values[i]) && finite(values[i-1]) {
			sum += math.Abs(values[i] - values[i-1])
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// better reports whether a ranks ahead of b for metric. NaN ranks last.
func better(metric string, a, b float64) bool {
	if math.IsNaN(b) {
		return !math.IsNaN(a)
	}
	if math.IsNaN(a) {
		return false
	}
	switch metric {
	case MetricRSQ:
		return a > b
	case MetricME:
		return math.Abs(a) < math.Abs(b)
	}
	return a < b
}

func sortEntries(entries []Entry, metric string) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, _ := entries[i].Test.Value(metric)
		b, _ := entries[j].Test.Value(metric)
		return better(metric, a, b)
	})
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
