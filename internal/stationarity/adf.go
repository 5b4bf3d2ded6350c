package stationarity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	apierrors "wellcast/internal/errors"
	"wellcast/internal/regress"
)

// AutoLag selects the lag order by AIC up to Schwert's maximum
const AutoLag = -1

// Result is the outcome of an augmented Dickey-Fuller test with constant
type Result struct {
	Statistic      float64            `json:"statistic"`
	PValue         float64            `json:"p_value"`
	Lags           int                `json:"lags"`
	NObs           int                `json:"nobs"`
	CriticalValues map[string]float64 `json:"critical_values"`
	Stationary     bool               `json:"stationary"`
}

// ADF tests values for a unit root with the regression
//
//	Δy_t = α + γ·y_{t-1} + Σ_{i=1..k} δ_i·Δy_{t-i} + ε_t
//
// and reports γ̂/se(γ̂). With lags == AutoLag the order is chosen by AIC
// over 0..schwert(n) on a common sample, then the test is refit on every
// usable observation. Stationary means the statistic is below the 5%
// critical value.
func ADF(values []float64, lags int) (Result, error) {
	n := len(values)
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Result{}, apierrors.InvalidInput("adf", fmt.Sprintf("value %d is not finite", i))
		}
	}

	maxLag := maxLagFor(n)
	if maxLag < 0 {
		return Result{}, apierrors.InvalidInput("adf",
			fmt.Sprintf("need at least 6 observations, got %d", n))
	}

	k := lags
	switch {
	case lags == AutoLag:
		best, err := selectLag(values, maxLag)
		if err != nil {
			return Result{}, err
		}
		k = best
	case lags < 0:
		return Result{}, apierrors.InvalidInput("adf", fmt.Sprintf("invalid lag order %d", lags))
	case lags > maxLag:
		return Result{}, apierrors.InvalidInput("adf",
			fmt.Sprintf("lag order %d too large for %d observations (max %d)", lags, n, maxLag))
	}

	res, err := fitADF(values, k, k)
	if err != nil {
		return Result{}, err
	}
	if res.SSR == 0 {
		return Result{}, apierrors.InvalidInput("adf", "series is deterministic; the test statistic is undefined")
	}

	se, err := res.StdErr()
	if err != nil {
		return Result{}, apierrors.InvalidInput("adf", err.Error())
	}

	stat := res.Coef[1] / se[1]
	crit := CriticalValues(res.N)
	return Result{
		Statistic:      stat,
		PValue:         PValue(stat),
		Lags:           k,
		NObs:           res.N,
		CriticalValues: crit,
		Stationary:     stat < crit["5%"],
	}, nil
}

// SchwertLag is the rule-of-thumb maximum lag 12·(n/100)^¼
func SchwertLag(n int) int {
	return int(math.Floor(12 * math.Pow(float64(n)/100, 0.25)))
}

// maxLagFor caps Schwert's rule so the regression keeps enough degrees
// of freedom
func maxLagFor(n int) int {
	if n < 6 {
		return -1
	}
	return min(SchwertLag(n), n/2-2)
}

// fitADF runs the regression with k lagged differences, dropping the
// first skip differences so models with different k share a sample.
func fitADF(values []float64, k, skip int) (*regress.Result, error) {
	dy := make([]float64, len(values)-1)
	for i := range dy {
		dy[i] = values[i+1] - values[i]
	}

	var rows [][]float64
	var y []float64
	for t := skip; t < len(dy); t++ {
		row := make([]float64, 0, 2+k)
		row = append(row, 1, values[t])
		for i := 1; i <= k; i++ {
			row = append(row, dy[t-i])
		}
		rows = append(rows, row)
		y = append(y, dy[t])
	}

	if len(rows) <= 2+k {
		return nil, apierrors.InvalidInput("adf",
			fmt.Sprintf("%d usable observations for %d regressors", len(rows), 2+k))
	}

	res, err := regress.OLS(regress.Design(rows), y)
	if err != nil {
		return nil, apierrors.InvalidInput("adf", err.Error())
	}
	return res, nil
}

func selectLag(values []float64, maxLag int) (int, error) {
	best, bestAIC := 0, math.Inf(1)
	for k := 0; k <= maxLag; k++ {
		res, err := fitADF(values, k, maxLag)
		if err != nil {
			if k == 0 {
				return 0, err
			}
			break
		}
		if aic := res.AIC(); aic < bestAIC {
			best, bestAIC = k, aic
		}
	}
	return best, nil
}

// MacKinnon (2010) response surface coefficients for the constant-only
// case with one variable: β∞ + β1/T + β2/T² + β3/T³
var critSurface = map[string][4]float64{
	"1%":  {-3.43035, -6.5393, -16.786, -79.433},
	"5%":  {-2.86154, -2.8903, -4.234, -40.04},
	"10%": {-2.56677, -1.5384, -2.809, 0},
}

// CriticalValues returns the finite-sample critical values for nobs
func CriticalValues(nobs int) map[string]float64 {
	inv := 1 / float64(nobs)
	out := make(map[string]float64, len(critSurface))
	for level, b := range critSurface {
		out[level] = b[0] + inv*(b[1]+inv*(b[2]+inv*b[3]))
	}
	return out
}

// MacKinnon (1994) approximate p-value surface for the constant-only case
const (
	tauMax  = 2.74
	tauMin  = -18.83
	tauStar = -1.61
)

var (
	tauSmallP = []float64{2.1659, 1.4412, 0.038269}
	tauLargeP = []float64{1.7339, 0.93202, -0.12745, -0.010368}
)

// PValue approximates the asymptotic p-value of an ADF statistic
func PValue(stat float64) float64 {
	switch {
	case math.IsNaN(stat):
		return math.NaN()
	case stat > tauMax:
		return 1
	case stat < tauMin:
		return 0
	}
	coef := tauLargeP
	if stat <= tauStar {
		coef = tauSmallP
	}
	return distuv.UnitNormal.CDF(polyval(coef, stat))
}

// polyval evaluates c[0] + c[1]x + c[2]x² + ...
func polyval(c []float64, x float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}
