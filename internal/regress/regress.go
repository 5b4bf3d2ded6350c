// Package regress provides the least-squares solvers shared by the
// stationarity test and the forecasting models.
package regress

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when the design matrix has no unique solution
var ErrSingular = errors.New("design matrix is singular")

// Result is a fitted linear regression
type Result struct {
	Coef      []float64
	Fitted    []float64
	Residuals []float64
	SSR       float64
	N         int // observations
	P         int // regressors

	x *mat.Dense
}

// OLS solves min ||y - Xb||² by QR decomposition
func OLS(x *mat.Dense, y []float64) (*Result, error) {
	n, p := x.Dims()
	if err := checkShape(n, p, len(y)); err != nil {
		return nil, err
	}
	if n < p {
		return nil, fmt.Errorf("ols: %d observations for %d regressors", n, p)
	}

	var qr mat.QR
	qr.Factorize(x)

	var b mat.VecDense
	if err := qr.SolveVecTo(&b, false, mat.NewVecDense(n, y)); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, fmt.Errorf("ols: %w (condition %.3g)", ErrSingular, float64(cond))
		}
		return nil, fmt.Errorf("ols: %w", err)
	}

	return newResult(x, y, b.RawVector().Data)
}

// Ridge solves min ||y - Xb||² + Σ penalty_j b_j² through the normal
// equations. A zero penalty leaves that coefficient unpenalised.
func Ridge(x *mat.Dense, y []float64, penalty []float64) (*Result, error) {
	n, p := x.Dims()
	if err := checkShape(n, p, len(y)); err != nil {
		return nil, err
	}
	if len(penalty) != p {
		return nil, fmt.Errorf("ridge: %d penalties for %d regressors", len(penalty), p)
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	for j, lambda := range penalty {
		if lambda < 0 || math.IsNaN(lambda) {
			return nil, fmt.Errorf("ridge: penalty %d is %v", j, lambda)
		}
		xtx.SetSym(j, j, xtx.At(j, j)+lambda)
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), mat.NewVecDense(n, y))

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, fmt.Errorf("ridge: %w", ErrSingular)
	}

	var b mat.VecDense
	if err := chol.SolveVecTo(&b, &xty); err != nil {
		return nil, fmt.Errorf("ridge: %w", err)
	}

	return newResult(x, y, b.RawVector().Data)
}

func checkShape(n, p, ny int) error {
	if n == 0 || p == 0 {
		return fmt.Errorf("regression needs a non-empty design matrix, got %dx%d", n, p)
	}
	if n != ny {
		return fmt.Errorf("design matrix has %d rows but response has %d values", n, ny)
	}
	return nil
}

func newResult(x *mat.Dense, y, coef []float64) (*Result, error) {
	n, p := x.Dims()
	r := &Result{
		Coef:      append([]float64(nil), coef...),
		Fitted:    make([]float64, n),
		Residuals: make([]float64, n),
		N:         n,
		P:         p,
		x:         x,
	}
	for i := 0; i < n; i++ {
		r.Fitted[i] = mat.Dot(x.RowView(i), mat.NewVecDense(p, r.Coef))
		r.Residuals[i] = y[i] - r.Fitted[i]
		r.SSR += r.Residuals[i] * r.Residuals[i]
	}
	for _, c := range r.Coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("regression produced non-finite coefficients: %w", ErrSingular)
		}
	}
	return r, nil
}

// DF is the residual degrees of freedom
func (r *Result) DF() int { return r.N - r.P }

// Sigma2 is the unbiased residual variance, or the ML estimate when no
// degrees of freedom remain
func (r *Result) Sigma2() float64 {
	if r.DF() <= 0 {
		return r.SSR / float64(r.N)
	}
	return r.SSR / float64(r.DF())
}

// StdErr returns the OLS standard errors of the coefficients
func (r *Result) StdErr() ([]float64, error) {
	var xtx mat.SymDense
	xtx.SymOuterK(1, r.x.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, ErrSingular
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("invert normal matrix: %w", err)
	}

	s2 := r.Sigma2()
	se := make([]float64, r.P)
	for j := range se {
		se[j] = math.Sqrt(s2 * inv.At(j, j))
	}
	return se, nil
}

// LogLikelihood is the Gaussian log-likelihood at the ML variance
func (r *Result) LogLikelihood() float64 {
	n := float64(r.N)
	return -n / 2 * (math.Log(2*math.Pi) + math.Log(r.SSR/n) + 1)
}

// AIC is the Akaike information criterion
func (r *Result) AIC() float64 {
	return -2*r.LogLikelihood() + 2*float64(r.P)
}

// Predict evaluates the fitted coefficients on new rows
func (r *Result) Predict(x *mat.Dense) []float64 {
	n, p := x.Dims()
	out := make([]float64, n)
	coef := mat.NewVecDense(p, r.Coef)
	for i := 0; i < n; i++ {
		out[i] = mat.Dot(x.RowView(i), coef)
	}
	return out
}

// Design builds a row-major design matrix from per-row regressor slices
func Design(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	p := len(rows[0])
	data := make([]float64, 0, len(rows)*p)
	for _, row := range rows {
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), p, data)
}
