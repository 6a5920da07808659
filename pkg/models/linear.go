package models

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DefaultRidge is the L2 penalty used when none is configured. It is small
// enough not to bias well-conditioned fits and keeps constant feature
// columns from making the normal equations singular.
const DefaultRidge = 1e-6

// LinearRegressor fits one ridge-regularized least-squares model per output,
// sharing the design matrix:
//
//	minimize ||Y - XB - 1b||² + λ||B||²
//
// The intercept b is not penalized: X and Y are centered before solving and
// b is recovered from the column means.
type LinearRegressor struct {
	ridge float64

	coef      *mat.Dense // d×k
	intercept []float64  // k
}

// NewLinearRegressor creates an unfitted regressor with penalty ridge.
// Negative values are treated as 0.
func NewLinearRegressor(ridge float64) *LinearRegressor {
	if ridge < 0 {
		ridge = 0
	}
	return &LinearRegressor{ridge: ridge}
}

// Name returns the model identifier.
func (m *LinearRegressor) Name() string {
	return "linear"
}

// Fit solves the normal equations (XcᵀXc + λI)B = XcᵀYc with a Cholesky
// factorization.
func (m *LinearRegressor) Fit(ctx context.Context, X, Y [][]float64) error {
	n, d, k, err := checkFit(X, Y)
	if err != nil {
		return fmt.Errorf("linear: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	xMean := columnMeans(X, d)
	yMean := columnMeans(Y, k)

	xc := mat.NewDense(n, d, nil)
	yc := mat.NewDense(n, k, nil)
	for i := range n {
		for j := range d {
			xc.Set(i, j, X[i][j]-xMean[j])
		}
		for j := range k {
			yc.Set(i, j, Y[i][j]-yMean[j])
		}
	}

	var xtx mat.Dense
	xtx.Mul(xc.T(), xc)
	gram := mat.NewSymDense(d, nil)
	for i := range d {
		for j := i; j < d; j++ {
			v := xtx.At(i, j)
			if i == j {
				v += m.ridge
			}
			gram.SetSym(i, j, v)
		}
	}

	var xty mat.Dense
	xty.Mul(xc.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return fmt.Errorf("linear: normal equations are singular (ridge=%g)", m.ridge)
	}

	coef := mat.NewDense(d, k, nil)
	if err := chol.SolveTo(coef, &xty); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("linear: solve: %w", err)
		}
		// Ill-conditioned but solved; keep the coefficients.
	}

	intercept := make([]float64, k)
	for j := range k {
		b := yMean[j]
		for i := range d {
			b -= xMean[i] * coef.At(i, j)
		}
		intercept[j] = b
	}

	m.coef = coef
	m.intercept = intercept
	return nil
}

// Predict evaluates XB + b.
func (m *LinearRegressor) Predict(ctx context.Context, X [][]float64) ([][]float64, error) {
	if m.coef == nil {
		return nil, fmt.Errorf("linear: %w", ErrNotFitted)
	}
	if len(X) == 0 {
		return [][]float64{}, nil
	}

	d, k := m.coef.Dims()
	n, cols, err := dims("X", X)
	if err != nil {
		return nil, fmt.Errorf("linear: %w", err)
	}
	if cols != d {
		return nil, fmt.Errorf("linear: X has %d columns, model was fitted on %d", cols, d)
	}

	xm := mat.NewDense(n, d, nil)
	for i := range n {
		xm.SetRow(i, X[i])
	}

	var pred mat.Dense
	pred.Mul(xm, m.coef)

	out := make([][]float64, n)
	for i := range n {
		row := make([]float64, k)
		for j := range k {
			row[j] = pred.At(i, j) + m.intercept[j]
		}
		out[i] = row
	}
	return out, nil
}

// Coefficients returns a copy of the fitted d×k coefficient matrix and the
// k intercepts.
func (m *LinearRegressor) Coefficients() (coef [][]float64, intercept []float64) {
	if m.coef == nil {
		return nil, nil
	}
	d, k := m.coef.Dims()
	coef = make([][]float64, d)
	for i := range d {
		coef[i] = mat.Row(nil, i, m.coef)
	}
	intercept = make([]float64, k)
	copy(intercept, m.intercept)
	return coef, intercept
}

func columnMeans(m [][]float64, cols int) []float64 {
	means := make([]float64, cols)
	for _, row := range m {
		for j := range cols {
			means[j] += row[j]
		}
	}
	for j := range means {
		means[j] /= float64(len(m))
	}
	return means
}
