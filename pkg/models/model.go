// Package models provides the multi-output regressors that map window
// features to the next two buckets' rate statistics.
//
// All regressors share the [Regressor] contract: Fit learns from a row-major
// feature matrix X (N×d) and target matrix Y (N×k), Predict returns one
// k-wide row per input row. Implementations:
//   - MeanBaseline: predicts the per-output mean of the training targets
//   - LinearRegressor: multi-output ridge least squares
//   - BYOMRegressor: delegates fit and predict to an external HTTP service
//
// Pipeline composes sanitizing, MinMax scaling and a regressor the way the
// pipeline trains and serves its submission model.
package models

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrNotFitted is returned by Predict before a successful Fit.
var ErrNotFitted = errors.New("model not fitted")

// Regressor is a multi-output regression model.
type Regressor interface {
	// Name returns the model identifier, e.g. "linear".
	Name() string

	// Fit trains the model. X and Y must have the same number of rows.
	Fit(ctx context.Context, X, Y [][]float64) error

	// Predict returns one output row per row of X.
	Predict(ctx context.Context, X [][]float64) ([][]float64, error)
}

// Sanitize returns a copy of m with NaN and ±Inf replaced by 0.
func Sanitize(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		r := make([]float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			r[j] = v
		}
		out[i] = r
	}
	return out
}

// dims validates that m is a non-empty rectangular matrix and returns its shape.
func dims(name string, m [][]float64) (rows, cols int, err error) {
	if len(m) == 0 {
		return 0, 0, fmt.Errorf("%s: empty matrix", name)
	}
	cols = len(m[0])
	if cols == 0 {
		return 0, 0, fmt.Errorf("%s: zero columns", name)
	}
	for i, row := range m {
		if len(row) != cols {
			return 0, 0, fmt.Errorf("%s: row %d has %d columns, want %d", name, i, len(row), cols)
		}
	}
	return len(m), cols, nil
}

// checkFit validates a training pair.
func checkFit(X, Y [][]float64) (n, d, k int, err error) {
	n, d, err = dims("X", X)
	if err != nil {
		return 0, 0, 0, err
	}
	ny, k, err := dims("Y", Y)
	if err != nil {
		return 0, 0, 0, err
	}
	if ny != n {
		return 0, 0, 0, fmt.Errorf("X has %d rows but Y has %d", n, ny)
	}
	return n, d, k, nil
}
