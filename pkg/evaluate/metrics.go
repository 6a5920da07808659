// Package evaluate scores multi-output predictions and compares a model
// against the mean baseline.
//
// Metrics follow the scikit-learn definitions with uniform averaging over
// outputs, so numbers line up with notebooks run on the same data.
package evaluate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// mapeEpsilon is the smallest denominator used by MAPE (float64 machine epsilon).
const mapeEpsilon = 2.220446049250313e-16

// ErrShape is returned when truth and prediction matrices do not line up.
var ErrShape = errors.New("shape mismatch")

// Metrics are regression scores averaged uniformly over outputs.
type Metrics struct {
	MSE  float64
	RMSE float64
	MAE  float64
	MAPE float64
	R2   float64
}

// Compute scores yPred against yTrue.
//
// MAPE divides by max(|y|, eps), so zero targets yield very large values
// rather than Inf. R² of an output with constant truth is 1 if predicted
// exactly and 0 otherwise.
func Compute(yTrue, yPred [][]float64) (Metrics, error) {
	n := len(yTrue)
	if n == 0 {
		return Metrics{}, fmt.Errorf("%w: no rows", ErrShape)
	}
	if len(yPred) != n {
		return Metrics{}, fmt.Errorf("%w: %d true rows, %d predicted", ErrShape, n, len(yPred))
	}
	k := len(yTrue[0])
	if k == 0 {
		return Metrics{}, fmt.Errorf("%w: zero outputs", ErrShape)
	}
	for i := range n {
		if len(yTrue[i]) != k || len(yPred[i]) != k {
			return Metrics{}, fmt.Errorf("%w: row %d does not have %d outputs", ErrShape, i, k)
		}
	}

	var m Metrics
	truth := make([]float64, n)
	for j := range k {
		var se, ae, ape, ssRes float64
		for i := range n {
			y, p := yTrue[i][j], yPred[i][j]
			d := y - p
			se += d * d
			ae += math.Abs(d)
			ape += math.Abs(d) / math.Max(math.Abs(y), mapeEpsilon)
			truth[i] = y
		}
		ssRes = se

		mean := stat.Mean(truth, nil)
		var ssTot float64
		for _, y := range truth {
			ssTot += (y - mean) * (y - mean)
		}

		m.MSE += se / float64(n)
		m.MAE += ae / float64(n)
		m.MAPE += ape / float64(n)
		m.R2 += r2(ssRes, ssTot)
	}

	m.MSE /= float64(k)
	m.MAE /= float64(k)
	m.MAPE /= float64(k)
	m.R2 /= float64(k)
	m.RMSE = math.Sqrt(m.MSE)
	return m, nil
}

func r2(ssRes, ssTot float64) float64 {
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}
