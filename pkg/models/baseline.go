package models

import (
	"context"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// MeanBaseline predicts the per-output mean of the training targets for
// every input row. It is the reference every real model is compared to.
type MeanBaseline struct {
	means []float64
}

// NewMeanBaseline creates an unfitted baseline.
func NewMeanBaseline() *MeanBaseline {
	return &MeanBaseline{}
}

// Name returns the model identifier.
func (m *MeanBaseline) Name() string {
	return "baseline"
}

// Fit records the column means of Y. X only needs to match Y's row count.
func (m *MeanBaseline) Fit(ctx context.Context, X, Y [][]float64) error {
	n, _, k, err := checkFit(X, Y)
	if err != nil {
		return fmt.Errorf("baseline: %w", err)
	}

	means := make([]float64, k)
	col := make([]float64, n)
	for j := range k {
		for i := range n {
			col[i] = Y[i][j]
		}
		means[j] = stat.Mean(col, nil)
	}
	m.means = means
	return nil
}

// Predict repeats the fitted means once per row of X.
func (m *MeanBaseline) Predict(ctx context.Context, X [][]float64) ([][]float64, error) {
	if m.means == nil {
		return nil, fmt.Errorf("baseline: %w", ErrNotFitted)
	}
	out := make([][]float64, len(X))
	for i := range X {
		out[i] = slices.Clone(m.means)
	}
	return out, nil
}

// Means returns a copy of the fitted per-output means.
func (m *MeanBaseline) Means() []float64 {
	return slices.Clone(m.means)
}
