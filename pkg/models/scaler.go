package models

import (
	"fmt"
	"math"
)

// MinMaxScaler maps every feature column to [0, 1] using the minimum and
// maximum seen during Fit. Constant columns map to 0. Values outside the
// fitted range are not clipped.
type MinMaxScaler struct {
	min   []float64
	scale []float64
}

// Fit records per-column minimum and range.
func (s *MinMaxScaler) Fit(X [][]float64) error {
	_, d, err := dims("X", X)
	if err != nil {
		return fmt.Errorf("scaler: %w", err)
	}

	lo := make([]float64, d)
	hi := make([]float64, d)
	for j := range d {
		lo[j], hi[j] = math.Inf(1), math.Inf(-1)
	}
	for _, row := range X {
		for j, v := range row {
			lo[j] = math.Min(lo[j], v)
			hi[j] = math.Max(hi[j], v)
		}
	}

	scale := make([]float64, d)
	for j := range d {
		if r := hi[j] - lo[j]; r > 0 {
			scale[j] = 1 / r
		}
	}

	s.min, s.scale = lo, scale
	return nil
}

// Transform returns a scaled copy of X.
func (s *MinMaxScaler) Transform(X [][]float64) ([][]float64, error) {
	if s.min == nil {
		return nil, fmt.Errorf("scaler: %w", ErrNotFitted)
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(s.min) {
			return nil, fmt.Errorf("scaler: row %d has %d columns, want %d", i, len(row), len(s.min))
		}
		r := make([]float64, len(row))
		for j, v := range row {
			r[j] = (v - s.min[j]) * s.scale[j]
		}
		out[i] = r
	}
	return out, nil
}

// FitTransform is Fit followed by Transform.
func (s *MinMaxScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
