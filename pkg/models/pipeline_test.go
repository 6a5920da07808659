package models

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestSanitize(t *testing.T) {
	in := [][]float64{{1, math.NaN()}, {math.Inf(1), math.Inf(-1)}, {}}
	out := Sanitize(in)

	want := [][]float64{{1, 0}, {0, 0}, {}}
	for i := range want {
		if len(out[i]) != len(want[i]) {
			t.Fatalf("row %d len = %d, want %d", i, len(out[i]), len(want[i]))
		}
		for j := range want[i] {
			if out[i][j] != want[i][j] {
				t.Errorf("out[%d][%d] = %v, want %v", i, j, out[i][j], want[i][j])
			}
		}
	}
	if !math.IsNaN(in[0][1]) {
		t.Error("Sanitize() must not modify its input")
	}
}

func TestMinMaxScaler(t *testing.T) {
	var s MinMaxScaler
	got, err := s.FitTransform([][]float64{{0, 5, 7}, {10, 15, 7}, {5, 10, 7}})
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	want := [][]float64{{0, 0, 0}, {1, 1, 0}, {0.5, 0.5, 0}}
	for i := range want {
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Errorf("got[%d][%d] = %v, want %v", i, j, got[i][j], want[i][j])
			}
		}
	}

	out, err := s.Transform([][]float64{{20, 0, 9}})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if out[0][0] != 2 || out[0][1] != -0.5 || out[0][2] != 0 {
		t.Errorf("Transform() = %v, want [2 -0.5 0] (no clipping)", out[0])
	}

	if _, err := s.Transform([][]float64{{1}}); err == nil {
		t.Error("Transform() with wrong width expected error")
	}
}

func TestMinMaxScaler_NotFitted(t *testing.T) {
	var s MinMaxScaler
	if _, err := s.Transform([][]float64{{1}}); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Transform() error = %v, want ErrNotFitted", err)
	}
}

// recorder captures what the pipeline hands to the wrapped model.
type recorder struct {
	fitX, fitY [][]float64
	predictX   [][]float64
	out        [][]float64
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Fit(_ context.Context, X, Y [][]float64) error {
	r.fitX, r.fitY = X, Y
	return nil
}

func (r *recorder) Predict(_ context.Context, X [][]float64) ([][]float64, error) {
	r.predictX = X
	return r.out, nil
}

func TestPipeline(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{out: [][]float64{{math.NaN(), 1, math.Inf(1), 2}}}
	p := NewPipeline(rec)

	if p.Name() != "recorder" {
		t.Errorf("Name() = %q, want recorder", p.Name())
	}
	if _, err := p.Predict(ctx, [][]float64{{1, 1}}); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Predict() before Fit error = %v, want ErrNotFitted", err)
	}

	X := [][]float64{{0, math.NaN()}, {4, 2}}
	Y := [][]float64{{1, math.Inf(-1), 3, 4}, {5, 6, 7, 8}}
	if err := p.Fit(ctx, X, Y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if rec.fitX[0][0] != 0 || rec.fitX[1][0] != 1 || rec.fitX[0][1] != 0 || rec.fitX[1][1] != 1 {
		t.Errorf("fit X = %v, want sanitized and scaled [[0 0] [1 1]]", rec.fitX)
	}
	if rec.fitY[0][1] != 0 || rec.fitY[1][3] != 8 {
		t.Errorf("fit Y = %v, want sanitized, unscaled", rec.fitY)
	}

	pred, err := p.Predict(ctx, [][]float64{{2, 1}})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if rec.predictX[0][0] != 0.5 || rec.predictX[0][1] != 0.5 {
		t.Errorf("predict X = %v, want [[0.5 0.5]]", rec.predictX)
	}
	want := []float64{0, 1, 0, 2}
	for j := range want {
		if pred[0][j] != want[j] {
			t.Errorf("pred[0][%d] = %v, want %v", j, pred[0][j], want[j])
		}
	}
}

func TestPipeline_LinearEndToEnd(t *testing.T) {
	ctx := context.Background()
	p := NewPipeline(NewLinearRegressor(DefaultRidge))

	var X, Y [][]float64
	for i := range 20 {
		x := float64(i)
		X = append(X, []float64{x, 100 - 3*x})
		Y = append(Y, []float64{x + 1, 2 * x, 0, 7})
	}
	if err := p.Fit(ctx, X, Y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	pred, err := p.Predict(ctx, [][]float64{{10, 70}})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	want := []float64{11, 20, 0, 7}
	for j := range want {
		if !approxEqual(pred[0][j], want[j], 1e-3) {
			t.Errorf("pred[0][%d] = %v, want ~%v", j, pred[0][j], want[j])
		}
	}
}
