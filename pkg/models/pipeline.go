package models

import (
	"context"
	"fmt"
)

// Pipeline wraps a Regressor with input sanitizing, MinMax feature scaling
// and output sanitizing. Targets are sanitized before fitting but not
// scaled.
type Pipeline struct {
	scaler    MinMaxScaler
	regressor Regressor
	fitted    bool
}

// NewPipeline wraps r.
func NewPipeline(r Regressor) *Pipeline {
	return &Pipeline{regressor: r}
}

// Name returns the wrapped regressor's name.
func (p *Pipeline) Name() string {
	return p.regressor.Name()
}

// Regressor returns the wrapped model.
func (p *Pipeline) Regressor() Regressor {
	return p.regressor
}

// Fit implements Regressor.
func (p *Pipeline) Fit(ctx context.Context, X, Y [][]float64) error {
	scaled, err := p.scaler.FitTransform(Sanitize(X))
	if err != nil {
		return err
	}
	if err := p.regressor.Fit(ctx, scaled, Sanitize(Y)); err != nil {
		return fmt.Errorf("fit %s: %w", p.regressor.Name(), err)
	}
	p.fitted = true
	return nil
}

// Predict implements Regressor.
func (p *Pipeline) Predict(ctx context.Context, X [][]float64) ([][]float64, error) {
	if !p.fitted {
		return nil, fmt.Errorf("%s: %w", p.regressor.Name(), ErrNotFitted)
	}
	if len(X) == 0 {
		return [][]float64{}, nil
	}
	scaled, err := p.scaler.Transform(Sanitize(X))
	if err != nil {
		return nil, err
	}
	pred, err := p.regressor.Predict(ctx, scaled)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", p.regressor.Name(), err)
	}
	return Sanitize(pred), nil
}
