package evaluate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HatiCode/ratecast/pkg/models"
)

// Dataset labels.
const (
	Train      = "train"
	Validation = "validation"
)

// Row is one scored (dataset, model) pair.
type Row struct {
	Dataset string
	Model   string
	Metrics
}

// Split is a pair of feature and target matrices.
type Split struct {
	X, Y [][]float64
}

// Evaluate fits model and a MeanBaseline on train, then scores both on
// train and validation. model is fitted in place; callers that need a model
// trained on all data must fit a fresh one.
//
// Rows are returned as train/model, train/baseline, validation/model,
// validation/baseline.
func Evaluate(ctx context.Context, model models.Regressor, train, validation Split, logger *slog.Logger) ([]Row, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	baseline := models.NewMeanBaseline()
	for _, m := range []models.Regressor{model, baseline} {
		if err := m.Fit(ctx, train.X, train.Y); err != nil {
			return nil, fmt.Errorf("evaluate: fit %s: %w", m.Name(), err)
		}
	}

	var rows []Row
	for _, ds := range []struct {
		name  string
		split Split
	}{
		{Train, train},
		{Validation, validation},
	} {
		for _, m := range []models.Regressor{model, baseline} {
			pred, err := m.Predict(ctx, ds.split.X)
			if err != nil {
				return nil, fmt.Errorf("evaluate: predict %s on %s: %w", m.Name(), ds.name, err)
			}
			metrics, err := Compute(ds.split.Y, pred)
			if err != nil {
				return nil, fmt.Errorf("evaluate: score %s on %s: %w", m.Name(), ds.name, err)
			}
			rows = append(rows, Row{Dataset: ds.name, Model: m.Name(), Metrics: metrics})
		}
	}

	logger.Info("evaluation complete",
		"model", model.Name(),
		"train_rows", len(train.X),
		"validation_rows", len(validation.X),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return rows, nil
}

// Find returns the row for dataset and model.
func Find(rows []Row, dataset, model string) (Row, bool) {
	for _, r := range rows {
		if r.Dataset == dataset && r.Model == model {
			return r, true
		}
	}
	return Row{}, false
}

// BeatsBaseline reports whether model has a lower validation RMSE than the
// baseline. It is false if either row is missing.
func BeatsBaseline(rows []Row, model string) bool {
	m, ok := Find(rows, Validation, model)
	if !ok {
		return false
	}
	b, ok := Find(rows, Validation, "baseline")
	if !ok {
		return false
	}
	return m.RMSE < b.RMSE
}
