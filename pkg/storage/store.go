// Package storage keeps the report of the latest pipeline run per run name,
// so dashboards and follow-up jobs can read what a run produced without
// parsing its output files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Report summarizes one pipeline run.
type Report struct {
	Run         string    `json:"run"`
	GeneratedAt time.Time `json:"generatedAt"`
	Model       string    `json:"model"`

	Paths           int `json:"paths"`
	EmptyPaths      int `json:"emptyPaths"`
	SkippedLines    int `json:"skippedLines"`
	Buckets         int `json:"buckets"`
	RejectedWindows int `json:"rejectedWindows"`

	TrainingSamples   int `json:"trainingSamples"`
	ValidationSamples int `json:"validationSamples"`
	TestRecords       int `json:"testRecords"`

	// Evaluation holds the model and baseline scores, if evaluation ran.
	Evaluation []EvaluationRow `json:"evaluation,omitempty"`

	// Outputs maps an output kind ("submission", "metrics", ...) to the
	// file it was written to.
	Outputs map[string]string `json:"outputs,omitempty"`
}

// EvaluationRow is one scored (dataset, model) pair.
type EvaluationRow struct {
	Dataset string  `json:"dataset"`
	Model   string  `json:"model"`
	MSE     float64 `json:"mse"`
	RMSE    float64 `json:"rmse"`
	MAE     float64 `json:"mae"`
	MAPE    float64 `json:"mape"`
	R2      float64 `json:"r2"`
}

// Store persists the latest Report per run name.
type Store interface {
	Put(ctx context.Context, report Report) error
	GetLatest(ctx context.Context, run string) (Report, bool, error)
}

// ValidateRun checks that a run name is non-empty and only holds
// alphanumerics, hyphens and underscores.
func ValidateRun(run string) error {
	if run == "" {
		return errors.New("run name required")
	}
	for _, c := range run {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_') {
			return fmt.Errorf("invalid run name %q: only alphanumeric, hyphens, and underscores allowed", run)
		}
	}
	return nil
}
