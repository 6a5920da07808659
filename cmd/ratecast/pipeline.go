// Package main implements the batch pipeline orchestration.
//
// This file contains the Pipeline type, which runs one end-to-end pass:
//
//	list → buildTraining → buildTest → evaluate → fit → predict → write → store
//
// Every stage is timed into the run metrics. Errors are counted by component
// and returned wrapped with the stage name; the pipeline never exits the
// process itself.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/HatiCode/ratecast/cmd/ratecast/metrics"
	"github.com/HatiCode/ratecast/pkg/dataset"
	"github.com/HatiCode/ratecast/pkg/evaluate"
	"github.com/HatiCode/ratecast/pkg/features"
	"github.com/HatiCode/ratecast/pkg/models"
	"github.com/HatiCode/ratecast/pkg/report"
	"github.com/HatiCode/ratecast/pkg/source"
	"github.com/HatiCode/ratecast/pkg/storage"
)

// Output file names under the output directory.
const (
	SubmissionFile    = "submission.csv"
	MetricsFile       = "metrics.csv"
	FeatureDocFile    = "features.csv"
	TrainParquetFile  = "train.parquet"
	TestParquetFile   = "test.parquet"
	baselineModelName = "baseline"
)

// ModelFactory returns a fresh, unfitted model on every call.
type ModelFactory func() (models.Regressor, error)

// Options configures a Pipeline.
type Options struct {
	Run           string
	OutDir        string
	TrainFraction float64
	ExportParquet bool
	Table         report.TableOptions
	// Stdout receives the evaluation table. Nil disables it.
	Stdout io.Writer
}

// Pipeline orchestrates one run: build datasets, evaluate, fit, predict,
// write outputs and store the run report.
type Pipeline struct {
	source   source.Source
	builder  *dataset.Builder
	newModel ModelFactory
	store    storage.Store
	opts     Options
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewPipeline creates a Pipeline. store and m may be nil.
func NewPipeline(
	src source.Source,
	builder *dataset.Builder,
	newModel ModelFactory,
	store storage.Store,
	opts Options,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		source:   src,
		builder:  builder,
		newModel: newModel,
		store:    store,
		opts:     opts,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Run performs one complete pipeline pass and returns the stored report.
func (p *Pipeline) Run(ctx context.Context) (storage.Report, error) {
	start := p.now()
	rep := storage.Report{
		Run:     p.opts.Run,
		Outputs: make(map[string]string),
	}

	paths, files, err := p.list(ctx)
	if err != nil {
		p.recordError("source", "list_failed")
		return rep, fmt.Errorf("list: %w", err)
	}

	train, stats, err := p.buildTraining(ctx, paths)
	if err != nil {
		var unknown *features.UnknownCodeError
		if errors.As(err, &unknown) {
			p.recordError("dataset", "unknown_code")
		} else {
			p.recordError("dataset", "build_failed")
		}
		return rep, fmt.Errorf("build training: %w", err)
	}
	rep.Paths = stats.Paths
	rep.EmptyPaths = stats.EmptyPaths
	rep.SkippedLines = stats.SkippedLines
	rep.Buckets = stats.Buckets
	rep.RejectedWindows = stats.RejectedWindows
	rep.TrainingSamples = train.Len()

	if train.Len() == 0 {
		p.recordError("dataset", "no_samples")
		return rep, errors.New("build training: no training samples")
	}

	test, err := p.buildTest(ctx, files)
	if err != nil {
		var unknown *features.UnknownCodeError
		if errors.As(err, &unknown) {
			p.recordError("dataset", "unknown_code")
		} else {
			p.recordError("dataset", "build_failed")
		}
		return rep, fmt.Errorf("build test: %w", err)
	}
	rep.TestRecords = test.Len()

	rows, validationSamples, err := p.evaluate(ctx, train)
	if err != nil {
		p.recordError("model", "evaluate_failed")
		return rep, fmt.Errorf("evaluate: %w", err)
	}
	rep.ValidationSamples = validationSamples
	rep.Evaluation = toEvaluationRows(rows)

	model, predictions, err := p.fitPredict(ctx, train, test)
	if err != nil {
		p.recordError("model", "fit_predict_failed")
		return rep, err
	}
	rep.Model = model.Name()

	if err := p.writeOutputs(train, test, predictions, rows, rep.Outputs); err != nil {
		p.recordError("report", "write_failed")
		return rep, fmt.Errorf("write outputs: %w", err)
	}

	if len(rows) > 0 && p.opts.Stdout != nil {
		if err := report.WriteMetricsTable(p.opts.Stdout, rows, p.opts.Table); err != nil {
			p.logger.Warn("failed to render metrics table", "error", err)
		}
	}

	rep.GeneratedAt = p.now()
	if p.store != nil {
		if err := p.store.Put(ctx, rep); err != nil {
			p.recordError("store", "put_failed")
			return rep, fmt.Errorf("store: %w", err)
		}
	}

	if p.metrics != nil {
		p.metrics.MarkSuccess(rep.GeneratedAt)
	}

	p.logger.Info("run complete",
		"run", p.opts.Run,
		"model", rep.Model,
		"training_samples", rep.TrainingSamples,
		"validation_samples", rep.ValidationSamples,
		"test_records", rep.TestRecords,
		"total_ms", rep.GeneratedAt.Sub(start).Milliseconds(),
	)

	return rep, nil
}

// list retrieves the training paths and test files from the source.
func (p *Pipeline) list(ctx context.Context) ([]source.ServerPath, []source.TestFile, error) {
	defer p.stage("list", p.now())

	paths, err := p.source.TrainingPaths(ctx)
	if err != nil {
		return nil, nil, err
	}
	files, err := p.source.TestFiles(ctx)
	if err != nil {
		return nil, nil, err
	}

	p.logger.Info("listed inputs",
		"source", p.source.Name(),
		"paths", len(paths),
		"test_files", len(files),
	)
	return paths, files, nil
}

func (p *Pipeline) buildTraining(ctx context.Context, paths []source.ServerPath) (*dataset.Training, dataset.Stats, error) {
	defer p.stage("build_training", p.now())

	train, stats, err := p.builder.BuildTraining(ctx, paths)
	if err != nil {
		return nil, stats, err
	}

	if p.metrics != nil {
		p.metrics.SetPaths(stats.Paths, stats.EmptyPaths)
		p.metrics.SetPreprocessing(stats.SkippedLines, stats.Buckets, stats.RejectedWindows)
		p.metrics.SetSamples("train", train.Len())
	}
	return train, stats, nil
}

func (p *Pipeline) buildTest(ctx context.Context, files []source.TestFile) (*dataset.Test, error) {
	defer p.stage("build_test", p.now())

	test, err := p.builder.BuildTest(ctx, files)
	if err != nil {
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.SetSamples("test", test.Len())
	}
	return test, nil
}

// evaluate scores a fresh model against the mean baseline on a time-ordered
// head/tail split. It returns no rows when evaluation is disabled or the
// split leaves either side empty.
func (p *Pipeline) evaluate(ctx context.Context, train *dataset.Training) ([]evaluate.Row, int, error) {
	if p.opts.TrainFraction <= 0 {
		p.logger.Info("evaluation disabled")
		return nil, 0, nil
	}
	defer p.stage("evaluate", p.now())

	head, tail, err := train.Split(p.opts.TrainFraction)
	if err != nil {
		return nil, 0, err
	}
	if head.Len() == 0 || tail.Len() == 0 {
		p.logger.Warn("too few samples to evaluate",
			"samples", train.Len(),
			"train_fraction", p.opts.TrainFraction,
		)
		return nil, 0, nil
	}

	model, err := p.newModel()
	if err != nil {
		return nil, 0, err
	}

	rows, err := evaluate.Evaluate(ctx, model,
		evaluate.Split{X: head.XRows(), Y: head.YRows()},
		evaluate.Split{X: tail.XRows(), Y: tail.YRows()},
		p.logger,
	)
	if err != nil {
		return nil, 0, err
	}

	if p.metrics != nil {
		p.metrics.SetSamples("validation", tail.Len())
		for _, r := range rows {
			p.metrics.SetScore(r.Dataset, r.Model, "mse", r.MSE)
			p.metrics.SetScore(r.Dataset, r.Model, "rmse", r.RMSE)
			p.metrics.SetScore(r.Dataset, r.Model, "mae", r.MAE)
			p.metrics.SetScore(r.Dataset, r.Model, "mape", r.MAPE)
			p.metrics.SetScore(r.Dataset, r.Model, "r2", r.R2)
		}
	}

	if model.Name() != baselineModelName && !evaluate.BeatsBaseline(rows, model.Name()) {
		p.logger.Warn("model does not beat the mean baseline on validation", "model", model.Name())
	}

	return rows, tail.Len(), nil
}

// fitPredict fits a fresh model on every training row and predicts the
// test rows.
func (p *Pipeline) fitPredict(ctx context.Context, train *dataset.Training, test *dataset.Test) (models.Regressor, [][]float64, error) {
	model, err := p.newModel()
	if err != nil {
		return nil, nil, fmt.Errorf("create model: %w", err)
	}

	fitStart := p.now()
	if err := model.Fit(ctx, train.XRows(), train.YRows()); err != nil {
		return nil, nil, fmt.Errorf("fit: %w", err)
	}
	p.stage("fit", fitStart)

	predictStart := p.now()
	predictions, err := model.Predict(ctx, test.XRows())
	if err != nil {
		return nil, nil, fmt.Errorf("predict: %w", err)
	}
	p.stage("predict", predictStart)

	p.logger.Info("predicted test set",
		"model", model.Name(),
		"rows", len(predictions),
		"fit_ms", predictStart.Sub(fitStart).Milliseconds(),
		"predict_ms", p.now().Sub(predictStart).Milliseconds(),
	)
	return model, predictions, nil
}

// writeOutputs writes every output file and records it in outputs.
func (p *Pipeline) writeOutputs(
	train *dataset.Training,
	test *dataset.Test,
	predictions [][]float64,
	rows []evaluate.Row,
	outputs map[string]string,
) error {
	defer p.stage("write", p.now())

	out := func(name string) string { return filepath.Join(p.opts.OutDir, name) }

	path := out(SubmissionFile)
	if err := report.WriteFile(path, func(w io.Writer) error {
		return report.WriteSubmission(w, test.IDs, predictions)
	}); err != nil {
		return err
	}
	outputs["submission"] = path

	path = out(FeatureDocFile)
	if err := report.WriteFile(path, report.WriteFeatureDoc); err != nil {
		return err
	}
	outputs["features"] = path

	if len(rows) > 0 {
		path = out(MetricsFile)
		if err := report.WriteFile(path, func(w io.Writer) error {
			return report.WriteMetricsCSV(w, rows)
		}); err != nil {
			return err
		}
		outputs["metrics"] = path
	}

	if p.opts.ExportParquet {
		path = out(TrainParquetFile)
		if err := dataset.WriteTrainingParquet(train, path); err != nil {
			return err
		}
		outputs["train"] = path

		path = out(TestParquetFile)
		if err := dataset.WriteTestParquet(test, path); err != nil {
			return err
		}
		outputs["test"] = path
	}

	p.logger.Info("wrote outputs", "dir", p.opts.OutDir, "files", len(outputs))
	return nil
}

// stage records the duration of a stage that began at start.
func (p *Pipeline) stage(name string, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordStage(name, p.now().Sub(start))
	}
}

func (p *Pipeline) recordError(component, reason string) {
	if p.metrics != nil {
		p.metrics.RecordError(component, reason)
	}
}

func toEvaluationRows(rows []evaluate.Row) []storage.EvaluationRow {
	if len(rows) == 0 {
		return nil
	}
	out := make([]storage.EvaluationRow, len(rows))
	for i, r := range rows {
		out[i] = storage.EvaluationRow{
			Dataset: r.Dataset,
			Model:   r.Model,
			MSE:     r.MSE,
			RMSE:    r.RMSE,
			MAE:     r.MAE,
			MAPE:    r.MAPE,
			R2:      r.R2,
		}
	}
	return out
}
