// Command ratecast builds rate-forecasting datasets from per-request
// telemetry logs, fits a model, and predicts the next two intervals for each
// test document.
//
// A run:
//  1. Lists <train-dir>/<client>/<server>/<request-file> paths and test documents
//  2. Resamples every path into 5-minute mean/std buckets
//  3. Segments buckets into 12-bucket windows (10 feature + 2 target buckets)
//  4. Extracts 9 features and 4 targets per window, 9 features per test document
//  5. Evaluates the model against a mean baseline on a time-ordered split
//  6. Fits the model on all windows and predicts the test documents
//  7. Writes submission.csv, metrics.csv, features.csv and parquet datasets
//  8. Stores a run report (memory or Redis) and flushes a metrics textfile
//
// Usage:
//
//	ratecast \
//	  -train-dir=data/Train/dash \
//	  -test-dir=data/Test \
//	  -out-dir=results \
//	  -model=linear
//
// Environment variables:
//
//	TRAIN_DIR      - Training tree root (default: data/Train/dash)
//	TEST_DIR       - Test document directory (default: data/Test)
//	OUT_DIR        - Output directory (default: results)
//	INTERVAL       - Bucket width (default: 5m)
//	STD_MODE       - Bucket std: population, sample (default: population)
//	REJECT_GAPS    - Drop windows spanning a gap (default: false)
//	WORKERS        - Concurrent paths (default: 4)
//	VOCAB          - Site vocabulary, e.g. ba=0,rj=1 (default: built-in)
//	MODEL          - Model: baseline, linear, byom (default: linear)
//	BYOM_URL       - BYOM service URL (required for byom)
//	TRAIN_FRACTION - Evaluation split, 0 disables (default: 0.8)
//	STORAGE        - Run-report store: memory, redis (default: memory)
//	REPORT_TTL     - Run-report retention for either store (default: 168h)
//	METRICS_FILE   - Prometheus textfile (default: results/ratecast.prom)
//	LOG_LEVEL      - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT     - Logging format: text, json (default: text)
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/HatiCode/ratecast/cmd/ratecast/config"
	"github.com/HatiCode/ratecast/cmd/ratecast/logger"
	"github.com/HatiCode/ratecast/cmd/ratecast/metrics"
	"github.com/HatiCode/ratecast/cmd/ratecast/models"
	"github.com/HatiCode/ratecast/pkg/dataset"
	"github.com/HatiCode/ratecast/pkg/features"
	pkgmodels "github.com/HatiCode/ratecast/pkg/models"
	"github.com/HatiCode/ratecast/pkg/report"
	"github.com/HatiCode/ratecast/pkg/source"
	"github.com/HatiCode/ratecast/pkg/storage"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	log := logger.New(cfg)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	log.Info("starting ratecast",
		"version", version,
		"run", cfg.Run,
		"model", cfg.Model,
		"train_dir", cfg.TrainDir,
		"test_dir", cfg.TestDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		var unknown *features.UnknownCodeError
		if errors.As(err, &unknown) {
			log.Error("unknown site code", "role", unknown.Role, "code", unknown.Code, "error", err)
		} else {
			log.Error("run failed", "error", err)
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	vocab, err := cfg.Vocabulary()
	if err != nil {
		return err
	}

	store, err := newStore(cfg, log)
	if err != nil {
		return err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Error("failed to close store", "error", err)
			}
		}()
	}

	m := metrics.New(cfg.Run)
	if cfg.MetricsFile != "" {
		defer func() {
			if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
				log.Error("failed to write metrics textfile", "error", err)
			}
		}()
	}

	builder := dataset.NewBuilder(
		features.NewExtractor(vocab),
		dataset.Options{
			Interval:   cfg.Interval,
			Std:        cfg.Std(),
			RejectGaps: cfg.RejectGaps,
			Workers:    cfg.Workers,
		},
		log,
	)

	newModel := func() (pkgmodels.Regressor, error) {
		return models.New(cfg, log)
	}

	p := NewPipeline(
		source.NewLocalSource(cfg.TrainDir, cfg.TestDir),
		builder,
		newModel,
		store,
		Options{
			Run:           cfg.Run,
			OutDir:        cfg.OutDir,
			TrainFraction: cfg.TrainFraction,
			ExportParquet: cfg.DatasetFormat == config.DatasetParquet,
			Table: report.TableOptions{
				Precision: 4,
				UseColors: !cfg.NoColor && !color.NoColor,
			},
			Stdout: os.Stdout,
		},
		log,
		m,
	)

	_, err = p.Run(ctx)
	return err
}

// newStore returns the configured run-report store.
func newStore(cfg *config.Config, log *slog.Logger) (storage.Store, error) {
	switch cfg.Storage {
	case "redis":
		s, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ReportTTL)
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		log.Info("using redis run-report store", "addr", cfg.RedisAddr, "db", cfg.RedisDB, "ttl", cfg.ReportTTL)
		return s, nil
	default:
		if cfg.ReportTTL <= 0 {
			log.Debug("using in-memory run-report store")
			return storage.NewMemoryStore(), nil
		}
		log.Debug("using in-memory run-report store", "ttl", cfg.ReportTTL)
		return storage.NewMemoryStoreWithTTL(cfg.ReportTTL, 0), nil
	}
}
