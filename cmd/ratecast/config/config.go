// Package config provides configuration parsing and validation for ratecast.
//
// It handles both command-line flags and environment variables, with flags taking
// precedence over environment variables. The Config struct contains all runtime
// configuration for a pipeline run including:
//   - Input and output locations (training tree, test directory, output directory)
//   - Preprocessing (bucket interval, std mode, gap handling, worker count, vocabulary)
//   - Model selection (baseline, linear, byom) and evaluation split
//   - Outputs (dataset export format, metrics textfile, run-report storage)
//   - Logging configuration (level, format)
//   - TLS configuration for the BYOM endpoint (cert, key, CA files)
//
// Supported configuration sources (in order of precedence):
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
//
// Example usage:
//
//	cfg := config.ParseFlags()
//	if err := cfg.Validate(); err != nil {
//		// report and exit
//	}
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/HatiCode/ratecast/pkg/features"
	"github.com/HatiCode/ratecast/pkg/models"
	"github.com/HatiCode/ratecast/pkg/series"
	"github.com/HatiCode/ratecast/pkg/storage"
	"github.com/HatiCode/ratecast/pkg/tls"
)

// Model names accepted by -model.
const (
	ModelBaseline = "baseline"
	ModelLinear   = "linear"
	ModelBYOM     = "byom"
)

// Dataset export formats accepted by -dataset-format.
const (
	DatasetParquet = "parquet"
	DatasetNone    = "none"
)

// Config holds all ratecast configuration.
type Config struct {
	LogFormat     string
	LogLevel      string
	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ReportTTL     time.Duration
	TLS           tls.Config

	TrainDir   string
	TestDir    string
	OutDir     string
	Interval   time.Duration
	StdMode    string
	RejectGaps bool
	Workers    int
	Vocab      string

	Model         string
	Ridge         float64
	BYOMURL       string
	BYOMTimeout   time.Duration
	TrainFraction float64

	DatasetFormat string
	MetricsFile   string
	Run           string
	NoColor       bool
}

// ParseFlags parses command-line flags and environment variables into a Config.
// Environment variables are used as fallbacks when flags are not provided.
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", "memory"), "Run-report storage backend: memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	flag.DurationVar(&cfg.ReportTTL, "report-ttl", getEnvDuration("REPORT_TTL", storage.DefaultReportTTL), "How long stored run reports are kept, for both stores; 0 keeps memory reports forever and selects the default for redis")

	flag.BoolVar(&cfg.TLS.Enabled, "tls-enabled", getEnvBool("TLS_ENABLED", false), "Enable mTLS towards the BYOM service")
	flag.StringVar(&cfg.TLS.CertFile, "tls-cert-file", getEnv("TLS_CERT_FILE", ""), "TLS client certificate file")
	flag.StringVar(&cfg.TLS.KeyFile, "tls-key-file", getEnv("TLS_KEY_FILE", ""), "TLS client private key file")
	flag.StringVar(&cfg.TLS.CAFile, "tls-ca-file", getEnv("TLS_CA_FILE", ""), "TLS CA certificate file for server verification")

	flag.StringVar(&cfg.TrainDir, "train-dir", getEnv("TRAIN_DIR", "data/Train/dash"), "Training tree laid out as <client>/<server>/<request-file>")
	flag.StringVar(&cfg.TestDir, "test-dir", getEnv("TEST_DIR", "data/Test"), "Directory of test documents, one JSON document per file")
	flag.StringVar(&cfg.OutDir, "out-dir", getEnv("OUT_DIR", "results"), "Output directory")
	flag.DurationVar(&cfg.Interval, "interval", getEnvDuration("INTERVAL", series.DefaultInterval), "Resampling bucket width")
	flag.StringVar(&cfg.StdMode, "std-mode", getEnv("STD_MODE", series.Population.String()), "Per-bucket std: population (ddof=0, single-event buckets kept) or sample (ddof=1, single-event buckets dropped as pandas .std().dropna() does)")
	flag.BoolVar(&cfg.RejectGaps, "reject-gaps", getEnvBool("REJECT_GAPS", false), "Drop windows whose buckets span more than 12 intervals")
	flag.IntVar(&cfg.Workers, "workers", getEnvInt("WORKERS", 4), "Concurrent client/server paths")
	flag.StringVar(&cfg.Vocab, "vocab", getEnv("VOCAB", ""), "Site vocabulary as code=id pairs, e.g. ba=0,rj=1 (default: built-in)")

	flag.StringVar(&cfg.Model, "model", getEnv("MODEL", ModelLinear), "Model: baseline, linear, or byom")
	flag.Float64Var(&cfg.Ridge, "ridge", getEnvFloat("RIDGE", models.DefaultRidge), "L2 penalty of the linear model")
	flag.StringVar(&cfg.BYOMURL, "byom-url", getEnv("BYOM_URL", ""), "BYOM service URL (required when model=byom)")
	flag.DurationVar(&cfg.BYOMTimeout, "byom-timeout", getEnvDuration("BYOM_TIMEOUT", 30*time.Second), "BYOM request timeout")
	flag.Float64Var(&cfg.TrainFraction, "train-fraction", getEnvFloat("TRAIN_FRACTION", 0.8), "Leading fraction of samples used for evaluation training; 0 skips evaluation")

	flag.StringVar(&cfg.DatasetFormat, "dataset-format", getEnv("DATASET_FORMAT", DatasetParquet), "Dataset export: parquet or none")
	flag.StringVar(&cfg.MetricsFile, "metrics-file", getEnv("METRICS_FILE", "results/ratecast.prom"), "Prometheus textfile for run metrics; empty disables")
	flag.StringVar(&cfg.Run, "run", getEnv("RUN_NAME", "ratecast"), "Run name under which the report is stored")
	flag.BoolVar(&cfg.NoColor, "no-color", getEnvBool("NO_COLOR", false), "Disable colored table output")

	flag.Parse()

	return cfg
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.TrainDir == "" {
		return errors.New("train-dir cannot be empty")
	}
	if c.TestDir == "" {
		return errors.New("test-dir cannot be empty")
	}
	if c.OutDir == "" {
		return errors.New("out-dir cannot be empty")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be > 0, got %v", c.Interval)
	}
	if _, err := series.ParseStdMode(c.StdMode); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if _, err := c.Vocabulary(); err != nil {
		return err
	}

	switch c.Model {
	case ModelBaseline, ModelLinear:
	case ModelBYOM:
		if c.BYOMURL == "" {
			return errors.New("byom-url is required when model=byom")
		}
	default:
		return fmt.Errorf("invalid model %q (must be baseline, linear, or byom)", c.Model)
	}
	if c.Ridge < 0 {
		return fmt.Errorf("ridge must be >= 0, got %g", c.Ridge)
	}
	if c.TrainFraction < 0 || c.TrainFraction >= 1 {
		return fmt.Errorf("train-fraction must be in [0, 1), got %g", c.TrainFraction)
	}

	if c.DatasetFormat != DatasetParquet && c.DatasetFormat != DatasetNone {
		return fmt.Errorf("invalid dataset-format %q (must be parquet or none)", c.DatasetFormat)
	}
	if c.Storage != "memory" && c.Storage != "redis" {
		return fmt.Errorf("invalid storage %q (must be memory or redis)", c.Storage)
	}
	if c.ReportTTL < 0 {
		return fmt.Errorf("report-ttl must be >= 0, got %v", c.ReportTTL)
	}
	if err := storage.ValidateRun(c.Run); err != nil {
		return err
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log-format %q (must be text or json)", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level %q", c.LogLevel)
	}

	return nil
}

// Std returns the parsed std mode. Call after Validate.
func (c *Config) Std() series.StdMode {
	m, _ := series.ParseStdMode(c.StdMode)
	return m
}

// Vocabulary returns the configured site vocabulary, or the built-in one
// when -vocab is empty.
func (c *Config) Vocabulary() (features.Vocabulary, error) {
	if c.Vocab == "" {
		return features.DefaultVocabulary(), nil
	}
	v, err := features.ParseVocabulary(c.Vocab)
	if err != nil {
		return features.Vocabulary{}, fmt.Errorf("vocab: %w", err)
	}
	return v, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%g", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
