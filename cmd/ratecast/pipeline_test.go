package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/HatiCode/ratecast/cmd/ratecast/metrics"
	"github.com/HatiCode/ratecast/pkg/dataset"
	"github.com/HatiCode/ratecast/pkg/features"
	"github.com/HatiCode/ratecast/pkg/models"
	"github.com/HatiCode/ratecast/pkg/report"
	"github.com/HatiCode/ratecast/pkg/source"
	"github.com/HatiCode/ratecast/pkg/storage"
)

// writeRamp writes a request file with one event per 5-minute bucket whose
// rate is the bucket index, followed by the trailing line that is dropped.
func writeRamp(t *testing.T, path string, buckets int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	for i := range buckets {
		fmt.Fprintf(&b, "{\"timestamp\": %d, \"rate\": %d}\n", i*300+10, i)
	}
	b.WriteString("{\"timestamp\": 1, \"rate\": 0}\n")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeTestDoc(t *testing.T, dir, id, client, server string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	doc := fmt.Sprintf(`{"cliente": %q, "servidor": %q, "dash": [{"rate": [1, 2, 3]}]}`, client, server)
	if err := os.WriteFile(filepath.Join(dir, id+".json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
}

type fixture struct {
	trainDir string
	testDir  string
	outDir   string
}

// newFixture lays out two paths of 25 buckets each (two windows per path)
// and two test documents.
func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		trainDir: filepath.Join(root, "train"),
		testDir:  filepath.Join(root, "test"),
		outDir:   filepath.Join(root, "out"),
	}
	writeRamp(t, filepath.Join(f.trainDir, "ba", "rj", "req-1"), 25)
	writeRamp(t, filepath.Join(f.trainDir, "rj", "ba", "req-1"), 25)
	writeTestDoc(t, f.testDir, "a", "ba", "rj")
	writeTestDoc(t, f.testDir, "b", "rj", "ba")
	return f
}

func baselineFactory() (models.Regressor, error) {
	return models.NewPipeline(models.NewMeanBaseline()), nil
}

func linearFactory() (models.Regressor, error) {
	return models.NewPipeline(models.NewLinearRegressor(models.DefaultRidge)), nil
}

func newTestPipeline(f fixture, factory ModelFactory, store storage.Store, m *metrics.Metrics, opts Options) *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	builder := dataset.NewBuilder(
		features.NewExtractor(features.DefaultVocabulary()),
		dataset.Options{Workers: 2},
		logger,
	)
	opts.Run = "test"
	opts.OutDir = f.outDir
	return NewPipeline(source.NewLocalSource(f.trainDir, f.testDir), builder, factory, store, opts, logger, m)
}

func TestPipeline_Run_Baseline(t *testing.T) {
	f := newFixture(t)
	store := storage.NewMemoryStore()
	defer store.Stop()
	m := metrics.New("test")
	var stdout bytes.Buffer

	p := newTestPipeline(f, baselineFactory, store, m, Options{
		TrainFraction: 0.5,
		ExportParquet: true,
		Table:         report.TableOptions{Precision: 4},
		Stdout:        &stdout,
	})

	rep, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if rep.TrainingSamples != 4 {
		t.Errorf("TrainingSamples = %d, want 4", rep.TrainingSamples)
	}
	if rep.ValidationSamples != 2 {
		t.Errorf("ValidationSamples = %d, want 2", rep.ValidationSamples)
	}
	if rep.TestRecords != 2 {
		t.Errorf("TestRecords = %d, want 2", rep.TestRecords)
	}
	if rep.Paths != 2 || rep.Buckets != 50 {
		t.Errorf("Paths, Buckets = %d, %d; want 2, 50", rep.Paths, rep.Buckets)
	}
	if rep.Model != "baseline" {
		t.Errorf("Model = %q, want baseline", rep.Model)
	}
	if len(rep.Evaluation) != 4 {
		t.Errorf("len(Evaluation) = %d, want 4", len(rep.Evaluation))
	}

	// Targets are {10,0,11,0} and {22,0,23,0} for each path, so the mean
	// baseline fitted on all four rows predicts {16,0,17,0}.
	data, err := os.ReadFile(filepath.Join(f.outDir, SubmissionFile))
	if err != nil {
		t.Fatal(err)
	}
	want := "id,mean_1,stdev_1,mean_2,stdev_2\na,16,0,17,0\nb,16,0,17,0\n"
	if string(data) != want {
		t.Errorf("submission =\n%s\nwant\n%s", data, want)
	}

	for _, name := range []string{MetricsFile, FeatureDocFile, TrainParquetFile, TestParquetFile} {
		if _, err := os.Stat(filepath.Join(f.outDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
	if len(rep.Outputs) != 5 {
		t.Errorf("len(Outputs) = %d, want 5", len(rep.Outputs))
	}

	if !strings.Contains(stdout.String(), "validation") {
		t.Errorf("metrics table missing validation rows:\n%s", stdout.String())
	}

	stored, ok, err := store.GetLatest(context.Background(), "test")
	if err != nil || !ok {
		t.Fatalf("GetLatest() = %v, %v", ok, err)
	}
	if stored.TestRecords != 2 {
		t.Errorf("stored TestRecords = %d, want 2", stored.TestRecords)
	}
	if stored.GeneratedAt.IsZero() {
		t.Error("stored report has zero GeneratedAt")
	}

	if got := testutil.ToFloat64(m.Samples.WithLabelValues("train")); got != 4 {
		t.Errorf("train samples metric = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.LastSuccess); got == 0 {
		t.Error("last success timestamp not set")
	}
}

func TestPipeline_Run_Linear(t *testing.T) {
	f := newFixture(t)

	p := newTestPipeline(f, linearFactory, nil, nil, Options{TrainFraction: 0.5})

	rep, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Model != "linear" {
		t.Errorf("Model = %q, want linear", rep.Model)
	}

	var got []string
	for _, r := range rep.Evaluation {
		got = append(got, r.Dataset+"/"+r.Model)
	}
	want := []string{"train/linear", "train/baseline", "validation/linear", "validation/baseline"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("evaluation rows = %v, want %v", got, want)
	}
	if _, ok := rep.Outputs["train"]; ok {
		t.Error("parquet export should be disabled")
	}
}

func TestPipeline_Run_NoEvaluation(t *testing.T) {
	f := newFixture(t)

	p := newTestPipeline(f, baselineFactory, nil, nil, Options{TrainFraction: 0})

	rep, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Evaluation != nil {
		t.Errorf("Evaluation = %v, want nil", rep.Evaluation)
	}
	if _, err := os.Stat(filepath.Join(f.outDir, MetricsFile)); !os.IsNotExist(err) {
		t.Errorf("metrics file should not exist, stat error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.outDir, SubmissionFile)); err != nil {
		t.Errorf("submission missing: %v", err)
	}
}

func TestPipeline_Run_UnknownCode(t *testing.T) {
	f := newFixture(t)
	writeRamp(t, filepath.Join(f.trainDir, "zz", "rj", "req-1"), 25)
	m := metrics.New("test")

	p := newTestPipeline(f, baselineFactory, nil, m, Options{})

	_, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Run() expected error for unknown client code")
	}
	var unknown *features.UnknownCodeError
	if !errors.As(err, &unknown) {
		t.Fatalf("Run() error = %v, want *features.UnknownCodeError", err)
	}
	if unknown.Code != "zz" {
		t.Errorf("Code = %q, want zz", unknown.Code)
	}
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("dataset", "unknown_code")); got != 1 {
		t.Errorf("unknown_code errors = %v, want 1", got)
	}
	if _, err := os.Stat(filepath.Join(f.outDir, SubmissionFile)); !os.IsNotExist(err) {
		t.Error("no submission should be written on a failed run")
	}
}

func TestPipeline_Run_NoSamples(t *testing.T) {
	root := t.TempDir()
	f := fixture{
		trainDir: filepath.Join(root, "train"),
		testDir:  filepath.Join(root, "test"),
		outDir:   filepath.Join(root, "out"),
	}
	writeRamp(t, filepath.Join(f.trainDir, "ba", "rj", "req-1"), 11)
	writeTestDoc(t, f.testDir, "a", "ba", "rj")

	p := newTestPipeline(f, baselineFactory, nil, nil, Options{})

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("Run() expected error when no window can be formed")
	}
}

func TestPipeline_Run_Canceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(f, baselineFactory, nil, nil, Options{})

	if _, err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
