package dataset

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

// TrainingRow is the parquet layout of one training sample.
type TrainingRow struct {
	Client string `parquet:"client,snappy,dict"`
	Server string `parquet:"server,snappy,dict"`
	Window int32  `parquet:"window,snappy"`

	ClientID  float64 `parquet:"client_id,snappy"`
	ServerID  float64 `parquet:"server_id,snappy"`
	Mean      float64 `parquet:"mean,snappy"`
	StdOfStd  float64 `parquet:"std_of_std,snappy"`
	LastMean  float64 `parquet:"last_mean,snappy"`
	LastStd   float64 `parquet:"last_std,snappy"`
	CV        float64 `parquet:"cv,snappy"`
	Delta     float64 `parquet:"delta,snappy"`
	Slope     float64 `parquet:"slope,snappy"`

	Mean1  float64 `parquet:"mean_1,snappy"`
	Stdev1 float64 `parquet:"stdev_1,snappy"`
	Mean2  float64 `parquet:"mean_2,snappy"`
	Stdev2 float64 `parquet:"stdev_2,snappy"`
}

// TestRow is the parquet layout of one test sample.
type TestRow struct {
	ID string `parquet:"id,snappy"`

	ClientID float64 `parquet:"client_id,snappy"`
	ServerID float64 `parquet:"server_id,snappy"`
	Mean     float64 `parquet:"mean,snappy"`
	StdOfStd float64 `parquet:"std_of_std,snappy"`
	LastMean float64 `parquet:"last_mean,snappy"`
	LastStd  float64 `parquet:"last_std,snappy"`
	CV       float64 `parquet:"cv,snappy"`
	Delta    float64 `parquet:"delta,snappy"`
	Slope    float64 `parquet:"slope,snappy"`
}

// TrainingRows flattens t into parquet rows.
func (t *Training) TrainingRows() []TrainingRow {
	rows := make([]TrainingRow, t.Len())
	for i, x := range t.X {
		y := t.Y[i]
		row := TrainingRow{
			ClientID: x[0], ServerID: x[1], Mean: x[2], StdOfStd: x[3],
			LastMean: x[4], LastStd: x[5], CV: x[6], Delta: x[7], Slope: x[8],
			Mean1: y[0], Stdev1: y[1], Mean2: y[2], Stdev2: y[3],
		}
		if i < len(t.Keys) {
			row.Client = t.Keys[i].Client
			row.Server = t.Keys[i].Server
			row.Window = int32(t.Keys[i].Window)
		}
		rows[i] = row
	}
	return rows
}

// TestRows flattens t into parquet rows.
func (t *Test) TestRows() []TestRow {
	rows := make([]TestRow, t.Len())
	for i, x := range t.X {
		rows[i] = TestRow{
			ID:       t.IDs[i],
			ClientID: x[0], ServerID: x[1], Mean: x[2], StdOfStd: x[3],
			LastMean: x[4], LastStd: x[5], CV: x[6], Delta: x[7], Slope: x[8],
		}
	}
	return rows
}

// WriteTrainingParquet writes the training set to outputPath.
func WriteTrainingParquet(t *Training, outputPath string) error {
	return writeParquet(t.TrainingRows(), outputPath)
}

// WriteTestParquet writes the test set to outputPath.
func WriteTestParquet(t *Test, outputPath string) error {
	return writeParquet(t.TestRows(), outputPath)
}

func writeParquet[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}

	return file.Sync()
}
