package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/ratecast/pkg/evaluate"
)

func readCSV(t *testing.T, s string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteSubmission(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSubmission(&buf, []string{"7", "12"}, [][]float64{
		{10.5, 0.25, 11, 0},
		{1e-7, 3, 123456789, 2.5},
	})
	require.NoError(t, err)

	records := readCSV(t, buf.String())
	require.Len(t, records, 3)
	assert.Equal(t, []string{"id", "mean_1", "stdev_1", "mean_2", "stdev_2"}, records[0])
	assert.Equal(t, []string{"7", "10.5", "0.25", "11", "0"}, records[1])
	assert.Equal(t, []string{"12", "0.0000001", "3", "123456789", "2.5"}, records[2])
}

func TestWriteSubmission_Mismatch(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteSubmission(&buf, []string{"1"}, nil))
	assert.Error(t, WriteSubmission(&buf, []string{"1"}, [][]float64{{1, 2}}))
}

func TestWriteSubmission_HeaderNotShared(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSubmission(&buf, nil, nil))
	assert.Equal(t, "id,mean_1,stdev_1,mean_2,stdev_2\n", buf.String())
	assert.Equal(t, "id", SubmissionHeader[0])
}

func sampleRows() []evaluate.Row {
	return []evaluate.Row{
		{Dataset: evaluate.Train, Model: "linear", Metrics: evaluate.Metrics{MSE: 1, RMSE: 1, MAE: 0.5, MAPE: 0.1, R2: 0.9}},
		{Dataset: evaluate.Train, Model: "baseline", Metrics: evaluate.Metrics{MSE: 4, RMSE: 2, MAE: 1.5, MAPE: 0.3, R2: 0}},
		{Dataset: evaluate.Validation, Model: "linear", Metrics: evaluate.Metrics{MSE: 2.25, RMSE: 1.5, MAE: 1, MAPE: 0.2, R2: 0.5}},
		{Dataset: evaluate.Validation, Model: "baseline", Metrics: evaluate.Metrics{MSE: 9, RMSE: 3, MAE: 2, MAPE: 0.4, R2: -0.1}},
	}
}

func TestWriteMetricsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMetricsCSV(&buf, sampleRows()))

	records := readCSV(t, buf.String())
	require.Len(t, records, 5)
	assert.Equal(t, []string{"dataset", "model", "mse", "rmse", "mae", "mape", "r2"}, records[0])
	assert.Equal(t, []string{"validation", "baseline", "9", "3", "2", "0.4", "-0.1"}, records[4])
}

func TestWriteMetricsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMetricsTable(&buf, sampleRows(), TableOptions{Precision: 3}))

	out := buf.String()
	assert.Contains(t, out, "validation")
	assert.Contains(t, out, "2.250")
	assert.Contains(t, out, "-0.100")
	assert.NotContains(t, out, "\x1b[", "colors disabled")
}

func TestWriteFeatureDoc(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFeatureDoc(&buf))

	records := readCSV(t, buf.String())
	require.Len(t, records, 10)
	assert.Equal(t, []string{"feature", "description", "justification"}, records[0])
	assert.Equal(t, "client_id", records[1][0])
	assert.Equal(t, "slope", records[9][0])
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.csv")
	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "hello\n")
		return err
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	boom := errors.New("boom")
	err = WriteFile(path, func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)
}
