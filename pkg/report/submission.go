package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"github.com/HatiCode/ratecast/pkg/features"
)

// SubmissionHeader is the first line of a submission file.
var SubmissionHeader = append([]string{"id"}, features.Targets[:]...)

// WriteSubmission writes one row per test document: its id followed by the
// predicted mean_1, stdev_1, mean_2, stdev_2. Rows keep the order of ids.
func WriteSubmission(w io.Writer, ids []string, predictions [][]float64) error {
	if len(ids) != len(predictions) {
		return fmt.Errorf("submission: %d ids but %d predictions", len(ids), len(predictions))
	}

	return writeCSVWithHeader(w, slices.Clone(SubmissionHeader), func(cw *csv.Writer) error {
		row := make([]string, len(SubmissionHeader))
		for i, id := range ids {
			p := predictions[i]
			if len(p) != features.NumTargets {
				return fmt.Errorf("submission: prediction %s has %d values, want %d", id, len(p), features.NumTargets)
			}
			row[0] = id
			for j, v := range p {
				row[j+1] = formatFloat(v)
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}
