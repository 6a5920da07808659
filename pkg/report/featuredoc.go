package report

import (
	"encoding/csv"
	"io"

	"github.com/HatiCode/ratecast/pkg/features"
)

// WriteFeatureDoc documents every feature column: name, description and
// why it is included, in feature-vector order.
func WriteFeatureDoc(w io.Writer) error {
	return writeCSVWithHeader(w, []string{"feature", "description", "justification"}, func(cw *csv.Writer) error {
		for _, c := range features.Columns {
			if err := cw.Write([]string{c.Name, c.Description, c.Justification}); err != nil {
				return err
			}
		}
		return nil
	})
}
