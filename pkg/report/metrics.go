package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/HatiCode/ratecast/pkg/evaluate"
)

var metricsHeader = []string{"dataset", "model", "mse", "rmse", "mae", "mape", "r2"}

// WriteMetricsCSV writes the evaluation rows with full precision.
func WriteMetricsCSV(w io.Writer, rows []evaluate.Row) error {
	return writeCSVWithHeader(w, metricsHeader, func(cw *csv.Writer) error {
		for _, r := range rows {
			record := []string{
				r.Dataset,
				r.Model,
				formatFloat(r.MSE),
				formatFloat(r.RMSE),
				formatFloat(r.MAE),
				formatFloat(r.MAPE),
				formatFloat(r.R2),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
}

// TableOptions controls WriteMetricsTable.
type TableOptions struct {
	Precision int
	UseColors bool
}

// WriteMetricsTable renders the evaluation rows as a table. Model rows on
// the validation set are green when they beat the baseline's RMSE and red
// otherwise.
func WriteMetricsTable(w io.Writer, rows []evaluate.Row, opts TableOptions) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Dataset", "Model", "MSE", "RMSE", "MAE", "MAPE", "R2"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var red, green func(...any) string
	if opts.UseColors {
		red = color.New(color.FgRed).SprintFunc()
		green = color.New(color.FgGreen).SprintFunc()
	} else {
		red = fmt.Sprint
		green = fmt.Sprint
	}

	baseline, hasBaseline := evaluate.Find(rows, evaluate.Validation, "baseline")

	fmtFloat := func(v float64) string {
		return strconv.FormatFloat(v, 'f', opts.Precision, 64)
	}

	var data [][]string
	for _, r := range rows {
		model := r.Model
		if hasBaseline && r.Dataset == evaluate.Validation && r.Model != "baseline" {
			if r.RMSE < baseline.RMSE {
				model = green(model)
			} else {
				model = red(model)
			}
		}
		data = append(data, []string{
			r.Dataset,
			model,
			fmtFloat(r.MSE),
			fmtFloat(r.RMSE),
			fmtFloat(r.MAE),
			fmtFloat(r.MAPE),
			fmtFloat(r.R2),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
