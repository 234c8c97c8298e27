package sweep

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/retinotopy/internal/monitoring"
	"github.com/banshee-data/retinotopy/internal/units"
)

var logf = monitoring.Component("sweep")

// FitRow is one voxel's entry in a fit table.
type FitRow struct {
	Voxel       int
	Estimate    []float64
	Overloaded  []float64
	SSE         float64
	RSquared    float64
	Evaluations int
	Status      string
	Err         error
}

// CSVWriter writes per-voxel fit tables.
type CSVWriter struct {
	w          *csv.Writer
	params     []string
	overloaded []string
	angleUnits string
}

// NewCSVWriter returns a CSVWriter for a model with the given parameter and
// overloaded column names.
func NewCSVWriter(w io.Writer, params, overloaded []string) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), params: params, overloaded: overloaded, angleUnits: units.Radians}
}

// WithAngleUnits sets the units of the overloaded theta column. Estimates
// carry theta in radians.
func (c *CSVWriter) WithAngleUnits(u string) *CSVWriter {
	c.angleUnits = u
	return c
}

// WriteHeader writes the column header.
func (c *CSVWriter) WriteHeader() error {
	header := []string{"voxel"}
	header = append(header, c.params...)
	header = append(header, "sse", "r_squared", "evaluations", "status")
	for _, name := range c.overloaded {
		header = append(header, "overloaded_"+name)
	}
	header = append(header, "error")
	return c.w.Write(header)
}

// WriteRow writes one voxel. Failed fits keep their error text and leave the
// numeric columns empty.
func (c *CSVWriter) WriteRow(r FitRow) error {
	row := []string{strconv.Itoa(r.Voxel)}
	if r.Err != nil {
		for range c.params {
			row = append(row, "")
		}
		row = append(row, "", "", "", "failed")
		for range c.overloaded {
			row = append(row, "")
		}
		row = append(row, r.Err.Error())
		return c.w.Write(row)
	}
	if len(r.Estimate) != len(c.params) || len(r.Overloaded) != len(c.overloaded) {
		return fmt.Errorf("voxel %d: %d estimates and %d overloaded values for %d and %d columns",
			r.Voxel, len(r.Estimate), len(r.Overloaded), len(c.params), len(c.overloaded))
	}
	for _, v := range r.Estimate {
		row = append(row, formatFloat(v))
	}
	row = append(row, formatFloat(r.SSE), formatFloat(r.RSquared), strconv.Itoa(r.Evaluations), r.Status)
	for i, v := range r.Overloaded {
		if c.overloaded[i] == "theta" {
			v = units.ConvertAngle(v, c.angleUnits)
		}
		row = append(row, formatFloat(v))
	}
	row = append(row, "")
	return c.w.Write(row)
}

// Flush flushes buffered rows and reports any write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// WriteSummary logs the mean and spread of each parameter over the
// successful rows.
func WriteSummary(params []string, rows []FitRow) {
	var ok []FitRow
	for _, r := range rows {
		if r.Err == nil && len(r.Estimate) == len(params) {
			ok = append(ok, r)
		}
	}
	if len(ok) == 0 {
		logf("WARNING: no successful fits to summarise")
		return
	}
	for i, name := range params {
		vals := make([]float64, len(ok))
		for j, r := range ok {
			vals[j] = r.Estimate[i]
		}
		mean, std := MeanStddev(vals)
		logf("%s: %.4f±%.4f over %d voxels", name, mean, std, len(ok))
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
