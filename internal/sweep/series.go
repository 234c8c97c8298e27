package sweep

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrRaggedSeries is returned when voxel rows differ in length.
var ErrRaggedSeries = errors.New("voxel time series have different lengths")

// ReadSeriesCSV reads one voxel time series per row. Rows whose first field
// does not parse as a number are treated as a header and skipped.
func ReadSeriesCSV(r io.Reader) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var out [][]float64
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading series csv: %w", err)
		}
		line++
		if len(rec) == 0 {
			continue
		}
		if _, err := strconv.ParseFloat(rec[0], 64); err != nil && line == 1 {
			continue
		}
		row := make([]float64, len(rec))
		for i, f := range rec {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, i+1, err)
			}
			row[i] = v
		}
		if len(out) > 0 && len(row) != len(out[0]) {
			return nil, fmt.Errorf("%w: line %d has %d samples, want %d", ErrRaggedSeries, line, len(row), len(out[0]))
		}
		out = append(out, row)
	}
	return out, nil
}

// WriteSeriesCSV writes one voxel time series per row.
func WriteSeriesCSV(w io.Writer, series [][]float64) error {
	cw := csv.NewWriter(w)
	for _, s := range series {
		rec := make([]string, len(s))
		for i, v := range s {
			rec[i] = formatFloat(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
