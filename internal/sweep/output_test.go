package sweep

import (
	"bytes"
	"errors"
	"log"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/retinotopy/internal/monitoring"
	"github.com/banshee-data/retinotopy/internal/units"
)

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf, []string{"x", "y", "sigma", "beta", "baseline"}, []string{"theta", "rho"})
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteRow(FitRow{
		Voxel:       3,
		Estimate:    []float64{1, -2, 0.5, 100, 0},
		Overloaded:  []float64{-1.1071487177940904, 2.23606797749979},
		SSE:         0.25,
		RSquared:    0.99,
		Evaluations: 812,
		Status:      "FunctionConvergence",
	}))
	require.NoError(t, w.WriteRow(FitRow{Voxel: 4, Err: errors.New("non-finite data")}))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "voxel,x,y,sigma,beta,baseline,sse,r_squared,evaluations,status,overloaded_theta,overloaded_rho,error", lines[0])
	assert.Equal(t, "3,1,-2,0.5,100,0,0.25,0.99,812,FunctionConvergence,-1.1071487177940904,2.23606797749979,", lines[1])
	assert.Equal(t, "4,,,,,,,,,failed,,,non-finite data", lines[2])

	err := w.WriteRow(FitRow{Voxel: 5, Estimate: []float64{1}})
	assert.Error(t, err)
}

func TestCSVWriterAngleUnits(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf, []string{"x", "y"}, []string{"theta", "rho"}).WithAngleUnits(units.Degrees)
	require.NoError(t, w.WriteRow(FitRow{
		Estimate:   []float64{0, 2},
		Overloaded: []float64{math.Pi / 2, 2},
	}))
	require.NoError(t, w.Flush())

	fields := strings.Split(strings.TrimSpace(buf.String()), ",")
	require.Len(t, fields, 10)
	theta, err := strconv.ParseFloat(fields[7], 64)
	require.NoError(t, err)
	assert.InDelta(t, 90, theta, 1e-9)
	assert.Equal(t, "2", fields[8], "rho is not an angle")
}

func TestWriteSummary(t *testing.T) {
	var logs []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logs = append(logs, format)
	})
	defer monitoring.SetLogger(log.Printf)

	WriteSummary([]string{"x"}, []FitRow{{Estimate: []float64{1}}, {Estimate: []float64{3}}, {Err: errors.New("x")}})
	assert.Len(t, logs, 1)

	logs = nil
	WriteSummary([]string{"x"}, nil)
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0], "WARNING")
}

func TestSeriesRoundTrip(t *testing.T) {
	series := [][]float64{{1, 2.5, -3}, {0.1, 0.2, 0.30000000000000004}}
	var buf bytes.Buffer
	require.NoError(t, WriteSeriesCSV(&buf, series))

	got, err := ReadSeriesCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, series, got)
}

func TestReadSeriesCSV(t *testing.T) {
	got, err := ReadSeriesCSV(strings.NewReader("t0,t1\n1,2\n3,4\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, got)

	_, err = ReadSeriesCSV(strings.NewReader("1,2\n3\n"))
	assert.ErrorIs(t, err, ErrRaggedSeries)

	_, err = ReadSeriesCSV(strings.NewReader("1,2\n3,x\n"))
	assert.Error(t, err)
}
