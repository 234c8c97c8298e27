package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/retinotopy/internal/model"
	"github.com/banshee-data/retinotopy/internal/sweep"
)

// CoarseResult is the best grid point with its least-squares scaling.
type CoarseResult struct {
	// Params is the full tuple: the grid point followed by beta and baseline.
	Params []float64
	SSE    float64
	// Index is the position of the winning point in sweep order.
	Index int
	// Evaluated counts grid points the model could evaluate.
	Evaluated int
}

// CoarseSearch scores every point of the Cartesian product of grids, last
// grid varying fastest. Each point's unscaled prediction is regressed onto
// data to obtain beta and baseline; the point with the smallest residual sum
// of squares wins, ties going to the earlier point. Points the model rejects
// are skipped.
func CoarseSearch(m model.Model, data []float64, grids []Grid) (CoarseResult, error) {
	if len(grids) != m.SearchParams() {
		return CoarseResult{}, fmt.Errorf("%w: %d grids for %d search parameters", ErrArity, len(grids), m.SearchParams())
	}
	values := make([][]float64, len(grids))
	for i, g := range grids {
		if len(g) == 0 {
			return CoarseResult{}, fmt.Errorf("%w: %s", ErrEmptyGrid, m.Params()[i])
		}
		values[i] = g
	}

	best := CoarseResult{SSE: math.Inf(1), Index: -1}
	var firstErr error
	sweep.ForEachCombo(values, func(i int, combo []float64) bool {
		z, err := m.GenerateUnscaled(combo)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return true
		}
		best.Evaluated++
		beta, baseline := scaleFit(z, data)
		sse := sumSquaredResiduals(data, z, beta, baseline)
		if sse < best.SSE {
			best.SSE = sse
			best.Index = i
			best.Params = append(append(best.Params[:0], combo...), beta, baseline)
		}
		return true
	})
	if best.Index < 0 {
		return CoarseResult{}, fmt.Errorf("%w: %v", ErrNoValidGridPoint, firstErr)
	}
	return best, nil
}

// scaleFit returns the least-squares beta and baseline of data against z.
// A flat prediction carries no signal, so only the baseline is fitted.
func scaleFit(z, data []float64) (beta, baseline float64) {
	if floats.Norm(z, 2) == 0 {
		return 0, stat.Mean(data, nil)
	}
	baseline, beta = stat.LinearRegression(z, data, nil, false)
	return beta, baseline
}

func sumSquaredResiduals(data, z []float64, beta, baseline float64) float64 {
	var sse float64
	for i, y := range data {
		r := y - (beta*z[i] + baseline)
		sse += r * r
	}
	return sse
}

func sse(data, pred []float64) float64 {
	var s float64
	for i, y := range data {
		r := y - pred[i]
		s += r * r
	}
	return s
}
