package fit

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/retinotopy/internal/kernel"
	"github.com/banshee-data/retinotopy/internal/model"
	"github.com/banshee-data/retinotopy/internal/monitoring"
	"github.com/banshee-data/retinotopy/internal/units"
)

var logf = monitoring.Component("fit")

// Fit is the coarse and refined estimate for one voxel.
type Fit struct {
	Model  model.Model
	Data   []float64
	Grids  []Grid
	Bounds []Bound

	Coarse    []float64
	CoarseSSE float64

	Estimate    []float64
	SSE         float64
	RSquared    float64
	Evaluations int
	Status      string
}

// New validates its inputs and fits m to data: a coarse grid search seeds a
// bounded refinement. grids cover the search parameters; bounds cover every
// parameter, beta and baseline included.
func New(ctx context.Context, m model.Model, data []float64, grids []Grid, bounds []Bound, opts Options) (*Fit, error) {
	params := m.Params()
	if len(grids) != m.SearchParams() {
		return nil, fmt.Errorf("%w: %d grids for %d search parameters", ErrArity, len(grids), m.SearchParams())
	}
	if len(bounds) != len(params) {
		return nil, fmt.Errorf("%w: %d bounds for %d parameters", ErrArity, len(bounds), len(params))
	}
	for i, g := range grids {
		if len(g) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyGrid, params[i])
		}
	}
	for i, b := range bounds {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", params[i], err)
		}
	}
	if n := m.Stimulus().Len(); len(data) != n {
		return nil, fmt.Errorf("%w: %d samples for %d TRs", ErrDataLength, len(data), n)
	}
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: sample %d is %v", ErrNonFinite, i, v)
		}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	coarse, err := CoarseSearch(m, data, grids)
	if err != nil {
		return nil, err
	}
	fine, err := Refine(ctx, m, data, coarse.Params, bounds, opts)
	if err != nil {
		return nil, err
	}

	f := &Fit{
		Model:       m,
		Data:        data,
		Grids:       grids,
		Bounds:      bounds,
		Coarse:      coarse.Params,
		CoarseSSE:   coarse.SSE,
		Estimate:    fine.Params,
		SSE:         fine.SSE,
		Evaluations: fine.Evaluations,
		Status:      fine.Status,
	}
	f.RSquared = rSquared(data, fine.SSE)
	logf("coarse sse=%.6g at %v; fine sse=%.6g r2=%.4f after %d evaluations (%s)",
		coarse.SSE, coarse.Params, fine.SSE, f.RSquared, fine.Evaluations, fine.Status)
	return f, nil
}

// rSquared is the coefficient of determination. Constant data reports 0.
func rSquared(data []float64, sse float64) float64 {
	mean := stat.Mean(data, nil)
	var sst float64
	for _, y := range data {
		d := y - mean
		sst += d * d
	}
	if sst == 0 {
		return 0
	}
	return 1 - sse/sst
}

// param returns the estimate of name, or NaN when the model lacks it.
func (f *Fit) param(name string) float64 {
	if i := model.Index(f.Model, name); i >= 0 {
		return f.Estimate[i]
	}
	return math.NaN()
}

func (f *Fit) X() float64     { return f.param(model.ParamX) }
func (f *Fit) Y() float64     { return f.param(model.ParamY) }
func (f *Fit) Sigma() float64 { return f.param(model.ParamSigma) }

// Weight is the magnocellular weight, NaN for purely spatial models.
func (f *Fit) Weight() float64 { return f.param(model.ParamWeight) }

// HRFDelay is the fitted HRF delay, NaN when the model does not fit it.
func (f *Fit) HRFDelay() float64 { return f.param(model.ParamHRFDelay) }
func (f *Fit) Beta() float64     { return f.param(model.ParamBeta) }
func (f *Fit) Baseline() float64 { return f.param(model.ParamBaseline) }

// Theta is the polar angle of the receptive field centre in radians.
func (f *Fit) Theta() float64 {
	theta, _ := units.Polar(f.X(), f.Y())
	return theta
}

// Rho is the eccentricity of the receptive field centre in degrees.
func (f *Fit) Rho() float64 {
	_, rho := units.Polar(f.X(), f.Y())
	return rho
}

// OverloadedNames lists the columns of OverloadedEstimate for m.
func OverloadedNames(m model.Model) []string {
	names := []string{"theta", "rho"}
	for _, p := range m.Params() {
		switch p {
		case model.ParamX, model.ParamY:
		case model.ParamHRFDelay:
			names = append(names, "hrf_shape")
		default:
			names = append(names, p)
		}
	}
	return names
}

// OverloadedEstimate re-expresses the estimate in polar form: theta, rho,
// then the remaining parameters in order with the HRF delay reported as the
// shape of the response gamma, kernel.HRFShape + delay.
func (f *Fit) OverloadedEstimate() []float64 {
	theta, rho := units.Polar(f.X(), f.Y())
	out := []float64{theta, rho}
	for i, p := range f.Model.Params() {
		switch p {
		case model.ParamX, model.ParamY:
		case model.ParamHRFDelay:
			out = append(out, kernel.HRFShape+f.Estimate[i])
		default:
			out = append(out, f.Estimate[i])
		}
	}
	return out
}

// ReceptiveField is the kernel at the fitted position and size.
func (f *Fit) ReceptiveField() []float64 {
	return f.Model.GenerateReceptiveField(f.X(), f.Y(), f.Sigma())
}

// Prediction is the model output at the fitted estimate.
func (f *Fit) Prediction() ([]float64, error) {
	return f.Model.GeneratePrediction(f.Estimate)
}

// Residuals is data minus Prediction.
func (f *Fit) Residuals() ([]float64, error) {
	pred, err := f.Prediction()
	if err != nil {
		return nil, err
	}
	res := make([]float64, len(pred))
	for i := range pred {
		res[i] = f.Data[i] - pred[i]
	}
	return res, nil
}
