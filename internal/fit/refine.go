package fit

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/optimize"

	"github.com/banshee-data/retinotopy/internal/model"
)

// rejected is the objective value for tuples the model cannot evaluate.
const rejected = 1e300

// Refinement is the outcome of a bounded local search.
type Refinement struct {
	Params      []float64
	SSE         float64
	Evaluations int
	Status      string
}

// Refine minimises the residual sum of squares from start with Nelder-Mead,
// searching an unconstrained space mapped onto bounds so every proposal
// respects them. Start values outside bounds are clamped first.
func Refine(ctx context.Context, m model.Model, data, start []float64, bounds []Bound, opts Options) (Refinement, error) {
	n := len(m.Params())
	if len(start) != n || len(bounds) != n {
		return Refinement{}, fmt.Errorf("%w: start %d, bounds %d, params %d", ErrArity, len(start), len(bounds), n)
	}
	for i, b := range bounds {
		if err := b.Validate(); err != nil {
			return Refinement{}, fmt.Errorf("%s: %w", m.Params()[i], err)
		}
	}
	if err := ctx.Err(); err != nil {
		return Refinement{}, err
	}
	opts = opts.withDefaults()

	ts := newTransforms(bounds)
	x := make([]float64, n)
	problem := optimize.Problem{
		Func: func(u []float64) float64 {
			pred, err := m.GeneratePrediction(ts.external(x, u))
			if err != nil {
				return rejected
			}
			return sse(data, pred)
		},
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}

	clamped := make([]float64, n)
	for i, v := range start {
		clamped[i] = bounds[i].Clamp(v)
	}
	u := ts.internal(clamped)

	out := Refinement{Params: clamped, SSE: problem.Func(u), Evaluations: 1, Status: "NotTerminated"}
	for run := 0; run <= opts.Restarts; run++ {
		settings := &optimize.Settings{
			FuncEvaluations: opts.MaxEvaluations,
			Converger: &optimize.FunctionConverge{
				Absolute:   opts.Tolerance,
				Iterations: opts.StallIterations,
			},
		}
		method := &optimize.NelderMead{SimplexSize: opts.SimplexSize}

		res, err := optimize.Minimize(problem, u, settings, method)
		if res == nil {
			return Refinement{}, fmt.Errorf("nelder-mead: %w", err)
		}
		out.Evaluations += res.Stats.FuncEvaluations
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Refinement{}, ctxErr
			}
			logf("nelder-mead run %d stopped: %v", run, err)
		}
		if res.F < out.SSE {
			out.SSE = res.F
			out.Params = ts.external(nil, res.X)
			out.Status = res.Status.String()
			u = append(u[:0], res.X...)
		} else {
			if run == 0 {
				out.Status = res.Status.String()
			}
			break
		}
	}
	return out, nil
}
