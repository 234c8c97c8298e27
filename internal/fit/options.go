package fit

import (
	"errors"
	"fmt"
)

var (
	// ErrArity is returned when grids or bounds do not match the model.
	ErrArity = errors.New("grid or bound count does not match model parameters")
	// ErrEmptyGrid is returned for a grid with no values.
	ErrEmptyGrid = errors.New("empty parameter grid")
	// ErrDataLength is returned when data and stimulus lengths differ.
	ErrDataLength = errors.New("data length does not match stimulus")
	// ErrNonFinite is returned when data holds NaN or Inf.
	ErrNonFinite = errors.New("data contains non-finite values")
	// ErrBoundOrder is returned for a bound whose min exceeds its max.
	ErrBoundOrder = errors.New("bound min exceeds max")
	// ErrNoValidGridPoint is returned when the model rejects every grid point.
	ErrNoValidGridPoint = errors.New("no grid point produced a prediction")
)

// Options control the refinement stage.
type Options struct {
	// MaxEvaluations caps objective evaluations per optimiser run.
	MaxEvaluations int `json:"max_evaluations" yaml:"max_evaluations"`
	// Tolerance is the absolute change in SSE treated as no progress.
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
	// StallIterations is how many iterations without progress end a run.
	StallIterations int `json:"stall_iterations" yaml:"stall_iterations"`
	// SimplexSize is the initial simplex edge in the unconstrained space.
	SimplexSize float64 `json:"simplex_size" yaml:"simplex_size"`
	// Restarts re-seed the simplex at the best point found.
	Restarts int `json:"restarts" yaml:"restarts"`
}

// Default refinement settings.
const (
	DefaultMaxEvaluations  = 20000
	DefaultTolerance       = 1e-10
	DefaultStallIterations = 100
	DefaultSimplexSize     = 0.05
	DefaultRestarts        = 1
)

// DefaultOptions returns the refinement defaults.
func DefaultOptions() Options {
	return Options{
		MaxEvaluations:  DefaultMaxEvaluations,
		Tolerance:       DefaultTolerance,
		StallIterations: DefaultStallIterations,
		SimplexSize:     DefaultSimplexSize,
		Restarts:        DefaultRestarts,
	}
}

// withDefaults fills zero fields. A negative Restarts disables restarts.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxEvaluations <= 0 {
		o.MaxEvaluations = d.MaxEvaluations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.StallIterations <= 0 {
		o.StallIterations = d.StallIterations
	}
	if o.SimplexSize <= 0 {
		o.SimplexSize = d.SimplexSize
	}
	if o.Restarts < 0 {
		o.Restarts = 0
	}
	return o
}

// Validate rejects settings that cannot run.
func (o Options) Validate() error {
	if o.MaxEvaluations < 0 {
		return fmt.Errorf("max_evaluations must be non-negative, got %d", o.MaxEvaluations)
	}
	if o.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative, got %g", o.Tolerance)
	}
	if o.SimplexSize < 0 {
		return fmt.Errorf("simplex_size must be non-negative, got %g", o.SimplexSize)
	}
	return nil
}
