// Package model generates predicted voxel time series from population
// receptive field parameters.
//
// Every model lays its parameters out in a fixed order: the non-linear
// parameters explored by the grid search come first, followed by beta and
// baseline, which scale the z-scored prediction. Models are immutable after
// construction and safe for concurrent use.
package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/retinotopy/internal/kernel"
	"github.com/banshee-data/retinotopy/internal/stimulus"
)

// Parameter names shared by all models.
const (
	ParamX        = "x"
	ParamY        = "y"
	ParamSigma    = "sigma"
	ParamWeight   = "weight"
	ParamHRFDelay = "hrf_delay"
	ParamBeta     = "beta"
	ParamBaseline = "baseline"
)

var (
	// ErrParamArity is returned when a parameter tuple has the wrong length.
	ErrParamArity = errors.New("wrong number of model parameters")
	// ErrNoFlicker is returned when a spatiotemporal model is built over a
	// stimulus without a flicker schedule.
	ErrNoFlicker = errors.New("stimulus has no flicker schedule")
	// ErrInvalidParam is returned for parameter values the model cannot
	// evaluate, such as a non-positive sigma.
	ErrInvalidParam = errors.New("invalid model parameter")
)

// Model is a pRF prediction generator.
type Model interface {
	// Params lists parameter names in tuple order.
	Params() []string
	// SearchParams is the number of leading parameters covered by grids.
	SearchParams() int
	// GeneratePrediction evaluates the full tuple, beta and baseline included.
	GeneratePrediction(p []float64) ([]float64, error)
	// GenerateUnscaled evaluates the search tuple, returning the z-scored
	// prediction with beta=1 and baseline=0.
	GenerateUnscaled(p []float64) ([]float64, error)
	// GenerateReceptiveField returns the masked, area-normalised kernel over
	// the resampled stimulus pixels.
	GenerateReceptiveField(x, y, sigma float64) []float64
	Stimulus() *stimulus.VisualStimulus
}

// Options tune prediction. Zero Tau and MaskSize select the defaults. Power
// is taken as given, and zero turns the raised cosine into a uniform disk.
type Options struct {
	// Tau is the temporal stage time constant in seconds.
	Tau float64
	// MaskSize limits a Gaussian kernel to MaskSize sigmas.
	MaskSize float64
	// HRFDelay shifts the HRF of models that do not fit it.
	HRFDelay float64
	Kernel   kernel.Shape
	// Power shapes the raised cosine kernel.
	Power float64
}

// Default option values.
const (
	DefaultMaskSize = 5.0
	DefaultPower    = 1.0
)

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Tau:      kernel.DefaultTau,
		MaskSize: DefaultMaskSize,
		Kernel:   kernel.ShapeGaussian,
		Power:    DefaultPower,
	}
}

func (o Options) withDefaults() Options {
	if o.Tau <= 0 {
		o.Tau = kernel.DefaultTau
	}
	if o.MaskSize <= 0 {
		o.MaskSize = DefaultMaskSize
	}
	return o
}

// Index returns the position of name in m's parameter tuple, or -1.
func Index(m Model, name string) int {
	for i, p := range m.Params() {
		if p == name {
			return i
		}
	}
	return -1
}

// spatial is the receptive-field and HRF machinery shared by all models.
type spatial struct {
	stim    *stimulus.VisualStimulus
	opts    Options
	profile kernel.Spatial
	hrf     []float64
}

func newSpatial(stim *stimulus.VisualStimulus, opts Options) (spatial, error) {
	if stim == nil {
		return spatial{}, stimulus.ErrEmptyStimulus
	}
	opts = opts.withDefaults()
	if opts.Power < 0 {
		return spatial{}, fmt.Errorf("kernel power must be non-negative, got %g", opts.Power)
	}
	hrf, err := kernel.DoubleGammaHRF(opts.HRFDelay, stim.TRLength())
	if err != nil {
		return spatial{}, fmt.Errorf("building hrf: %w", err)
	}
	return spatial{
		stim:    stim,
		opts:    opts,
		profile: kernel.Spatial{Shape: opts.Kernel, Power: opts.Power},
		hrf:     hrf,
	}, nil
}

func (s spatial) Stimulus() *stimulus.VisualStimulus { return s.stim }

// Options returns the effective options.
func (s spatial) Options() Options { return s.opts }

// maskedField returns the covered pixel indices and their normalised weights.
func (s spatial) maskedField(x, y, sigma float64) ([]int, []float64) {
	degX, degY := s.stim.DegX(), s.stim.DegY()
	idx := s.profile.Mask(x, y, sigma, s.opts.MaskSize, degX, degY)
	norm := kernel.AreaNorm(sigma, s.stim.PixelDeg())
	w := make([]float64, len(idx))
	for i, p := range idx {
		dx := degX[p] - x
		dy := degY[p] - y
		w[i] = s.profile.Value(dx*dx+dy*dy, sigma) / norm
	}
	return idx, w
}

func (s spatial) GenerateReceptiveField(x, y, sigma float64) []float64 {
	rf := make([]float64, s.stim.Pixels())
	idx, w := s.maskedField(x, y, sigma)
	for i, p := range idx {
		rf[p] = w[i]
	}
	return rf
}

// drive is the receptive-field weighted stimulus at each TR.
func (s spatial) drive(x, y, sigma float64) ([]float64, error) {
	if !(sigma > 0) || math.IsInf(sigma, 0) || !finite(x) || !finite(y) {
		return nil, fmt.Errorf("%w: x=%f y=%f sigma=%f", ErrInvalidParam, x, y, sigma)
	}
	out := make([]float64, s.stim.Len())
	idx, w := s.maskedField(x, y, sigma)
	for i, p := range idx {
		series := s.stim.Series(p)
		for t, v := range series {
			out[t] += w[i] * v
		}
	}
	return out, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// scale maps a z-scored series onto beta·z + baseline.
func scale(z []float64, beta, baseline float64) []float64 {
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = beta*v + baseline
	}
	return out
}

func checkArity(p []float64, want int) error {
	if len(p) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrParamArity, len(p), want)
	}
	return nil
}
