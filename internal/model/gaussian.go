package model

import (
	"github.com/banshee-data/retinotopy/internal/kernel"
	"github.com/banshee-data/retinotopy/internal/stimulus"
)

// GaussianModel is the classic spatial pRF: a receptive field convolved
// with a fixed HRF, ignoring flicker.
type GaussianModel struct {
	spatial
}

var gaussianParams = []string{ParamX, ParamY, ParamSigma, ParamBeta, ParamBaseline}

// NewGaussianModel builds a GaussianModel over stim.
func NewGaussianModel(stim *stimulus.VisualStimulus, opts Options) (*GaussianModel, error) {
	s, err := newSpatial(stim, opts)
	if err != nil {
		return nil, err
	}
	return &GaussianModel{spatial: s}, nil
}

func (m *GaussianModel) Params() []string  { return append([]string(nil), gaussianParams...) }
func (m *GaussianModel) SearchParams() int { return 3 }

func (m *GaussianModel) GenerateUnscaled(p []float64) ([]float64, error) {
	if err := checkArity(p, m.SearchParams()); err != nil {
		return nil, err
	}
	s, err := m.drive(p[0], p[1], p[2])
	if err != nil {
		return nil, err
	}
	return kernel.ZScore(kernel.Convolve(s, m.hrf)), nil
}

func (m *GaussianModel) GeneratePrediction(p []float64) ([]float64, error) {
	if err := checkArity(p, len(gaussianParams)); err != nil {
		return nil, err
	}
	z, err := m.GenerateUnscaled(p[:3])
	if err != nil {
		return nil, err
	}
	return scale(z, p[3], p[4]), nil
}
