package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/retinotopy/internal/kernel"
	"github.com/banshee-data/retinotopy/internal/stimulus"
)

// channels holds the magnocellular and parvocellular impulse responses and
// their peak amplitudes per flicker condition. Index 0 is the static frame.
type channels struct {
	fps  float64
	hz   []float64
	mIR  []float64
	pIR  []float64
	mAmp []float64
	pAmp []float64
}

func newChannels(stim *stimulus.VisualStimulus, tau float64) (channels, error) {
	if !stim.HasFlicker() {
		return channels{}, ErrNoFlicker
	}
	fps := stim.FPS()
	_, m := kernel.MagnoIR(tau, fps)
	_, p := kernel.ParvoIR(tau, fps)
	hz := stim.FlickerHz()

	c := channels{fps: fps, hz: hz, mIR: m, pIR: p}
	conds := append([]float64{0}, hz...)
	for _, f := range conds {
		c.mAmp = append(c.mAmp, kernel.PeakAmplitude(m, fps, f))
		c.pAmp = append(c.pAmp, kernel.PeakAmplitude(p, fps, f))
	}
	return c, nil
}

// mix weights the spatial drive by the channel gain of each TR's condition.
func (c channels) mix(stim *stimulus.VisualStimulus, drive []float64, weight float64) []float64 {
	out := make([]float64, len(drive))
	for t, s := range drive {
		k := stim.Condition(t)
		out[t] = s * (weight*c.mAmp[k] + (1-weight)*c.pAmp[k])
	}
	return out
}

// MRF is the magnocellular impulse response sampled at the projector rate.
func (c channels) MRF() []float64 { return append([]float64(nil), c.mIR...) }

// PRF is the parvocellular impulse response sampled at the projector rate.
func (c channels) PRF() []float64 { return append([]float64(nil), c.pIR...) }

// MAmp is the magnocellular peak amplitude at each flicker frequency.
func (c channels) MAmp() []float64 { return append([]float64(nil), c.mAmp[1:]...) }

// PAmp is the parvocellular peak amplitude at each flicker frequency.
func (c channels) PAmp() []float64 { return append([]float64(nil), c.pAmp[1:]...) }

// GenerateMResp returns the magnocellular response to one second of each
// flicker frequency: one row per sample, one column per frequency. It is nil
// when the schedule names no frequencies.
func (c channels) GenerateMResp() *mat.Dense { return c.response(c.mIR) }

// GeneratePResp is the parvocellular counterpart of GenerateMResp.
func (c channels) GeneratePResp() *mat.Dense { return c.response(c.pIR) }

func (c channels) response(h []float64) *mat.Dense {
	if len(c.hz) == 0 {
		return nil
	}
	out := mat.NewDense(len(h), len(c.hz), nil)
	for j, f := range c.hz {
		out.SetCol(j, kernel.ChannelResponse(h, c.fps, f))
	}
	return out
}

// SpatioTemporalModel mixes magnocellular and parvocellular channel gains
// with a single weight on top of a spatial receptive field.
type SpatioTemporalModel struct {
	spatial
	channels
}

var spatioTemporalParams = []string{ParamX, ParamY, ParamSigma, ParamWeight, ParamBeta, ParamBaseline}

// NewSpatioTemporalModel builds a SpatioTemporalModel. The stimulus must
// carry a flicker schedule.
func NewSpatioTemporalModel(stim *stimulus.VisualStimulus, opts Options) (*SpatioTemporalModel, error) {
	s, err := newSpatial(stim, opts)
	if err != nil {
		return nil, err
	}
	c, err := newChannels(stim, s.opts.Tau)
	if err != nil {
		return nil, err
	}
	return &SpatioTemporalModel{spatial: s, channels: c}, nil
}

func (m *SpatioTemporalModel) Params() []string {
	return append([]string(nil), spatioTemporalParams...)
}
func (m *SpatioTemporalModel) SearchParams() int { return 4 }

func (m *SpatioTemporalModel) GenerateUnscaled(p []float64) ([]float64, error) {
	if err := checkArity(p, m.SearchParams()); err != nil {
		return nil, err
	}
	s, err := m.drive(p[0], p[1], p[2])
	if err != nil {
		return nil, err
	}
	return kernel.ZScore(kernel.Convolve(m.mix(m.stim, s, p[3]), m.hrf)), nil
}

func (m *SpatioTemporalModel) GeneratePrediction(p []float64) ([]float64, error) {
	if err := checkArity(p, len(spatioTemporalParams)); err != nil {
		return nil, err
	}
	z, err := m.GenerateUnscaled(p[:4])
	if err != nil {
		return nil, err
	}
	return scale(z, p[4], p[5]), nil
}

// SpatioTemporalHRFModel extends SpatioTemporalModel with a fitted HRF delay.
type SpatioTemporalHRFModel struct {
	spatial
	channels
}

var spatioTemporalHRFParams = []string{ParamX, ParamY, ParamSigma, ParamWeight, ParamHRFDelay, ParamBeta, ParamBaseline}

// NewSpatioTemporalHRFModel builds a SpatioTemporalHRFModel. Options.HRFDelay
// is ignored; the delay is a fitted parameter.
func NewSpatioTemporalHRFModel(stim *stimulus.VisualStimulus, opts Options) (*SpatioTemporalHRFModel, error) {
	opts.HRFDelay = 0
	s, err := newSpatial(stim, opts)
	if err != nil {
		return nil, err
	}
	c, err := newChannels(stim, s.opts.Tau)
	if err != nil {
		return nil, err
	}
	return &SpatioTemporalHRFModel{spatial: s, channels: c}, nil
}

func (m *SpatioTemporalHRFModel) Params() []string {
	return append([]string(nil), spatioTemporalHRFParams...)
}
func (m *SpatioTemporalHRFModel) SearchParams() int { return 5 }

func (m *SpatioTemporalHRFModel) GenerateUnscaled(p []float64) ([]float64, error) {
	if err := checkArity(p, m.SearchParams()); err != nil {
		return nil, err
	}
	s, err := m.drive(p[0], p[1], p[2])
	if err != nil {
		return nil, err
	}
	hrf, err := kernel.DoubleGammaHRF(p[4], m.stim.TRLength())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParam, err)
	}
	return kernel.ZScore(kernel.Convolve(m.mix(m.stim, s, p[3]), hrf)), nil
}

func (m *SpatioTemporalHRFModel) GeneratePrediction(p []float64) ([]float64, error) {
	if err := checkArity(p, len(spatioTemporalHRFParams)); err != nil {
		return nil, err
	}
	z, err := m.GenerateUnscaled(p[:5])
	if err != nil {
		return nil, err
	}
	return scale(z, p[5], p[6]), nil
}

// Channels is implemented by models that expose temporal channel outputs.
type Channels interface {
	MRF() []float64
	PRF() []float64
	MAmp() []float64
	PAmp() []float64
	GenerateMResp() *mat.Dense
	GeneratePResp() *mat.Dense
}

var (
	_ Model    = (*GaussianModel)(nil)
	_ Model    = (*SpatioTemporalModel)(nil)
	_ Model    = (*SpatioTemporalHRFModel)(nil)
	_ Channels = (*SpatioTemporalModel)(nil)
	_ Channels = (*SpatioTemporalHRFModel)(nil)
)
