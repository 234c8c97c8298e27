package model

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/retinotopy/internal/kernel"
	"github.com/banshee-data/retinotopy/internal/stimulus"
	"github.com/banshee-data/retinotopy/internal/testutil"
)

func TestParamLayout(t *testing.T) {
	stim := testutil.BarStimulus(t)

	g, err := NewGaussianModel(stim, DefaultOptions())
	require.NoError(t, err)
	st, err := NewSpatioTemporalModel(stim, DefaultOptions())
	require.NoError(t, err)
	sth, err := NewSpatioTemporalHRFModel(stim, DefaultOptions())
	require.NoError(t, err)

	tests := []struct {
		name   string
		m      Model
		params []string
		search int
	}{
		{"gaussian", g, []string{"x", "y", "sigma", "beta", "baseline"}, 3},
		{"spatiotemporal", st, []string{"x", "y", "sigma", "weight", "beta", "baseline"}, 4},
		{"spatiotemporal hrf", sth, []string{"x", "y", "sigma", "weight", "hrf_delay", "beta", "baseline"}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.params, tt.m.Params())
			assert.Equal(t, tt.search, tt.m.SearchParams())
			assert.Equal(t, len(tt.params)-2, Index(tt.m, ParamBeta))
			assert.Equal(t, -1, Index(tt.m, "nope"))
			assert.Same(t, stim, tt.m.Stimulus())

			_, err := tt.m.GeneratePrediction(make([]float64, len(tt.params)-1))
			assert.ErrorIs(t, err, ErrParamArity)
			_, err = tt.m.GenerateUnscaled(make([]float64, tt.search+1))
			assert.ErrorIs(t, err, ErrParamArity)
		})
	}
}

func TestSpatioTemporalNeedsFlicker(t *testing.T) {
	stim := testutil.StaticBarStimulus(t)
	_, err := NewSpatioTemporalModel(stim, DefaultOptions())
	assert.True(t, errors.Is(err, ErrNoFlicker))
	_, err = NewSpatioTemporalHRFModel(stim, DefaultOptions())
	assert.True(t, errors.Is(err, ErrNoFlicker))

	_, err = NewGaussianModel(stim, DefaultOptions())
	assert.NoError(t, err)
}

func TestReceptiveFieldConstructionPathsAgree(t *testing.T) {
	stim := testutil.StaticBarStimulus(t)
	m, err := NewGaussianModel(stim, DefaultOptions())
	require.NoError(t, err)

	for _, c := range []struct{ x, y, sigma float64 }{
		{0, 0, 1.5},
		{-3, 2, 2},
		{4, -4, 0.9},
	} {
		rf := m.GenerateReceptiveField(c.x, c.y, c.sigma)
		full := kernel.Gaussian(c.x, c.y, c.sigma, stim.DegX(), stim.DegY())
		kernel.NormaliseArea(full, c.sigma, stim.PixelDeg())

		assert.InDelta(t, floats.Sum(full), floats.Sum(rf), 1e-5, "%+v", c)
		assert.InDelta(t, 1.0, floats.Sum(rf), 1e-3, "%+v", c)
	}
}

func TestCosineReceptiveField(t *testing.T) {
	stim := testutil.StaticBarStimulus(t)
	opts := DefaultOptions()
	opts.Kernel = kernel.ShapeCosine
	m, err := NewGaussianModel(stim, opts)
	require.NoError(t, err)

	rf := m.GenerateReceptiveField(1, 1, 3)
	for p, v := range rf {
		if v == 0 {
			continue
		}
		assert.LessOrEqual(t, math.Hypot(stim.DegX()[p]-1, stim.DegY()[p]-1), 3.0)
	}
	assert.Positive(t, floats.Sum(rf))
}

func TestGeneratePredictionScaling(t *testing.T) {
	stim := testutil.BarStimulus(t)
	m, err := NewSpatioTemporalHRFModel(stim, DefaultOptions())
	require.NoError(t, err)

	search := []float64{-2, 3, 1.8, 0.4, 0.5}
	z, err := m.GenerateUnscaled(search)
	require.NoError(t, err)
	require.Len(t, z, stim.Len())

	mean := floats.Sum(z) / float64(len(z))
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, float64(len(z)), floats.Dot(z, z), 1e-6)

	pred, err := m.GeneratePrediction(append(search, 2.5, 10))
	require.NoError(t, err)
	for i := range pred {
		assert.InDelta(t, 2.5*z[i]+10, pred[i], 1e-12)
	}
}

func TestPredictionDependsOnParameters(t *testing.T) {
	stim := testutil.BarStimulus(t)
	m, err := NewSpatioTemporalHRFModel(stim, DefaultOptions())
	require.NoError(t, err)

	base, err := m.GenerateUnscaled([]float64{-2, 3, 1.8, 0.4, 0})
	require.NoError(t, err)

	for name, p := range map[string][]float64{
		"x":      {2, 3, 1.8, 0.4, 0},
		"sigma":  {-2, 3, 3, 0.4, 0},
		"weight": {-2, 3, 1.8, 0.9, 0},
		"delay":  {-2, 3, 1.8, 0.4, 1.5},
	} {
		other, err := m.GenerateUnscaled(p)
		require.NoError(t, err)
		assert.Greater(t, floats.Distance(base, other, 2), 1e-3, name)
	}
}

func TestInvalidParameters(t *testing.T) {
	stim := testutil.BarStimulus(t)
	m, err := NewSpatioTemporalHRFModel(stim, DefaultOptions())
	require.NoError(t, err)

	for name, p := range map[string][]float64{
		"zero sigma":     {0, 0, 0, 0.5, 0},
		"negative sigma": {0, 0, -1, 0.5, 0},
		"nan x":          {math.NaN(), 0, 1, 0.5, 0},
		"delay":          {0, 0, 1, 0.5, -6},
	} {
		_, err := m.GenerateUnscaled(p)
		assert.ErrorIs(t, err, ErrInvalidParam, name)
	}
}

func TestBlankStimulusPredictsZeros(t *testing.T) {
	frames := make([]uint8, 20*20*30)
	stim, err := stimulus.NewVisualStimulus(frames, 20, 20, 38, 25, 1, 1)
	require.NoError(t, err)
	m, err := NewGaussianModel(stim, DefaultOptions())
	require.NoError(t, err)

	pred, err := m.GeneratePrediction([]float64{0, 0, 2, 3, 7})
	require.NoError(t, err)
	for _, v := range pred {
		assert.Equal(t, 7.0, v)
	}
}

func TestOffscreenReceptiveField(t *testing.T) {
	stim := testutil.StaticBarStimulus(t)
	m, err := NewGaussianModel(stim, DefaultOptions())
	require.NoError(t, err)

	z, err := m.GenerateUnscaled([]float64{80, 80, 0.5})
	require.NoError(t, err)
	for _, v := range z {
		assert.False(t, math.IsNaN(v))
		assert.Equal(t, 0.0, v)
	}
}

func TestCosinePowerZeroIsUniformDisk(t *testing.T) {
	stim := testutil.StaticBarStimulus(t)
	opts := DefaultOptions()
	opts.Kernel = kernel.ShapeCosine
	opts.Power = 0
	m, err := NewGaussianModel(stim, opts)
	require.NoError(t, err)

	rf := m.GenerateReceptiveField(0, 0, 3)
	var inside []float64
	for _, v := range rf {
		if v != 0 {
			inside = append(inside, v)
		}
	}
	require.NotEmpty(t, inside)
	assert.InDelta(t, floats.Min(inside), floats.Max(inside), 1e-12)

	opts.Power = -1
	_, err = NewGaussianModel(stim, opts)
	assert.Error(t, err)
}

func TestChannelAmplitudes(t *testing.T) {
	stim := testutil.BarStimulus(t)
	m, err := NewSpatioTemporalModel(stim, DefaultOptions())
	require.NoError(t, err)

	mAmp, pAmp := m.MAmp(), m.PAmp()
	require.Len(t, mAmp, 2)
	require.Len(t, pAmp, 2)
	assert.Less(t, mAmp[0], mAmp[1], "magno peak rises from 10 to 20 Hz")
	assert.Greater(t, pAmp[0], pAmp[1], "parvo peak falls from 10 to 20 Hz")

	assert.Len(t, m.MRF(), 480)
	assert.Len(t, m.PRF(), 480)

	mResp := m.GenerateMResp()
	r, c := mResp.Dims()
	assert.Equal(t, 480, r)
	assert.Equal(t, 2, c)
	pResp := m.GeneratePResp()
	assert.Less(t, floats.Max(mat64Col(mResp, 0)), floats.Max(mat64Col(mResp, 1)))
	assert.Greater(t, floats.Max(mat64Col(pResp, 0)), floats.Max(mat64Col(pResp, 1)))
	for _, v := range mat64Col(mResp, 0) {
		require.False(t, math.IsNaN(v))
	}
	// Column peaks over the steady state match the reported amplitudes.
	col := mat64Col(pResp, 1)
	assert.InDelta(t, pAmp[1], floats.Max(col[240:]), 1e-12)
}

func TestConcurrentPredictions(t *testing.T) {
	stim := testutil.BarStimulus(t)
	m, err := NewSpatioTemporalModel(stim, DefaultOptions())
	require.NoError(t, err)

	p := []float64{1, -1, 2, 0.3, 1, 0}
	want, err := m.GeneratePrediction(p)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]float64, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = m.GeneratePrediction(p)
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}
