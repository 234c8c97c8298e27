package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// squareGrid builds pixel-centre coordinates for an n×n screen of the given
// pixel pitch in degrees.
func squareGrid(n int, pixelDeg float64) (degX, degY []float64) {
	half := float64(n) / 2
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			degX = append(degX, (float64(c)-half+0.5)*pixelDeg)
			degY = append(degY, -(float64(r)-half+0.5)*pixelDeg)
		}
	}
	return degX, degY
}

func TestParseShape(t *testing.T) {
	tests := []struct {
		in      string
		want    Shape
		wantErr bool
	}{
		{"", ShapeGaussian, false},
		{"gaussian", ShapeGaussian, false},
		{"cosine", ShapeCosine, false},
		{"2dcos", ShapeCosine, false},
		{"boxcar", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseShape(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "cosine", ShapeCosine.String())
}

func TestGaussianPeakAndSymmetry(t *testing.T) {
	degX, degY := squareGrid(40, 0.25)
	rf := Gaussian(0.125, 0.125, 1.5, degX, degY)

	assert.InDelta(t, 1.0, floats.Max(rf), 1e-12)
	// Pixels mirrored about the centre pixel have equal weight.
	a := Gaussian(0, 0, 1.5, degX, degY)
	assert.InDelta(t, a[0], a[len(a)-1], 1e-12)
}

func TestRaisedCosineSupport(t *testing.T) {
	degX, degY := squareGrid(40, 0.25)

	disk := RaisedCosine(0, 0, 2, 0, degX, degY)
	for i := range disk {
		d := math.Hypot(degX[i], degY[i])
		if d <= 2 {
			assert.Equal(t, 1.0, disk[i])
		} else {
			assert.Equal(t, 0.0, disk[i])
		}
	}

	cos := RaisedCosine(0, 0, 2, 1, degX, degY)
	for i := range cos {
		assert.GreaterOrEqual(t, cos[i], 0.0)
		assert.LessOrEqual(t, cos[i], 1.0)
	}
}

func TestNormaliseAreaSumsToOne(t *testing.T) {
	const pixelDeg = 0.1
	degX, degY := squareGrid(200, pixelDeg)

	for _, sigma := range []float64{0.5, 1, 2} {
		rf := Gaussian(0.3, -0.2, sigma, degX, degY)
		NormaliseArea(rf, sigma, pixelDeg)
		assert.InDelta(t, 1.0, floats.Sum(rf), 1e-4, "sigma=%v", sigma)
	}
}

func TestDistanceMask(t *testing.T) {
	degX, degY := squareGrid(20, 1)
	idx := DistanceMask(0, 0, 1, 2, degX, degY)
	require.NotEmpty(t, idx)
	for _, i := range idx {
		assert.LessOrEqual(t, math.Hypot(degX[i], degY[i]), 2.0)
	}
	// A cosine kernel is confined to sigma regardless of mask size.
	cos := Spatial{Shape: ShapeCosine, Power: 1}.Mask(0, 0, 1, 5, degX, degY)
	assert.Less(t, len(cos), len(DistanceMask(0, 0, 1, 5, degX, degY)))
}

func TestTemporalNormalisation(t *testing.T) {
	tt, p := ParvoIR(DefaultTau, 480)
	assert.Len(t, p, 480)
	assert.InDelta(t, 1.0, Simpson(tt, p), 1e-9)

	tm, m := MagnoIR(DefaultTau, 480)
	abs := make([]float64, len(m))
	for i, v := range m {
		require.False(t, math.IsNaN(v), "magno sample %d", i)
		abs[i] = math.Abs(v)
	}
	assert.Greater(t, m[0], 0.0)
	assert.InDelta(t, 1.0, Simpson(tm, abs), 1e-9)
}

func TestPeakAmplitudeOrdering(t *testing.T) {
	_, m := MagnoIR(DefaultTau, 480)
	_, p := ParvoIR(DefaultTau, 480)

	m10 := PeakAmplitude(m, 480, 10)
	m20 := PeakAmplitude(m, 480, 20)
	p10 := PeakAmplitude(p, 480, 10)
	p20 := PeakAmplitude(p, 480, 20)

	assert.Less(t, m10, m20, "magno favours faster flicker")
	assert.Greater(t, p10, p20, "parvo favours slower flicker")
	assert.InDelta(t, 1.0, PeakAmplitude(p, 480, 0), 1e-6)
	assert.Less(t, PeakAmplitude(m, 480, 0), 0.01)
}

func TestGammaIR(t *testing.T) {
	assert.Equal(t, 0.0, GammaIR(-1, 3, 0.01))
	assert.InDelta(t, 100.0, GammaIR(0, 1, 0.01), 1e-9)
	assert.Equal(t, 0.0, GammaIR(0, 2, 0.01))
	// n=1 is a plain exponential decay.
	assert.InDelta(t, math.Exp(-1)/0.01, GammaIR(0.01, 1, 0.01), 1e-9)
}

func TestDoubleGammaHRF(t *testing.T) {
	tests := []struct {
		name  string
		delay float64
		tr    float64
	}{
		{"canonical", 0, 0.1},
		{"late", 1.5, 0.1},
		{"early", -1, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := DoubleGammaHRF(tt.delay, tt.tr)
			require.NoError(t, err)
			assert.Len(t, h, 320)
			assert.InDelta(t, 1.0, floats.Sum(h), 1e-9)
			peak := float64(floats.MaxIdx(h)) * tt.tr
			assert.InDelta(t, HRFPeakSeconds+tt.delay, peak, 0.3)
		})
	}

	_, err := DoubleGammaHRF(MinHRFDelay, 1)
	assert.Error(t, err)
	_, err = DoubleGammaHRF(0, 0)
	assert.Error(t, err)
}

func TestConvolvePaths(t *testing.T) {
	signal := make([]float64, 150)
	for i := range signal {
		signal[i] = math.Sin(float64(i)/7) + float64(i%11)/10
	}
	kernel, err := DoubleGammaHRF(0.5, 0.25)
	require.NoError(t, err)
	require.Greater(t, len(kernel), directConvolutionTaps)

	direct := ConvolveDirect(signal, kernel)
	viaFFT := ConvolveFFT(signal, kernel)
	require.Len(t, viaFFT, len(signal))
	for i := range direct {
		assert.InDelta(t, direct[i], viaFFT[i], 1e-9, "sample %d", i)
	}
	assert.Equal(t, viaFFT, Convolve(signal, kernel))
}

func TestConvolveImpulse(t *testing.T) {
	impulse := make([]float64, 10)
	impulse[0] = 1
	k := []float64{0.5, 0.3, 0.2}
	got := Convolve(impulse, k)
	assert.Equal(t, []float64{0.5, 0.3, 0.2, 0, 0, 0, 0, 0, 0, 0}, got)
	assert.Empty(t, ConvolveFFT(nil, k))
}

func TestZScore(t *testing.T) {
	assert.Equal(t, []float64{0, 0, 0}, ZScore([]float64{4, 4, 4}))

	z := ZScore([]float64{1, 2, 3, 4, 5})
	assert.InDelta(t, 0, floats.Sum(z), 1e-12)
	var ss float64
	for _, v := range z {
		ss += v * v
	}
	assert.InDelta(t, float64(len(z)), ss, 1e-9)
}
