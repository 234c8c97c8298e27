package kernel

import (
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// directConvolutionTaps is the kernel length above which Convolve switches
// to the FFT path.
const directConvolutionTaps = 64

// Convolve returns the causal linear convolution of signal with kernel,
// truncated to len(signal).
func Convolve(signal, kernel []float64) []float64 {
	if len(kernel) <= directConvolutionTaps {
		return ConvolveDirect(signal, kernel)
	}
	return ConvolveFFT(signal, kernel)
}

// ConvolveDirect is the O(n·k) time-domain convolution.
func ConvolveDirect(signal, kernel []float64) []float64 {
	out := make([]float64, len(signal))
	for i := range out {
		var acc float64
		for k := 0; k < len(kernel) && k <= i; k++ {
			acc += kernel[k] * signal[i-k]
		}
		out[i] = acc
	}
	return out
}

// ConvolveFFT computes the same result as ConvolveDirect with real FFTs,
// zero padding both inputs so the circular product does not wrap.
func ConvolveFFT(signal, kernel []float64) []float64 {
	if len(signal) == 0 || len(kernel) == 0 {
		return make([]float64, len(signal))
	}
	size := 1
	for size < len(signal)+len(kernel)-1 {
		size <<= 1
	}
	fft := fourier.NewFFT(size)

	a := make([]float64, size)
	copy(a, signal)
	b := make([]float64, size)
	copy(b, kernel)

	ca := fft.Coefficients(nil, a)
	cb := fft.Coefficients(nil, b)
	for i := range ca {
		ca[i] *= cb[i]
	}
	seq := fft.Sequence(nil, ca)

	// gonum transforms are unnormalised.
	out := make([]float64, len(signal))
	scale := 1 / float64(size)
	for i := range out {
		out[i] = seq[i] * scale
	}
	return out
}

// Simpson integrates y sampled at x with Simpson's rule.
func Simpson(x, y []float64) float64 {
	return integrate.Simpsons(x, y)
}

// ZScore standardises v. A constant series maps to zeros.
func ZScore(v []float64) []float64 {
	out := make([]float64, len(v))
	if len(v) < 2 {
		return out
	}
	mean, std := stat.PopMeanStdDev(v, nil)
	if std == 0 || std != std {
		return out
	}
	for i, x := range v {
		out[i] = (x - mean) / std
	}
	return out
}
