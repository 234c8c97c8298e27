package kernel

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// parvoStages is the order of the sustained gamma cascade.
	parvoStages = 9
	// DefaultTau is the stage time constant in seconds.
	DefaultTau = 0.00875
)

// GammaIR is the impulse response of an n-stage leaky integrator cascade
// with stage time constant tau, evaluated at time t (seconds).
func GammaIR(t float64, n int, tau float64) float64 {
	if t < 0 {
		return 0
	}
	if t == 0 {
		// t^(n-1) at zero: 1 for a single stage, 0 otherwise.
		if n == 1 {
			return 1 / tau
		}
		return 0
	}
	lg, _ := math.Lgamma(float64(n))
	return math.Exp(float64(n-1)*math.Log(t/tau)-t/tau-lg) / tau
}

// sampleTimes returns fps samples spanning one second.
func sampleTimes(fps float64) []float64 {
	n := int(math.Round(fps))
	if n < 3 {
		n = 3
	}
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i) / fps
	}
	return t
}

// ParvoIR returns the sustained (low-pass) parvocellular impulse response
// sampled at fps over one second, normalised to unit integral.
func ParvoIR(tau, fps float64) (t, h []float64) {
	t = sampleTimes(fps)
	h = make([]float64, len(t))
	for i, ti := range t {
		h[i] = GammaIR(ti, parvoStages, tau)
	}
	if area := Simpson(t, h); area != 0 {
		floats.Scale(1/area, h)
	}
	return t, h
}

// MagnoIR returns the transient (band-pass) magnocellular impulse response:
// a single-stage response minus a two-stage response, normalised so the
// integral of its magnitude is one.
func MagnoIR(tau, fps float64) (t, h []float64) {
	t = sampleTimes(fps)
	h = make([]float64, len(t))
	abs := make([]float64, len(t))
	for i, ti := range t {
		h[i] = GammaIR(ti, 1, tau) - GammaIR(ti, 2, tau)
		abs[i] = math.Abs(h[i])
	}
	if area := Simpson(t, abs); area != 0 {
		floats.Scale(1/area, h)
	}
	return t, h
}

// ChannelResponse filters a one second sinusoidal flicker at hz through the
// impulse response h sampled at fps. hz == 0 yields the step response.
func ChannelResponse(h []float64, fps, hz float64) []float64 {
	n := len(h)
	stim := make([]float64, n)
	for i := range stim {
		if hz == 0 {
			stim[i] = 1
			continue
		}
		stim[i] = math.Sin(2 * math.Pi * hz * float64(i) / fps)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var acc float64
		for k := 0; k <= i; k++ {
			acc += h[k] * stim[i-k]
		}
		out[i] = acc / fps
	}
	return out
}

// PeakAmplitude is the steady-state peak of ChannelResponse, taken over the
// second half of the response. For hz == 0 it is the magnitude of the DC gain.
func PeakAmplitude(h []float64, fps, hz float64) float64 {
	if hz == 0 {
		return math.Abs(Simpson(sampleTimes(fps)[:len(h)], h))
	}
	resp := ChannelResponse(h, fps, hz)
	return floats.Max(resp[len(resp)/2:])
}
