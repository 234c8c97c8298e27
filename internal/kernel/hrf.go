package kernel

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// HRFPeakSeconds is the time to peak of the undelayed double-gamma HRF.
	HRFPeakSeconds = 5.0
	// HRFShape is the shape of the undelayed response gamma. A fitted delay
	// is reported as HRFShape + delay.
	HRFShape = hrfPeakShape

	hrfPeakShape       = 6.0
	hrfUndershootShape = 16.0
	hrfUndershootRatio = 1.0 / 6.0
	hrfLengthSeconds   = 32.0
)

// MinHRFDelay is the lower limit of the delay for which the peak gamma keeps
// a positive mode.
const MinHRFDelay = 1 - hrfPeakShape

// DoubleGammaHRF samples the canonical double-gamma haemodynamic response,
// shifted by delay seconds, every tr seconds over 32 s. The kernel is
// normalised to unit sum.
func DoubleGammaHRF(delay, tr float64) ([]float64, error) {
	if tr <= 0 {
		return nil, fmt.Errorf("tr must be positive, got %f", tr)
	}
	if delay <= MinHRFDelay {
		return nil, fmt.Errorf("hrf delay %f must exceed %f", delay, MinHRFDelay)
	}
	peak := distuv.Gamma{Alpha: hrfPeakShape + delay, Beta: 1}
	under := distuv.Gamma{Alpha: hrfUndershootShape + delay, Beta: 1}

	n := int(hrfLengthSeconds / tr)
	h := make([]float64, n)
	for i := range h {
		t := float64(i) * tr
		if t == 0 {
			continue
		}
		h[i] = peak.Prob(t) - hrfUndershootRatio*under.Prob(t)
	}
	if s := floats.Sum(h); s != 0 {
		floats.Scale(1/s, h)
	}
	return h, nil
}
