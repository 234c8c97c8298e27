package stimulus

import (
	"fmt"
	"math"

	"github.com/banshee-data/retinotopy/internal/units"
)

// BlankTheta marks a blank period in a bar sweep sequence.
const BlankTheta = -1

// barLevel is the luminance of the bar in generated frames.
const barLevel = 255

// SimulateBarStimulus renders a drifting-bar run on an across×down display.
// Each entry of thetas (degrees) either sweeps a bar of width ecc/4 across
// the aperture in barSteps positions, moving along the direction theta, or,
// for BlankTheta, inserts blankSteps empty frames. The bar is confined to a
// circular aperture of radius ecc degrees. Frames are returned frame-major
// together with their count.
func SimulateBarStimulus(across, down int, viewingDistance, screenWidth float64, thetas []float64, barSteps, blankSteps int, ecc float64) ([]uint8, int, error) {
	if across <= 0 || down <= 0 || viewingDistance <= 0 || screenWidth <= 0 || ecc <= 0 {
		return nil, 0, fmt.Errorf("%w: %dx%d distance=%f width=%f ecc=%f",
			ErrBadGeometry, across, down, viewingDistance, screenWidth, ecc)
	}
	if len(thetas) == 0 {
		return nil, 0, ErrEmptyStimulus
	}

	total := 0
	for _, th := range thetas {
		if th == BlankTheta {
			total += max(blankSteps, 0)
		} else {
			total += max(barSteps, 0)
		}
	}
	if total == 0 {
		return nil, 0, ErrEmptyStimulus
	}

	ppd := units.PixelsPerDegree(across, screenWidth, viewingDistance)
	degX, degY := CoordinateMatrices(across, down, ppd, 1)
	halfWidth := ecc / 8

	size := across * down
	frames := make([]uint8, total*size)
	t := 0
	for _, th := range thetas {
		if th == BlankTheta {
			t += max(blankSteps, 0)
			continue
		}
		rad := th * math.Pi / 180
		cos, sin := math.Cos(rad), math.Sin(rad)
		for k := 0; k < barSteps; k++ {
			pos := 0.0
			if barSteps > 1 {
				pos = -ecc + 2*ecc*float64(k)/float64(barSteps-1)
			}
			frame := frames[t*size : (t+1)*size]
			for p := range frame {
				x, y := degX[p], degY[p]
				if math.Hypot(x, y) > ecc {
					continue
				}
				if math.Abs(x*cos+y*sin-pos) <= halfWidth {
					frame[p] = barLevel
				}
			}
			t++
		}
	}
	return frames, total, nil
}

// BarFlickerSchedule builds the per-TR condition vector for a run produced by
// SimulateBarStimulus with the same thetas and step counts. Blank periods
// are static (condition 0); the bar sweeps are split into conditions
// contiguous blocks numbered 1..conditions in presentation order.
func BarFlickerSchedule(thetas []float64, barSteps, blankSteps, conditions int) []int {
	sweeps := 0
	for _, th := range thetas {
		if th != BlankTheta {
			sweeps++
		}
	}
	var vec []int
	j := 0
	for _, th := range thetas {
		if th == BlankTheta {
			vec = append(vec, make([]int, max(blankSteps, 0))...)
			continue
		}
		c := 0
		if conditions > 0 {
			c = 1 + j*conditions/sweeps
		}
		for k := 0; k < barSteps; k++ {
			vec = append(vec, c)
		}
		j++
	}
	return vec
}
