// Package stimulus holds the visual stimulus presented during a retinotopic
// mapping run, its resampled form used for prediction, and the flicker
// schedule that drives the temporal channels.
package stimulus

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/retinotopy/internal/monitoring"
	"github.com/banshee-data/retinotopy/internal/units"
)

var logf = monitoring.Component("stimulus")

var (
	// ErrEmptyStimulus is returned when a stimulus has no frames or no pixels.
	ErrEmptyStimulus = errors.New("stimulus has no frames")
	// ErrBadGeometry is returned for non-positive screen or sampling geometry.
	ErrBadGeometry = errors.New("invalid stimulus geometry")
	// ErrBadFlicker is returned when a flicker schedule does not match the run.
	ErrBadFlicker = errors.New("invalid flicker schedule")
)

// VisualStimulus is immutable once built. Frames are stored frame-major at
// display resolution; the resampled copy is pixel-major so each pixel's time
// course is contiguous.
type VisualStimulus struct {
	frames []uint8
	rows   int
	cols   int
	n      int

	viewingDistance float64
	screenWidth     float64
	scaleFactor     float64
	trLength        float64
	ppd             float64

	fps        float64
	flickerVec []int
	flickerHz  []float64

	sRows int
	sCols int
	stim  []float64
	degX  []float64
	degY  []float64
}

// Option configures optional parts of a VisualStimulus.
type Option func(*VisualStimulus) error

// WithFlicker attaches a per-TR flicker schedule. Index 0 is a static frame;
// k ≥ 1 flickers at flickerHz[k-1], with the projector refreshing at fps.
func WithFlicker(fps float64, flickerVec []int, flickerHz []float64) Option {
	return func(s *VisualStimulus) error {
		if fps <= 0 {
			return fmt.Errorf("%w: fps must be positive, got %f", ErrBadFlicker, fps)
		}
		if len(flickerVec) != s.n {
			return fmt.Errorf("%w: %d conditions for %d frames", ErrBadFlicker, len(flickerVec), s.n)
		}
		for t, c := range flickerVec {
			if c < 0 || c > len(flickerHz) {
				return fmt.Errorf("%w: condition %d at TR %d has no frequency", ErrBadFlicker, c, t)
			}
		}
		for _, hz := range flickerHz {
			if hz <= 0 || hz > fps/2 {
				return fmt.Errorf("%w: frequency %f outside (0, %f]", ErrBadFlicker, hz, fps/2)
			}
		}
		s.fps = fps
		s.flickerVec = append([]int(nil), flickerVec...)
		s.flickerHz = append([]float64(nil), flickerHz...)
		return nil
	}
}

// NewVisualStimulus validates the display geometry, resamples the frames by
// scaleFactor and builds the coordinate matrices.
func NewVisualStimulus(frames []uint8, rows, cols int, viewingDistance, screenWidth, scaleFactor, trLength float64, opts ...Option) (*VisualStimulus, error) {
	if rows <= 0 || cols <= 0 || len(frames) == 0 {
		return nil, ErrEmptyStimulus
	}
	if len(frames)%(rows*cols) != 0 {
		return nil, fmt.Errorf("%w: %d values is not a multiple of %dx%d", ErrBadGeometry, len(frames), rows, cols)
	}
	if viewingDistance <= 0 || screenWidth <= 0 || scaleFactor <= 0 || trLength <= 0 {
		return nil, fmt.Errorf("%w: distance=%f width=%f scale=%f tr=%f",
			ErrBadGeometry, viewingDistance, screenWidth, scaleFactor, trLength)
	}

	s := &VisualStimulus{
		frames:          append([]uint8(nil), frames...),
		rows:            rows,
		cols:            cols,
		n:               len(frames) / (rows * cols),
		viewingDistance: viewingDistance,
		screenWidth:     screenWidth,
		scaleFactor:     scaleFactor,
		trLength:        trLength,
		ppd:             units.PixelsPerDegree(cols, screenWidth, viewingDistance),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	resampled, sRows, sCols := Resample(s.frames, rows, cols, scaleFactor)
	s.sRows, s.sCols = sRows, sCols
	s.stim = make([]float64, len(resampled))
	npix := sRows * sCols
	for t := 0; t < s.n; t++ {
		for p := 0; p < npix; p++ {
			s.stim[p*s.n+t] = resampled[t*npix+p]
		}
	}
	s.degX, s.degY = CoordinateMatrices(cols, rows, s.ppd, scaleFactor)

	logf("%dx%d x %d TRs resampled to %dx%d (%.3f ppd)", cols, rows, s.n, sCols, sRows, s.ppd)
	return s, nil
}

// Rows and Cols are the display resolution.
func (s *VisualStimulus) Rows() int { return s.rows }
func (s *VisualStimulus) Cols() int { return s.cols }

// Len is the number of TRs.
func (s *VisualStimulus) Len() int { return s.n }

func (s *VisualStimulus) ViewingDistance() float64 { return s.viewingDistance }
func (s *VisualStimulus) ScreenWidth() float64     { return s.screenWidth }
func (s *VisualStimulus) ScaleFactor() float64     { return s.scaleFactor }
func (s *VisualStimulus) TRLength() float64        { return s.trLength }

// PPD is pixels per degree at display resolution.
func (s *VisualStimulus) PPD() float64 { return s.ppd }

// PixelDeg is the size of one resampled pixel in degrees.
func (s *VisualStimulus) PixelDeg() float64 { return 1 / (s.ppd * s.scaleFactor) }

// Frame returns display frame t. The slice aliases internal storage.
func (s *VisualStimulus) Frame(t int) []uint8 {
	size := s.rows * s.cols
	return s.frames[t*size : (t+1)*size]
}

// ResampledSize reports the rows and columns of the resampled stimulus.
func (s *VisualStimulus) ResampledSize() (rows, cols int) { return s.sRows, s.sCols }

// Pixels is the number of resampled pixels.
func (s *VisualStimulus) Pixels() int { return s.sRows * s.sCols }

// Series is the time course of resampled pixel p in [0,1]. The slice
// aliases internal storage and must not be modified.
func (s *VisualStimulus) Series(p int) []float64 { return s.stim[p*s.n : (p+1)*s.n] }

// DegX and DegY are the resampled pixel centres in degrees, y up.
func (s *VisualStimulus) DegX() []float64 { return s.degX }
func (s *VisualStimulus) DegY() []float64 { return s.degY }

// FPS is the projector refresh rate, zero without a flicker schedule.
func (s *VisualStimulus) FPS() float64 { return s.fps }

// HasFlicker reports whether a flicker schedule is attached.
func (s *VisualStimulus) HasFlicker() bool { return s.flickerVec != nil }

// FlickerVec returns a copy of the per-TR condition indices.
func (s *VisualStimulus) FlickerVec() []int { return append([]int(nil), s.flickerVec...) }

// FlickerHz returns a copy of the flicker frequencies.
func (s *VisualStimulus) FlickerHz() []float64 { return append([]float64(nil), s.flickerHz...) }

// Condition is the flicker condition index at TR t.
func (s *VisualStimulus) Condition(t int) int {
	if s.flickerVec == nil {
		return 0
	}
	return s.flickerVec[t]
}

// ConditionAmplitudes returns the flicker frequency shown at every TR, zero
// for static frames.
func (s *VisualStimulus) ConditionAmplitudes() []float64 {
	hz := make([]float64, s.n)
	for t := range hz {
		if c := s.Condition(t); c > 0 {
			hz[t] = s.flickerHz[c-1]
		}
	}
	return hz
}

// CoordinateMatrices returns the centres of the pixels of an across×down
// display resampled by scale, in degrees of visual angle relative to the
// screen centre. Rows run top to bottom so y is negated.
func CoordinateMatrices(across, down int, ppd, scale float64) (degX, degY []float64) {
	cols := resampledSize(across, scale)
	rows := resampledSize(down, scale)
	pitch := 1 / (ppd * scale)
	degX = make([]float64, rows*cols)
	degY = make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		y := -(float64(r) - float64(rows)/2 + 0.5) * pitch
		for c := 0; c < cols; c++ {
			degX[r*cols+c] = (float64(c) - float64(cols)/2 + 0.5) * pitch
			degY[r*cols+c] = y
		}
	}
	return degX, degY
}

func resampledSize(n int, scale float64) int {
	m := int(math.Round(float64(n) * scale))
	if m < 1 {
		m = 1
	}
	return m
}
