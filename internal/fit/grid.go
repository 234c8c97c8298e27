// Package fit estimates pRF parameters for a voxel time series: a coarse
// search over the Cartesian product of parameter grids followed by a
// bounded Nelder-Mead refinement.
package fit

import (
	"fmt"
	"math"

	"github.com/banshee-data/retinotopy/internal/sweep"
)

// Grid holds the values a search parameter takes during the coarse search.
type Grid []float64

// GridSlice returns n evenly spaced values from start to stop inclusive.
// A single value grid holds start.
func GridSlice(start, stop float64, n int) Grid {
	return Grid(sweep.Linspace(start, stop, n))
}

// Bound limits a parameter during refinement. A nil side is unbounded.
type Bound struct {
	Min *float64 `json:"min" yaml:"min"`
	Max *float64 `json:"max" yaml:"max"`
}

// NewBound returns a two-sided bound.
func NewBound(min, max float64) Bound { return Bound{Min: &min, Max: &max} }

// LowerBound returns a bound open above.
func LowerBound(min float64) Bound { return Bound{Min: &min} }

// UpperBound returns a bound open below.
func UpperBound(max float64) Bound { return Bound{Max: &max} }

// Unbounded returns a bound open on both sides.
func Unbounded() Bound { return Bound{} }

// Validate checks that Min does not exceed Max and neither side is NaN.
func (b Bound) Validate() error {
	if (b.Min != nil && math.IsNaN(*b.Min)) || (b.Max != nil && math.IsNaN(*b.Max)) {
		return fmt.Errorf("%w: NaN limit", ErrBoundOrder)
	}
	if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
		return fmt.Errorf("%w: min %g > max %g", ErrBoundOrder, *b.Min, *b.Max)
	}
	return nil
}

// Contains reports whether v lies within the bound.
func (b Bound) Contains(v float64) bool {
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Max != nil && v > *b.Max {
		return false
	}
	return true
}

// Clamp returns v limited to the bound.
func (b Bound) Clamp(v float64) float64 {
	if b.Min != nil && v < *b.Min {
		return *b.Min
	}
	if b.Max != nil && v > *b.Max {
		return *b.Max
	}
	return v
}

// String formats the bound as min:max with open sides left empty.
func (b Bound) String() string {
	side := func(p *float64) string {
		if p == nil {
			return ""
		}
		return fmt.Sprintf("%g", *p)
	}
	return side(b.Min) + ":" + side(b.Max)
}
