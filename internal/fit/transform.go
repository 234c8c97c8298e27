package fit

import "math"

// boundTransform maps between a bounded parameter and an unconstrained
// coordinate seen by the optimiser. Two-sided limits use a sine map, a
// single limit a hyperbolic map, and an open parameter passes through.
type boundTransform struct {
	b Bound
}

func (t boundTransform) external(u float64) float64 {
	b := t.b
	var v float64
	switch {
	case b.Min != nil && b.Max != nil:
		lo, hi := *b.Min, *b.Max
		v = lo + (hi-lo)*(math.Sin(u)+1)/2
	case b.Min != nil:
		v = *b.Min - 1 + math.Sqrt(u*u+1)
	case b.Max != nil:
		v = *b.Max + 1 - math.Sqrt(u*u+1)
	default:
		return u
	}
	// Rounding can step a hair outside the limits.
	return b.Clamp(v)
}

func (t boundTransform) internal(v float64) float64 {
	b := t.b
	v = b.Clamp(v)
	switch {
	case b.Min != nil && b.Max != nil:
		lo, hi := *b.Min, *b.Max
		if hi == lo {
			return 0
		}
		s := 2*(v-lo)/(hi-lo) - 1
		return math.Asin(math.Max(-1, math.Min(1, s)))
	case b.Min != nil:
		d := v - *b.Min + 1
		return math.Sqrt(math.Max(d*d-1, 0))
	case b.Max != nil:
		d := *b.Max - v + 1
		return math.Sqrt(math.Max(d*d-1, 0))
	default:
		return v
	}
}

type transforms []boundTransform

func newTransforms(bounds []Bound) transforms {
	ts := make(transforms, len(bounds))
	for i, b := range bounds {
		ts[i] = boundTransform{b: b}
	}
	return ts
}

func (ts transforms) external(dst, u []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(u))
	}
	for i, t := range ts {
		dst[i] = t.external(u[i])
	}
	return dst
}

func (ts transforms) internal(v []float64) []float64 {
	u := make([]float64, len(v))
	for i, t := range ts {
		u[i] = t.internal(v[i])
	}
	return u
}
