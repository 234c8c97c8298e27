package kernel

import (
	"fmt"
	"math"
)

// Shape selects the spatial profile of a receptive field.
type Shape int

const (
	// ShapeGaussian is an isotropic 2-D Gaussian.
	ShapeGaussian Shape = iota
	// ShapeCosine is a raised cosine with compact support of radius sigma.
	ShapeCosine
)

// String returns the configuration name of the shape.
func (s Shape) String() string {
	switch s {
	case ShapeGaussian:
		return "gaussian"
	case ShapeCosine:
		return "cosine"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// ParseShape maps a configuration name onto a Shape.
func ParseShape(name string) (Shape, error) {
	switch name {
	case "", "gaussian":
		return ShapeGaussian, nil
	case "cosine", "2dcos":
		return ShapeCosine, nil
	default:
		return 0, fmt.Errorf("unknown receptive field shape %q", name)
	}
}

// Spatial evaluates a receptive-field profile at squared distance d2 from the
// centre. Power only applies to ShapeCosine.
type Spatial struct {
	Shape Shape
	Power float64
}

// Value returns the unnormalised kernel height at squared distance d2.
func (s Spatial) Value(d2, sigma float64) float64 {
	switch s.Shape {
	case ShapeCosine:
		d := math.Sqrt(d2)
		if d > sigma {
			return 0
		}
		return math.Pow((1+math.Cos(math.Pi*d/sigma))/2, s.Power)
	default:
		return math.Exp(-d2 / (2 * sigma * sigma))
	}
}

// Mask returns the coordinate indices the kernel covers: maskSize·sigma for
// a Gaussian, the compact support sigma for a raised cosine.
func (s Spatial) Mask(x, y, sigma, maskSize float64, degX, degY []float64) []int {
	if s.Shape == ShapeCosine {
		return maskWithin(x, y, sigma, degX, degY)
	}
	return DistanceMask(x, y, sigma, maskSize, degX, degY)
}

// Gaussian evaluates an unnormalised Gaussian receptive field centred on
// (x, y) over the coordinate matrices degX, degY.
func Gaussian(x, y, sigma float64, degX, degY []float64) []float64 {
	return Spatial{Shape: ShapeGaussian}.Field(x, y, sigma, degX, degY)
}

// RaisedCosine evaluates a raised-cosine receptive field of radius sigma.
// A power of 0 yields a uniform disk.
func RaisedCosine(x, y, sigma, power float64, degX, degY []float64) []float64 {
	return Spatial{Shape: ShapeCosine, Power: power}.Field(x, y, sigma, degX, degY)
}

// Field evaluates the kernel at every coordinate.
func (s Spatial) Field(x, y, sigma float64, degX, degY []float64) []float64 {
	rf := make([]float64, len(degX))
	for i := range degX {
		dx := degX[i] - x
		dy := degY[i] - y
		rf[i] = s.Value(dx*dx+dy*dy, sigma)
	}
	return rf
}

// AreaNorm is the divisor that makes a Gaussian kernel lying wholly on
// screen sum to one: its continuous integral in pixel units.
func AreaNorm(sigma, pixelDeg float64) float64 {
	return 2 * math.Pi * sigma * sigma / (pixelDeg * pixelDeg)
}

// NormaliseArea divides rf in place by AreaNorm.
func NormaliseArea(rf []float64, sigma, pixelDeg float64) {
	norm := AreaNorm(sigma, pixelDeg)
	if norm == 0 {
		return
	}
	for i := range rf {
		rf[i] /= norm
	}
}

// DistanceMask returns the indices of coordinates within maskSize·sigma of
// (x, y).
func DistanceMask(x, y, sigma, maskSize float64, degX, degY []float64) []int {
	return maskWithin(x, y, maskSize*sigma, degX, degY)
}

func maskWithin(x, y, radius float64, degX, degY []float64) []int {
	r2 := radius * radius
	idx := make([]int, 0, 64)
	for i := range degX {
		dx := degX[i] - x
		dy := degY[i] - y
		if dx*dx+dy*dy <= r2 {
			idx = append(idx, i)
		}
	}
	return idx
}
