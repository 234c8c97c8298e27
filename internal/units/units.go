// Package units converts between visual angle representations: polar and
// Cartesian positions, display pixels, and the units angles are reported in.
package units

import (
	"math"
	"strings"
)

// Units an output angle may be reported in.
const (
	Degrees = "deg"
	Radians = "rad"
)

// ValidUnits lists the accepted angle unit names.
var ValidUnits = []string{Degrees, Radians}

// IsValid reports whether unit names a supported angle unit.
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString lists ValidUnits for error messages.
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertAngle expresses a polar angle held in radians in targetUnits.
// Anything other than Degrees leaves it in radians.
func ConvertAngle(rad float64, targetUnits string) float64 {
	if targetUnits == Degrees {
		return rad * 180 / math.Pi
	}
	return rad
}

// Polar returns the polar angle (radians, counter-clockwise from +x) and the
// eccentricity of a position in degrees of visual angle.
func Polar(x, y float64) (theta, rho float64) {
	return math.Atan2(y, x), math.Hypot(x, y)
}

// Cartesian is the inverse of Polar.
func Cartesian(theta, rho float64) (x, y float64) {
	return rho * math.Cos(theta), rho * math.Sin(theta)
}

// PixelsPerDegree returns the number of display pixels subtending one degree
// of visual angle for a screen of the given width viewed from the given
// distance (both in the same length unit).
func PixelsPerDegree(pixelsAcross int, screenWidth, viewingDistance float64) float64 {
	return math.Pi * float64(pixelsAcross) / math.Atan(screenWidth/viewingDistance/2.0) / 360.0
}
