// Package testutil provides shared test utilities and fixtures.
//
// The fixtures build small but realistic drifting-bar runs so model, fit and
// storage tests exercise the same stimulus geometry.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/retinotopy/internal/stimulus"
)

// Fixture geometry. A 100 px display 25 cm wide at 38 cm spans about ±18°;
// resampling by half gives 50×50 pixels of roughly 0.73°.
const (
	DisplayPixels   = 100
	ViewingDistance = 38.0
	ScreenWidth     = 25.0
	ScaleFactor     = 0.5
	TRLength        = 1.0
	Eccentricity    = 10.0
	BarSteps        = 40
	BlankSteps      = 20
	ProjectorHz     = 480.0
)

// FixtureThetas is the sweep sequence of the fixture run: a blank, four
// directions, and a closing blank, 200 TRs in total.
var FixtureThetas = []float64{stimulus.BlankTheta, 0, 90, 180, 270, stimulus.BlankTheta}

// FixtureFlickerHz are the flicker frequencies of the fixture run.
var FixtureFlickerHz = []float64{10, 20}

// FlickerSchedule is the fixture condition vector: TRs 20-99 flicker at
// FixtureFlickerHz[0], TRs 100-179 at FixtureFlickerHz[1].
func FlickerSchedule() []int {
	return stimulus.BarFlickerSchedule(FixtureThetas, BarSteps, BlankSteps, len(FixtureFlickerHz))
}

func barFrames(tb testing.TB) ([]uint8, int) {
	tb.Helper()
	frames, n, err := stimulus.SimulateBarStimulus(DisplayPixels, DisplayPixels, ViewingDistance, ScreenWidth,
		FixtureThetas, BarSteps, BlankSteps, Eccentricity)
	AssertNoError(tb, err)
	return frames, n
}

// BarStimulus returns the fixture run with its flicker schedule.
func BarStimulus(tb testing.TB) *stimulus.VisualStimulus {
	tb.Helper()
	frames, _ := barFrames(tb)
	s, err := stimulus.NewVisualStimulus(frames, DisplayPixels, DisplayPixels, ViewingDistance, ScreenWidth,
		ScaleFactor, TRLength, stimulus.WithFlicker(ProjectorHz, FlickerSchedule(), FixtureFlickerHz))
	AssertNoError(tb, err)
	return s
}

// StaticBarStimulus returns the fixture run without flicker.
func StaticBarStimulus(tb testing.TB) *stimulus.VisualStimulus {
	tb.Helper()
	frames, _ := barFrames(tb)
	s, err := stimulus.NewVisualStimulus(frames, DisplayPixels, DisplayPixels, ViewingDistance, ScreenWidth,
		ScaleFactor, TRLength)
	AssertNoError(tb, err)
	return s
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(tb testing.TB, err error) {
	tb.Helper()
	if err != nil {
		tb.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(tb testing.TB, err error) {
	tb.Helper()
	if err == nil {
		tb.Fatal("expected error, got nil")
	}
}

// AssertSeriesClose fails the test when two series differ in length or any
// sample differs by more than tol.
func AssertSeriesClose(tb testing.TB, got, want []float64, tol float64) {
	tb.Helper()
	if len(got) != len(want) {
		tb.Fatalf("series length = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > tol || math.IsNaN(got[i]) != math.IsNaN(want[i]) {
			tb.Errorf("sample %d = %g, want %g (tol %g)", i, got[i], want[i], tol)
			return
		}
	}
}
