// Package sweep provides grid specification parsing, Cartesian expansion of
// parameter grids, and tabular input and output for voxel fitting runs.
package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxValues caps the length of a single generated grid.
const maxValues = 10000

// maxCombos caps the number of combinations ExpandRanges will materialise.
const maxCombos = 100000

// GridSpec defines an inclusive grid of Count evenly spaced values.
type GridSpec struct {
	Start float64
	Stop  float64
	Count int
}

// ParseGridSpec parses a "start:stop:count" string into a GridSpec.
func ParseGridSpec(s string) (GridSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return GridSpec{}, fmt.Errorf("invalid grid format %q: expected start:stop:count", s)
	}

	start, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return GridSpec{}, fmt.Errorf("invalid start value %q: %w", parts[0], err)
	}

	stop, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return GridSpec{}, fmt.Errorf("invalid stop value %q: %w", parts[1], err)
	}

	count, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return GridSpec{}, fmt.Errorf("invalid count value %q: %w", parts[2], err)
	}

	if count <= 0 || count > maxValues {
		return GridSpec{}, fmt.Errorf("count must be in [1, %d], got %d", maxValues, count)
	}

	return GridSpec{Start: start, Stop: stop, Count: count}, nil
}

// Values generates the grid. A count of one yields Start alone.
func (g GridSpec) Values() []float64 {
	return Linspace(g.Start, g.Stop, g.Count)
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// ParseParamList parses either a "start:stop:count" grid or a comma-separated
// list of values.
func ParseParamList(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}

	if strings.Contains(s, ":") {
		spec, err := ParseGridSpec(s)
		if err != nil {
			return nil, err
		}
		return spec.Values(), nil
	}

	return ParseCSVFloat64s(s)
}

// ParseBoundSpec parses "min:max" where either side may be empty or "none"
// to leave it unbounded. A bare "none" or empty string leaves both open.
func ParseBoundSpec(s string) (min, max *float64, err error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("invalid bound format %q: expected min:max", s)
	}
	if min, err = parseBoundSide(parts[0]); err != nil {
		return nil, nil, fmt.Errorf("invalid min value %q: %w", parts[0], err)
	}
	if max, err = parseBoundSide(parts[1]); err != nil {
		return nil, nil, fmt.Errorf("invalid max value %q: %w", parts[1], err)
	}
	if min != nil && max != nil && *min > *max {
		return nil, nil, fmt.Errorf("bound %q has min greater than max", s)
	}
	return min, max, nil
}

func parseBoundSide(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) {
		return nil, fmt.Errorf("bound is NaN")
	}
	return &v, nil
}

// CountCombos returns the size of the Cartesian product of values, or an
// error when it exceeds limit.
func CountCombos(values [][]float64, limit int64) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	total := int64(1)
	for _, v := range values {
		total *= int64(len(v))
		if total > limit || total < 0 {
			return 0, fmt.Errorf("parameter combinations would exceed safe limit of %d", limit)
		}
	}
	return total, nil
}

// ExpandRanges materialises the Cartesian product of values. The last
// dimension varies fastest.
func ExpandRanges(values ...[]float64) ([][]float64, error) {
	total, err := CountCombos(values, maxCombos)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}

	result := make([][]float64, total)
	for i := range result {
		result[i] = make([]float64, len(values))
	}

	repeat := int64(1)
	for dim := len(values) - 1; dim >= 0; dim-- {
		dimValues := values[dim]
		cycle := int64(len(dimValues))
		for i := int64(0); i < total; i++ {
			result[i][dim] = dimValues[(i/repeat)%cycle]
		}
		repeat *= cycle
	}

	return result, nil
}

// ForEachCombo streams the Cartesian product of values in the same order as
// ExpandRanges without materialising it. The combo slice is reused between
// calls; fn returns false to stop early. Empty dimensions yield nothing.
func ForEachCombo(values [][]float64, fn func(i int, combo []float64) bool) {
	if len(values) == 0 {
		return
	}
	for _, v := range values {
		if len(v) == 0 {
			return
		}
	}
	idx := make([]int, len(values))
	combo := make([]float64, len(values))
	for d := range values {
		combo[d] = values[d][0]
	}
	for i := 0; ; i++ {
		if !fn(i, combo) {
			return
		}
		d := len(values) - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < len(values[d]) {
				combo[d] = values[d][idx[d]]
				break
			}
			idx[d] = 0
			combo[d] = values[d][0]
		}
		if d < 0 {
			return
		}
	}
}
