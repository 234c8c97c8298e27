package stimulus

// Resample scales frame-major frames of rows×cols by scale. Down-sampling
// averages the source block behind each output pixel; up-sampling takes the
// nearest source pixel. Values are divided by the maximum over the whole run
// so the result lies in [0,1]; an all-zero run stays zero.
func Resample(frames []uint8, rows, cols int, scale float64) (out []float64, outRows, outCols int) {
	size := rows * cols
	if size == 0 || len(frames) == 0 {
		return nil, 0, 0
	}
	n := len(frames) / size
	outRows = resampledSize(rows, scale)
	outCols = resampledSize(cols, scale)

	rowSpan := blockSpans(rows, outRows)
	colSpan := blockSpans(cols, outCols)

	out = make([]float64, n*outRows*outCols)
	var peak float64
	for t := 0; t < n; t++ {
		frame := frames[t*size : (t+1)*size]
		base := t * outRows * outCols
		for r := 0; r < outRows; r++ {
			r0, r1 := rowSpan[r][0], rowSpan[r][1]
			for c := 0; c < outCols; c++ {
				c0, c1 := colSpan[c][0], colSpan[c][1]
				var sum float64
				for y := r0; y < r1; y++ {
					for x := c0; x < c1; x++ {
						sum += float64(frame[y*cols+x])
					}
				}
				v := sum / float64((r1-r0)*(c1-c0))
				out[base+r*outCols+c] = v
				if v > peak {
					peak = v
				}
			}
		}
	}
	if peak > 0 {
		for i := range out {
			out[i] /= peak
		}
	}
	return out, outRows, outCols
}

// blockSpans maps each of m output cells onto a half-open range of the n
// source cells. When m > n each output cell gets its nearest source cell.
func blockSpans(n, m int) [][2]int {
	spans := make([][2]int, m)
	for i := range spans {
		lo := i * n / m
		hi := (i + 1) * n / m
		if hi <= lo {
			hi = lo + 1
		}
		if hi > n {
			lo, hi = n-1, n
		}
		spans[i] = [2]int{lo, hi}
	}
	return spans
}
