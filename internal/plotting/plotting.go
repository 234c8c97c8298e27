// Package plotting renders the summary figures of a pRF fitting run with
// gonum/plot, plus an interactive go-echarts report.
//
// Each figure function takes an optional existing plot so several regions
// of interest can be layered on one set of axes; pass nil to start afresh.
package plotting

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	// ErrLengthMismatch is returned when paired inputs differ in length.
	ErrLengthMismatch = errors.New("input lengths differ")
	// ErrNoData is returned when there is nothing to plot.
	ErrNoData = errors.New("no data to plot")
)

// Figure axes, in degrees of visual angle unless noted.
const (
	eccMax        = 13.0
	sigmaMin      = -1.0
	sigmaMax      = 5.0
	kdeMin        = -4.0
	kdeMax        = 4.0
	kdePoints     = 200
	delayAxisMin  = -3.0
	delayAxisMax  = 3.0
	jointBinWidth = 0.25
	mapExtent     = 15.0
	circleEdges   = 64
)

func checkPaired(a, b []float64) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d and %d", ErrLengthMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return ErrNoData
	}
	return nil
}

// errorPoints carries bin means with symmetric error bars.
type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// EccentricitySigmaScatter plots receptive field size against eccentricity:
// a least-squares line over [0, 13]°, plus the mean and standard error of
// sigma in 1° eccentricity bins. Empty bins are skipped.
func EccentricitySigmaScatter(p *plot.Plot, ecc, sigma []float64, c color.Color, label string) (*plot.Plot, error) {
	if err := checkPaired(ecc, sigma); err != nil {
		return nil, err
	}
	if p == nil {
		p = plot.New()
		p.X.Label.Text = "Eccentricity (°)"
		p.Y.Label.Text = "pRF size (°)"
		p.Legend.Top = true
		p.Legend.Left = true
	}
	pts := eccentricityBins(ecc, sigma)

	var legend []plot.Thumbnailer
	if len(ecc) > 1 && floats.Max(ecc) > floats.Min(ecc) {
		alpha, beta := stat.LinearRegression(ecc, sigma, nil, false)
		line, err := plotter.NewLine(plotter.XYs{{X: 0, Y: alpha}, {X: eccMax, Y: alpha + beta*eccMax}})
		if err != nil {
			return nil, err
		}
		line.Color = c
		line.Width = vg.Points(2)
		p.Add(line)
		legend = append(legend, line)
	}

	if len(pts.XYs) > 0 {
		scatter, err := plotter.NewScatter(pts.XYs)
		if err != nil {
			return nil, err
		}
		scatter.GlyphStyle.Color = c
		scatter.GlyphStyle.Radius = vg.Points(3)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}

		bars, err := plotter.NewYErrorBars(pts)
		if err != nil {
			return nil, err
		}
		bars.LineStyle.Color = c
		p.Add(scatter, bars)
		legend = append(legend, scatter)
	}
	if label != "" && len(legend) > 0 {
		p.Legend.Add(label, legend...)
	}
	// Add grows the axes to the data, so the fixed ranges go last.
	p.X.Min, p.X.Max = 0, eccMax
	p.Y.Min, p.Y.Max = sigmaMin, sigmaMax
	return p, nil
}

// eccentricityBins returns the mean and standard error of sigma in 1°
// eccentricity bins over [0, 13]°. Both bin edges are inclusive, so a value
// on an edge counts in two bins.
func eccentricityBins(ecc, sigma []float64) errorPoints {
	var pts errorPoints
	for centre := 0.5; centre < eccMax; centre++ {
		var bin []float64
		for i, e := range ecc {
			if e >= centre-0.5 && e <= centre+0.5 {
				bin = append(bin, sigma[i])
			}
		}
		if len(bin) == 0 {
			continue
		}
		mean, std := stat.PopMeanStdDev(bin, nil)
		sem := stat.StdErr(std, float64(len(bin)))
		pts.XYs = append(pts.XYs, plotter.XY{X: centre, Y: mean})
		pts.YErrors = append(pts.YErrors, struct{ Low, High float64 }{sem, sem})
	}
	return pts
}

// TrimLabel strips a directory prefix and a .nii.gz suffix from a label.
func TrimLabel(label string) string {
	return strings.TrimSuffix(filepath.Base(label), ".nii.gz")
}

// KDE evaluates a Gaussian kernel density estimate of values at xs with
// the given bandwidth.
func KDE(values, xs []float64, bandwidth float64) []float64 {
	out := make([]float64, len(xs))
	if len(values) == 0 || bandwidth <= 0 {
		return out
	}
	for _, v := range values {
		k := distuv.Normal{Mu: v, Sigma: bandwidth}
		for i, x := range xs {
			out[i] += k.Prob(x)
		}
	}
	floats.Scale(1/float64(len(values)), out)
	return out
}

// HRFDelayKDE plots a kernel density estimate of HRF delays, with bandwidth
// kernelWidth times their standard deviation, evaluated over [-4, 4] s.
// The legend reports the mean and standard deviation.
func HRFDelayKDE(p *plot.Plot, delays []float64, kernelWidth float64, c color.Color, label string) (*plot.Plot, error) {
	if len(delays) == 0 {
		return nil, ErrNoData
	}
	if kernelWidth <= 0 {
		return nil, fmt.Errorf("kernel width must be positive, got %g", kernelWidth)
	}
	if p == nil {
		p = plot.New()
		p.X.Label.Text = "HRF delay (s)"
		p.Y.Label.Text = "Density"
	}
	var spread float64
	if len(delays) > 1 {
		spread = stat.StdDev(delays, nil)
	}
	bw := kernelWidth * spread
	if bw == 0 {
		bw = kernelWidth
	}

	xs := make([]float64, kdePoints)
	floats.Span(xs, kdeMin, kdeMax)
	density := KDE(delays, xs, bw)

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: density[i]}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = c
	line.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add(delayLegend(label, delays), line)
	p.X.Min, p.X.Max = delayAxisMin, delayAxisMax
	return p, nil
}

// delayLegend labels a delay distribution with its mean and population
// standard deviation.
func delayLegend(label string, delays []float64) string {
	mean, std := stat.PopMeanStdDev(delays, nil)
	return fmt.Sprintf("%s: μ = %.2f σ = %.2f", TrimLabel(label), mean, std)
}

// JointLimit is the symmetric axis limit of the location joint plot: the
// largest absolute coordinate rounded up to the next histogram bin edge.
func JointLimit(x, y []float64) float64 {
	var m float64
	for _, v := range x {
		m = math.Max(m, math.Abs(v))
	}
	for _, v := range y {
		m = math.Max(m, math.Abs(v))
	}
	return (math.Floor(m/jointBinWidth) + 1) * jointBinWidth
}

// binCounts histograms values into bins of jointBinWidth from -lim to lim.
func binCounts(values []float64, lim float64) []plotter.HistogramBin {
	n := int(math.Round(2 * lim / jointBinWidth))
	bins := make([]plotter.HistogramBin, n)
	for i := range bins {
		bins[i].Min = -lim + float64(i)*jointBinWidth
		bins[i].Max = bins[i].Min + jointBinWidth
	}
	for _, v := range values {
		i := int(math.Floor((v + lim) / jointBinWidth))
		if i >= 0 && i < n {
			bins[i].Weight++
		}
	}
	return bins
}

// LocationJointDist plots receptive field centres with marginal histograms
// of x above and y to the right.
func LocationJointDist(x, y []float64, c color.Color) (*Figure, error) {
	if err := checkPaired(x, y); err != nil {
		return nil, err
	}
	lim := JointLimit(x, y)

	joint := plot.New()
	joint.X.Label.Text = "x (°)"
	joint.Y.Label.Text = "y (°)"
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i] = plotter.XY{X: x[i], Y: y[i]}
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Color = c
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	joint.Add(scatter)
	joint.X.Min, joint.X.Max = -lim, lim
	joint.Y.Min, joint.Y.Max = -lim, lim

	top := plot.New()
	top.HideX()
	hist := &plotter.Histogram{Bins: binCounts(x, lim), FillColor: c, LineStyle: plotter.DefaultLineStyle}
	top.Add(hist)
	top.X.Min, top.X.Max = -lim, lim

	right := plot.New()
	right.HideY()
	for _, b := range binCounts(y, lim) {
		if b.Weight == 0 {
			continue
		}
		bar, err := plotter.NewPolygon(plotter.XYs{
			{X: 0, Y: b.Min}, {X: b.Weight, Y: b.Min}, {X: b.Weight, Y: b.Max}, {X: 0, Y: b.Max},
		})
		if err != nil {
			return nil, err
		}
		bar.Color = c
		right.Add(bar)
	}
	right.Y.Min, right.Y.Max = -lim, lim

	return &Figure{Plots: [][]*plot.Plot{
		{top, nil},
		{joint, right},
	}}, nil
}

// LocationAndSizeMap draws each receptive field as a translucent disk of
// radius sigma centred on (x, y), largest first so small fields stay
// visible.
func LocationAndSizeMap(x, y, s []float64, c color.Color) (*plot.Plot, error) {
	if err := checkPaired(x, y); err != nil {
		return nil, err
	}
	if len(s) != len(x) {
		return nil, fmt.Errorf("%w: %d positions and %d sizes", ErrLengthMismatch, len(x), len(s))
	}

	p := plot.New()
	p.X.Label.Text = "x (°)"
	p.Y.Label.Text = "y (°)"

	order := make([]int, len(s))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return s[order[a]] > s[order[b]] })

	r, g, b, _ := c.RGBA()
	fill := color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 64}
	for _, i := range order {
		if !(s[i] > 0) {
			continue
		}
		disk, err := plotter.NewPolygon(circle(x[i], y[i], s[i]))
		if err != nil {
			return nil, err
		}
		disk.Color = fill
		disk.LineStyle.Width = 0
		p.Add(disk)
	}
	p.X.Min, p.X.Max = -mapExtent, mapExtent
	p.Y.Min, p.Y.Max = -mapExtent, mapExtent
	return p, nil
}

func circle(cx, cy, r float64) plotter.XYs {
	pts := make(plotter.XYs, circleEdges)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleEdges
		pts[i] = plotter.XY{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	return pts
}
