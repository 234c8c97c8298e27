package plotting

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Series is one region of interest in the HTML report.
type Series struct {
	Name   string
	Ecc    []float64
	Sigma  []float64
	Delays []float64
}

func eccentricityChart(series []Series) (*charts.Scatter, error) {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "pRF size vs eccentricity", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "pRF size vs eccentricity", Subtitle: fmt.Sprintf("regions=%d", len(series))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: eccMax, Name: "Eccentricity (°)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: sigmaMin, Max: sigmaMax, Name: "pRF size (°)", NameLocation: "middle", NameGap: 30}),
	)
	for _, s := range series {
		if err := checkPaired(s.Ecc, s.Sigma); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		data := make([]opts.ScatterData, len(s.Ecc))
		for i := range s.Ecc {
			data[i] = opts.ScatterData{Value: []interface{}{s.Ecc[i], s.Sigma[i]}}
		}
		scatter.AddSeries(TrimLabel(s.Name), data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	}
	return scatter, nil
}

func delayChart(series []Series, kernelWidth float64) *charts.Line {
	xs := make([]float64, kdePoints)
	floats.Span(xs, kdeMin, kdeMax)
	labels := make([]string, len(xs))
	for i, x := range xs {
		labels[i] = fmt.Sprintf("%.2f", x)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "HRF delay", Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "HRF delay density"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(labels)
	for _, s := range series {
		if len(s.Delays) == 0 {
			continue
		}
		std := 0.0
		if len(s.Delays) > 1 {
			std = stat.StdDev(s.Delays, nil)
		}
		bw := kernelWidth * std
		if bw == 0 {
			bw = kernelWidth
		}
		density := KDE(s.Delays, xs, bw)
		data := make([]opts.LineData, len(density))
		for i, d := range density {
			data[i] = opts.LineData{Value: d}
		}
		line.AddSeries(TrimLabel(s.Name), data)
	}
	return line
}

// EccentricitySigmaHTML writes an interactive size-versus-eccentricity
// scatter with one series per region.
func EccentricitySigmaHTML(w io.Writer, series []Series) error {
	if len(series) == 0 {
		return ErrNoData
	}
	scatter, err := eccentricityChart(series)
	if err != nil {
		return err
	}
	return scatter.Render(w)
}

// ReportHTML writes a page holding the eccentricity scatter and, when any
// region carries HRF delays, their density.
func ReportHTML(w io.Writer, series []Series, kernelWidth float64) error {
	if len(series) == 0 {
		return ErrNoData
	}
	scatter, err := eccentricityChart(series)
	if err != nil {
		return err
	}
	page := components.NewPage()
	page.PageTitle = "pRF fit report"
	page.AddCharts(scatter)
	for _, s := range series {
		if len(s.Delays) > 0 {
			page.AddCharts(delayChart(series, kernelWidth))
			break
		}
	}
	return page.Render(w)
}
