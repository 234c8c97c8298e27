package plotting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Default figure size.
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

// Figure is a grid of plots drawn on one canvas. Nil cells stay empty.
type Figure struct {
	Plots [][]*plot.Plot
}

// Save renders the figure to path, picking the format from its extension.
func (f *Figure) Save(path string, w, h vg.Length) error {
	if len(f.Plots) == 0 || len(f.Plots[0]) == 0 {
		return ErrNoData
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	c, err := draw.NewFormattedCanvas(w, h, format)
	if err != nil {
		return fmt.Errorf("unsupported figure format %q: %w", format, err)
	}

	tiles := draw.Tiles{
		Rows: len(f.Plots),
		Cols: len(f.Plots[0]),
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}
	canvases := plot.Align(f.Plots, tiles, draw.New(c))
	for j, row := range f.Plots {
		for i, p := range row {
			if p != nil {
				p.Draw(canvases[j][i])
			}
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := c.WriteTo(out); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return out.Close()
}

// Save renders a single plot to path, picking the format from its extension.
func Save(p *plot.Plot, path string, w, h vg.Length) error {
	if p == nil {
		return ErrNoData
	}
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
