package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/retinotopy/internal/model"
	"github.com/banshee-data/retinotopy/internal/monitoring"
	"github.com/banshee-data/retinotopy/internal/plotting"
	"github.com/banshee-data/retinotopy/internal/security"
	"github.com/banshee-data/retinotopy/internal/store"
)

var logPlot = monitoring.Component("plot")

// runColumns holds the per-voxel values the figures draw.
type runColumns struct {
	x, y, ecc, sigma, delay []float64
}

// collectColumns gathers successful voxels with r² at least minR2.
func collectColumns(run *store.FitRun, fits []store.VoxelFit, minR2 float64) (runColumns, error) {
	index := func(name string) int {
		for i, p := range run.Params {
			if p == name {
				return i
			}
		}
		return -1
	}
	ix, iy, is := index(model.ParamX), index(model.ParamY), index(model.ParamSigma)
	id := index(model.ParamHRFDelay)
	if ix < 0 || iy < 0 || is < 0 {
		return runColumns{}, fmt.Errorf("run %s has no x, y and sigma parameters", run.RunID)
	}

	var c runColumns
	for _, f := range fits {
		if f.Status == store.StatusFailed || len(f.Estimate) != len(run.Params) || f.RSquared < minR2 {
			continue
		}
		c.x = append(c.x, f.Estimate[ix])
		c.y = append(c.y, f.Estimate[iy])
		c.sigma = append(c.sigma, f.Estimate[is])
		// Overloaded estimates lead with theta, rho.
		c.ecc = append(c.ecc, f.Overloaded[1])
		if id >= 0 {
			c.delay = append(c.delay, f.Estimate[id])
		}
	}
	if len(c.x) == 0 {
		return c, fmt.Errorf("run %s: %w", run.RunID, plotting.ErrNoData)
	}
	return c, nil
}

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render summary figures for a stored run",
		Long: `Draws pRF size against eccentricity, the HRF delay density (for
models that fit it), the joint location distribution and the location and
size map of a stored run, plus an interactive HTML report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			runID, _ := cmd.Flags().GetString("run")
			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = cfg.GetPlotDir()
			}
			format, _ := cmd.Flags().GetString("format")
			minR2, _ := cmd.Flags().GetFloat64("min-r2")
			kdeWidth, _ := cmd.Flags().GetFloat64("kde-width")

			st, err := openStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			var run *store.FitRun
			if runID == "" {
				run, err = st.LatestRun()
			} else {
				run, err = st.GetRun(runID)
			}
			if err != nil {
				return err
			}
			fits, err := st.ListVoxelFits(run.RunID)
			if err != nil {
				return err
			}
			cols, err := collectColumns(run, fits, minR2)
			if err != nil {
				return err
			}

			if err := security.ValidateOutputPath(dir); err != nil {
				return err
			}
			if err := fsys.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}
			written, err := renderRun(dir, format, run, cols, kdeWidth)
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			logPlot("run %s: %d voxels drawn into %s", run.RunID, len(cols.x), dir)
			return nil
		},
	}
	cmd.Flags().String("run", "", "Run ID (defaults to the latest run)")
	cmd.Flags().String("dir", "", "Output directory (defaults to the config output.plot_dir)")
	cmd.Flags().String("format", "png", "Figure format: png, svg or pdf")
	cmd.Flags().Float64("min-r2", 0, "Skip voxels with a lower r²")
	cmd.Flags().Float64("kde-width", 0.25, "HRF delay density bandwidth as a multiple of the delay spread")
	return cmd
}

// renderRun writes every figure for run into dir and returns their paths.
func renderRun(dir, format string, run *store.FitRun, cols runColumns, kdeWidth float64) ([]string, error) {
	label := plotting.TrimLabel(run.Model)
	color := plotting.Palette(1)[0]
	stem := filepath.Join(dir, security.SanitizeFilename(run.Model+"_"+run.RunID[:min(8, len(run.RunID))]))
	var written []string

	ecc, err := plotting.EccentricitySigmaScatter(nil, cols.ecc, cols.sigma, color, label)
	if err != nil {
		return nil, fmt.Errorf("eccentricity figure: %w", err)
	}
	path := stem + "_ecc_sigma." + format
	if err := plotting.Save(ecc, path, plotting.DefaultWidth, plotting.DefaultHeight); err != nil {
		return nil, err
	}
	written = append(written, path)

	if len(cols.delay) > 0 {
		kde, err := plotting.HRFDelayKDE(nil, cols.delay, kdeWidth, color, label)
		if err != nil {
			return nil, fmt.Errorf("hrf delay figure: %w", err)
		}
		path := stem + "_hrf_delay." + format
		if err := plotting.Save(kde, path, plotting.DefaultWidth, plotting.DefaultHeight); err != nil {
			return nil, err
		}
		written = append(written, path)
	}

	joint, err := plotting.LocationJointDist(cols.x, cols.y, color)
	if err != nil {
		return nil, fmt.Errorf("location figure: %w", err)
	}
	path = stem + "_location_joint." + format
	if err := joint.Save(path, plotting.DefaultHeight, plotting.DefaultHeight); err != nil {
		return nil, err
	}
	written = append(written, path)

	sizes, err := plotting.LocationAndSizeMap(cols.x, cols.y, cols.sigma, color)
	if err != nil {
		return nil, fmt.Errorf("size map figure: %w", err)
	}
	path = stem + "_location_size." + format
	if err := plotting.Save(sizes, path, plotting.DefaultHeight, plotting.DefaultHeight); err != nil {
		return nil, err
	}
	written = append(written, path)

	path = stem + "_report.html"
	w, err := fsys.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	series := []plotting.Series{{Name: label, Ecc: cols.ecc, Sigma: cols.sigma, Delays: cols.delay}}
	if err := plotting.ReportHTML(w, series, kdeWidth); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return append(written, path), nil
}
