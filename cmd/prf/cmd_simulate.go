package main

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/retinotopy/internal/fit"
	"github.com/banshee-data/retinotopy/internal/model"
	"github.com/banshee-data/retinotopy/internal/monitoring"
	"github.com/banshee-data/retinotopy/internal/security"
	"github.com/banshee-data/retinotopy/internal/sweep"
)

var logSimulate = monitoring.Component("simulate")

// truthRanges are the uniform ranges ground-truth parameters are drawn from.
// Location is drawn in polar form inside 80% of the stimulus aperture.
var truthRanges = map[string][2]float64{
	model.ParamSigma:    {0.5, 3},
	model.ParamWeight:   {0.2, 0.8},
	model.ParamHRFDelay: {-1, 1},
	model.ParamBeta:     {2, 10},
	model.ParamBaseline: {90, 110},
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write synthetic voxel time series for the configured model",
		Long: `Draws random ground-truth parameters, predicts each voxel with the
configured model and stimulus, adds Gaussian noise and writes one voxel per
CSV row. The ground truth can be written alongside as a fit table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			truthPath, _ := cmd.Flags().GetString("truth")
			voxels, _ := cmd.Flags().GetInt("voxels")
			seed, _ := cmd.Flags().GetUint64("seed")
			noise, _ := cmd.Flags().GetFloat64("noise")
			if voxels <= 0 {
				return fmt.Errorf("--voxels must be positive, got %d", voxels)
			}
			if noise < 0 {
				return fmt.Errorf("--noise must be non-negative, got %g", noise)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			stim, err := buildStimulus(cfg)
			if err != nil {
				return err
			}
			m, err := buildModel(cfg, stim)
			if err != nil {
				return err
			}

			src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
			truths, series, err := simulateVoxels(m, voxels, cfg.GetEccentricity(), noise, src)
			if err != nil {
				return err
			}

			if err := writeSeries(out, series); err != nil {
				return err
			}
			if truthPath != "" {
				if err := writeTruth(truthPath, m, truths, cfg.GetAngleUnits()); err != nil {
					return err
				}
			}
			logSimulate("wrote %d voxels of %d TRs to %s", voxels, stim.Len(), out)
			return nil
		},
	}
	cmd.Flags().String("out", "voxels.csv", "Output voxel series CSV")
	cmd.Flags().String("truth", "", "Optional ground-truth fit table CSV")
	cmd.Flags().Int("voxels", 20, "Number of voxels to simulate")
	cmd.Flags().Uint64("seed", 1, "Random seed")
	cmd.Flags().Float64("noise", 0.5, "Standard deviation of additive Gaussian noise")
	return cmd
}

// simulateVoxels draws n parameter tuples for m and their noisy predictions.
func simulateVoxels(m model.Model, n int, ecc, noise float64, src rand.Source) (truths, series [][]float64, err error) {
	uniform := func(lo, hi float64) float64 {
		return distuv.Uniform{Min: lo, Max: hi, Src: src}.Rand()
	}
	jitter := distuv.Normal{Mu: 0, Sigma: noise, Src: src}

	params := m.Params()
	for v := 0; v < n; v++ {
		theta := uniform(0, 2*math.Pi)
		rho := uniform(0.05*ecc, 0.8*ecc)
		p := make([]float64, len(params))
		for i, name := range params {
			switch name {
			case model.ParamX:
				p[i] = rho * math.Cos(theta)
			case model.ParamY:
				p[i] = rho * math.Sin(theta)
			default:
				r := truthRanges[name]
				p[i] = uniform(r[0], r[1])
			}
		}
		pred, err := m.GeneratePrediction(p)
		if err != nil {
			return nil, nil, fmt.Errorf("voxel %d: %w", v, err)
		}
		if noise > 0 {
			for t := range pred {
				pred[t] += jitter.Rand()
			}
		}
		truths = append(truths, p)
		series = append(series, pred)
	}
	return truths, series, nil
}

func writeSeries(path string, series [][]float64) error {
	if err := security.ValidateOutputPath(path); err != nil {
		return err
	}
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := sweep.WriteSeriesCSV(w, series); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func writeTruth(path string, m model.Model, truths [][]float64, angleUnits string) error {
	if err := security.ValidateOutputPath(path); err != nil {
		return err
	}
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	table := sweep.NewCSVWriter(w, m.Params(), fit.OverloadedNames(m)).WithAngleUnits(angleUnits)
	if err := table.WriteHeader(); err != nil {
		w.Close()
		return err
	}
	for v, p := range truths {
		f := &fit.Fit{Model: m, Estimate: p}
		row := sweep.FitRow{Voxel: v, Estimate: p, Overloaded: f.OverloadedEstimate(), RSquared: 1, Status: "truth"}
		if err := table.WriteRow(row); err != nil {
			w.Close()
			return err
		}
	}
	if err := table.Flush(); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
