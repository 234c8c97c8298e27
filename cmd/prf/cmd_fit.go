package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/retinotopy/internal/fit"
	"github.com/banshee-data/retinotopy/internal/model"
	"github.com/banshee-data/retinotopy/internal/monitoring"
	"github.com/banshee-data/retinotopy/internal/security"
	"github.com/banshee-data/retinotopy/internal/store"
	"github.com/banshee-data/retinotopy/internal/sweep"
)

var logFit = monitoring.Component("prf")

func newFitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit VOXELS.csv",
		Short: "Fit the configured model to every voxel of a series CSV",
		Long: `Reads one voxel time series per CSV row, runs the coarse grid search
and bounded refinement for each voxel in parallel, stores the run in the
database and writes a fit table CSV. Prints the run ID.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = cfg.GetCSVPath()
			}
			workers, _ := cmd.Flags().GetInt("workers")
			if !cmd.Flags().Changed("workers") {
				workers = cfg.GetWorkers()
			}

			series, err := readSeries(args[0])
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
			for i, s := range series {
				if len(s) != stim.Len() {
					return fmt.Errorf("voxel %d has %d samples, stimulus has %d TRs", i, len(s), stim.Len())
				}
			}

			params := m.Params()
			grids, err := cfg.GridsFor(params[:m.SearchParams()])
			if err != nil {
				return err
			}
			bounds, err := cfg.BoundsFor(params)
			if err != nil {
				return err
			}

			st, err := openStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			cfgJSON, err := json.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			run := &store.FitRun{
				Model:      cfg.GetModelName(),
				Params:     params,
				Overloaded: fit.OverloadedNames(m),
				Config:     cfgJSON,
			}
			if err := st.CreateRun(run); err != nil {
				return fmt.Errorf("creating run: %w", err)
			}

			done := logFit.Timed(fmt.Sprintf("fitting %d voxels", len(series)))
			results, batchErr := fit.Batch(cmd.Context(), m, series, grids, bounds, cfg.GetOptimiser(), workers)
			done()

			if err := saveResults(st, run, m, results, out, cfg.GetAngleUnits()); err != nil {
				return err
			}
			if batchErr != nil {
				return fmt.Errorf("run %s interrupted: %w", run.RunID, batchErr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), run.RunID)
			return nil
		},
	}
	cmd.Flags().String("out", "", "Fit table CSV (defaults to the config output.csv)")
	cmd.Flags().Int("workers", 0, "Concurrent voxel fits; 0 uses one per CPU")
	return cmd
}

func readSeries(path string) ([][]float64, error) {
	r, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer r.Close()
	series, err := sweep.ReadSeriesCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%s: no voxels", path)
	}
	return series, nil
}

// saveResults persists every result and writes the fit table.
func saveResults(st *store.Store, run *store.FitRun, m model.Model, results []fit.VoxelResult, out, angleUnits string) error {
	rows := make([]sweep.FitRow, len(results))
	fits := make([]store.VoxelFit, len(results))
	for i, r := range results {
		fits[i] = store.NewVoxelFit(run.RunID, r)
		rows[i] = sweep.FitRow{
			Voxel:       r.Voxel,
			Estimate:    fits[i].Estimate,
			Overloaded:  fits[i].Overloaded,
			SSE:         fits[i].SSE,
			RSquared:    fits[i].RSquared,
			Evaluations: fits[i].Evaluations,
			Status:      fits[i].Status,
			Err:         r.Err,
		}
	}
	if err := st.InsertVoxelFits(fits); err != nil {
		return fmt.Errorf("storing run %s: %w", run.RunID, err)
	}

	if err := security.ValidateOutputPath(out); err != nil {
		return err
	}
	w, err := fsys.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	table := sweep.NewCSVWriter(w, run.Params, run.Overloaded).WithAngleUnits(angleUnits)
	if err := table.WriteHeader(); err != nil {
		w.Close()
		return err
	}
	for _, row := range rows {
		if err := table.WriteRow(row); err != nil {
			w.Close()
			return err
		}
	}
	if err := table.Flush(); err != nil {
		w.Close()
		return err
	}
	sweep.WriteSummary(m.Params(), rows)
	return w.Close()
}
