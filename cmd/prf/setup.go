package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/retinotopy/internal/config"
	"github.com/banshee-data/retinotopy/internal/model"
	"github.com/banshee-data/retinotopy/internal/security"
	"github.com/banshee-data/retinotopy/internal/stimulus"
	"github.com/banshee-data/retinotopy/internal/store"
)

func loadConfig(cmd *cobra.Command) (*config.AnalysisConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.EmptyAnalysisConfig(), nil
	}
	return config.LoadAnalysisConfig(path)
}

// buildStimulus renders the configured bar run and attaches its flicker
// schedule when flicker frequencies are configured.
func buildStimulus(cfg *config.AnalysisConfig) (*stimulus.VisualStimulus, error) {
	across, down := cfg.GetPixelsAcross(), cfg.GetPixelsDown()
	thetas := cfg.GetThetas()
	frames, _, err := stimulus.SimulateBarStimulus(across, down, cfg.GetViewingDistance(), cfg.GetScreenWidth(),
		thetas, cfg.GetBarSteps(), cfg.GetBlankSteps(), cfg.GetEccentricity())
	if err != nil {
		return nil, fmt.Errorf("simulating bar stimulus: %w", err)
	}

	var opts []stimulus.Option
	if hz := cfg.GetFlickerHz(); len(hz) > 0 {
		vec := stimulus.BarFlickerSchedule(thetas, cfg.GetBarSteps(), cfg.GetBlankSteps(), len(hz))
		opts = append(opts, stimulus.WithFlicker(cfg.GetProjectorHz(), vec, hz))
	}
	return stimulus.NewVisualStimulus(frames, down, across, cfg.GetViewingDistance(), cfg.GetScreenWidth(),
		cfg.GetScaleFactor(), cfg.GetTRLength(), opts...)
}

func buildModel(cfg *config.AnalysisConfig, stim *stimulus.VisualStimulus) (model.Model, error) {
	opts, err := cfg.ModelOptions()
	if err != nil {
		return nil, err
	}
	switch name := cfg.GetModelName(); name {
	case config.ModelGaussian:
		return model.NewGaussianModel(stim, opts)
	case config.ModelSpatioTemporal:
		return model.NewSpatioTemporalModel(stim, opts)
	case config.ModelSpatioTemporalHRF:
		return model.NewSpatioTemporalHRFModel(stim, opts)
	default:
		return nil, fmt.Errorf("unknown model %q", name)
	}
}

// openStore opens and migrates the database named by --db or the config.
func openStore(cmd *cobra.Command, cfg *config.AnalysisConfig) (*store.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = cfg.GetDatabasePath()
	}
	if err := security.ValidateOutputPath(path); err != nil {
		return nil, err
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	if err := st.MigrateUp(); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
