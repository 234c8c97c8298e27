package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/retinotopy/internal/fit"
	"github.com/banshee-data/retinotopy/internal/kernel"
	"github.com/banshee-data/retinotopy/internal/model"
	"github.com/banshee-data/retinotopy/internal/sweep"
	"github.com/banshee-data/retinotopy/internal/units"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/prf.defaults.json"

// Model names accepted by the model field.
const (
	ModelGaussian          = "gaussian"
	ModelSpatioTemporal    = "spatiotemporal"
	ModelSpatioTemporalHRF = "spatiotemporal_hrf"
)

// AnalysisConfig is the root configuration for simulating and fitting a run.
// Every field is optional; the Get* methods supply defaults for anything
// left unset, so partial configs are safe.
type AnalysisConfig struct {
	Stimulus StimulusConfig `json:"stimulus" yaml:"stimulus"`
	Model    ModelConfig    `json:"model" yaml:"model"`

	// Grids maps a parameter name to "start:stop:count" or a value list.
	Grids map[string]string `json:"grids,omitempty" yaml:"grids,omitempty"`
	// Bounds maps a parameter name to "min:max"; either side may be "none".
	Bounds map[string]string `json:"bounds,omitempty" yaml:"bounds,omitempty"`

	Optimiser *fit.Options `json:"optimiser,omitempty" yaml:"optimiser,omitempty"`

	Output  OutputConfig `json:"output" yaml:"output"`
	Workers *int         `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// StimulusConfig describes the display and the simulated bar run.
type StimulusConfig struct {
	PixelsAcross    *int     `json:"pixels_across,omitempty" yaml:"pixels_across,omitempty"`
	PixelsDown      *int     `json:"pixels_down,omitempty" yaml:"pixels_down,omitempty"`
	ViewingDistance *float64 `json:"viewing_distance,omitempty" yaml:"viewing_distance,omitempty"`
	ScreenWidth     *float64 `json:"screen_width,omitempty" yaml:"screen_width,omitempty"`
	ScaleFactor     *float64 `json:"scale_factor,omitempty" yaml:"scale_factor,omitempty"`
	TRLength        *float64 `json:"tr_length,omitempty" yaml:"tr_length,omitempty"`

	// Bar run
	Eccentricity *float64  `json:"eccentricity,omitempty" yaml:"eccentricity,omitempty"`
	Thetas       []float64 `json:"thetas,omitempty" yaml:"thetas,omitempty"`
	BarSteps     *int      `json:"bar_steps,omitempty" yaml:"bar_steps,omitempty"`
	BlankSteps   *int      `json:"blank_steps,omitempty" yaml:"blank_steps,omitempty"`

	// Flicker
	ProjectorHz *float64  `json:"projector_hz,omitempty" yaml:"projector_hz,omitempty"`
	FlickerHz   []float64 `json:"flicker_hz,omitempty" yaml:"flicker_hz,omitempty"`
}

// ModelConfig selects the prediction model and its kernels.
type ModelConfig struct {
	Name     *string  `json:"name,omitempty" yaml:"name,omitempty"`
	Kernel   *string  `json:"kernel,omitempty" yaml:"kernel,omitempty"`
	Tau      *float64 `json:"tau,omitempty" yaml:"tau,omitempty"`
	MaskSize *float64 `json:"mask_size,omitempty" yaml:"mask_size,omitempty"`
	Power    *float64 `json:"power,omitempty" yaml:"power,omitempty"`
	HRFDelay *float64 `json:"hrf_delay,omitempty" yaml:"hrf_delay,omitempty"`
}

// OutputConfig names where results are written and the units of the
// polar angle column in fit tables.
type OutputConfig struct {
	CSV        *string `json:"csv,omitempty" yaml:"csv,omitempty"`
	Database   *string `json:"database,omitempty" yaml:"database,omitempty"`
	PlotDir    *string `json:"plot_dir,omitempty" yaml:"plot_dir,omitempty"`
	AngleUnits *string `json:"angle_units,omitempty" yaml:"angle_units,omitempty"`
}

var (
	defaultThetas    = []float64{-1, 0, 90, 180, 270, -1}
	defaultFlickerHz = []float64{10, 20}

	defaultGrids = map[string]string{
		model.ParamX:        "-10:10:9",
		model.ParamY:        "-10:10:9",
		model.ParamSigma:    "0.5:5:6",
		model.ParamWeight:   "0.1:0.9:5",
		model.ParamHRFDelay: "-2:2:5",
	}
	defaultBounds = map[string]string{
		model.ParamX:        "-15:15",
		model.ParamY:        "-15:15",
		model.ParamSigma:    "0.05:15",
		model.ParamWeight:   "0:1",
		model.ParamHRFDelay: "-4:4",
		model.ParamBeta:     "0:none",
		model.ParamBaseline: "none",
	}
)

// EmptyAnalysisConfig returns an AnalysisConfig with all fields unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// LoadAnalysisConfig loads an AnalysisConfig from a .json, .yaml or .yml
// file under 1MB.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or a parent. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/prf/ and deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable.
func (c *AnalysisConfig) Validate() error {
	s := c.Stimulus
	for name, v := range map[string]*int{
		"pixels_across": s.PixelsAcross,
		"pixels_down":   s.PixelsDown,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, *v)
		}
	}
	for name, v := range map[string]*float64{
		"viewing_distance": s.ViewingDistance,
		"screen_width":     s.ScreenWidth,
		"scale_factor":     s.ScaleFactor,
		"tr_length":        s.TRLength,
		"eccentricity":     s.Eccentricity,
		"projector_hz":     s.ProjectorHz,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, *v)
		}
	}
	if s.BarSteps != nil && *s.BarSteps < 0 {
		return fmt.Errorf("bar_steps must be non-negative, got %d", *s.BarSteps)
	}
	if s.BlankSteps != nil && *s.BlankSteps < 0 {
		return fmt.Errorf("blank_steps must be non-negative, got %d", *s.BlankSteps)
	}
	for _, hz := range c.GetFlickerHz() {
		if hz <= 0 || hz > c.GetProjectorHz()/2 {
			return fmt.Errorf("flicker_hz %g outside (0, %g]", hz, c.GetProjectorHz()/2)
		}
	}

	switch c.GetModelName() {
	case ModelGaussian, ModelSpatioTemporal, ModelSpatioTemporalHRF:
	default:
		return fmt.Errorf("unknown model %q", c.GetModelName())
	}
	if _, err := kernel.ParseShape(c.GetKernel()); err != nil {
		return err
	}
	if c.Model.Power != nil && *c.Model.Power < 0 {
		return fmt.Errorf("power must be non-negative, got %g", *c.Model.Power)
	}
	if c.Model.HRFDelay != nil && *c.Model.HRFDelay <= kernel.MinHRFDelay {
		return fmt.Errorf("hrf_delay must exceed %g, got %g", kernel.MinHRFDelay, *c.Model.HRFDelay)
	}

	for name, spec := range c.Grids {
		if _, err := sweep.ParseParamList(spec); err != nil {
			return fmt.Errorf("grid %s: %w", name, err)
		}
	}
	for name, spec := range c.Bounds {
		if _, _, err := sweep.ParseBoundSpec(spec); err != nil {
			return fmt.Errorf("bound %s: %w", name, err)
		}
	}
	if c.Optimiser != nil {
		if err := c.Optimiser.Validate(); err != nil {
			return fmt.Errorf("optimiser: %w", err)
		}
	}
	if !units.IsValid(c.GetAngleUnits()) {
		return fmt.Errorf("angle_units %q must be one of %s", c.GetAngleUnits(), units.GetValidUnitsString())
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// GetPixelsAcross returns the pixels_across value or the default.
func (c *AnalysisConfig) GetPixelsAcross() int {
	if c.Stimulus.PixelsAcross == nil {
		return 200
	}
	return *c.Stimulus.PixelsAcross
}

// GetPixelsDown returns the pixels_down value or the default.
func (c *AnalysisConfig) GetPixelsDown() int {
	if c.Stimulus.PixelsDown == nil {
		return 200
	}
	return *c.Stimulus.PixelsDown
}

// GetViewingDistance returns the viewing_distance value or the default.
func (c *AnalysisConfig) GetViewingDistance() float64 {
	if c.Stimulus.ViewingDistance == nil {
		return 38
	}
	return *c.Stimulus.ViewingDistance
}

// GetScreenWidth returns the screen_width value or the default.
func (c *AnalysisConfig) GetScreenWidth() float64 {
	if c.Stimulus.ScreenWidth == nil {
		return 25
	}
	return *c.Stimulus.ScreenWidth
}

// GetScaleFactor returns the scale_factor value or the default.
func (c *AnalysisConfig) GetScaleFactor() float64 {
	if c.Stimulus.ScaleFactor == nil {
		return 0.25
	}
	return *c.Stimulus.ScaleFactor
}

// GetTRLength returns the tr_length value or the default.
func (c *AnalysisConfig) GetTRLength() float64 {
	if c.Stimulus.TRLength == nil {
		return 1
	}
	return *c.Stimulus.TRLength
}

// GetEccentricity returns the eccentricity value or the default.
func (c *AnalysisConfig) GetEccentricity() float64 {
	if c.Stimulus.Eccentricity == nil {
		return 10
	}
	return *c.Stimulus.Eccentricity
}

// GetThetas returns the bar directions or the default run.
func (c *AnalysisConfig) GetThetas() []float64 {
	if len(c.Stimulus.Thetas) == 0 {
		return append([]float64(nil), defaultThetas...)
	}
	return c.Stimulus.Thetas
}

// GetBarSteps returns the bar_steps value or the default.
func (c *AnalysisConfig) GetBarSteps() int {
	if c.Stimulus.BarSteps == nil {
		return 40
	}
	return *c.Stimulus.BarSteps
}

// GetBlankSteps returns the blank_steps value or the default.
func (c *AnalysisConfig) GetBlankSteps() int {
	if c.Stimulus.BlankSteps == nil {
		return 20
	}
	return *c.Stimulus.BlankSteps
}

// GetProjectorHz returns the projector_hz value or the default.
func (c *AnalysisConfig) GetProjectorHz() float64 {
	if c.Stimulus.ProjectorHz == nil {
		return 480
	}
	return *c.Stimulus.ProjectorHz
}

// GetFlickerHz returns the flicker frequencies. An explicit empty list
// disables flicker.
func (c *AnalysisConfig) GetFlickerHz() []float64 {
	if c.Stimulus.FlickerHz == nil {
		return append([]float64(nil), defaultFlickerHz...)
	}
	return c.Stimulus.FlickerHz
}

// GetModelName returns the model name or the default.
func (c *AnalysisConfig) GetModelName() string {
	if c.Model.Name == nil || *c.Model.Name == "" {
		return ModelGaussian
	}
	return *c.Model.Name
}

// GetKernel returns the spatial kernel name or the default.
func (c *AnalysisConfig) GetKernel() string {
	if c.Model.Kernel == nil {
		return kernel.ShapeGaussian.String()
	}
	return *c.Model.Kernel
}

// ModelOptions converts the model section. Unset values fall through to
// the model defaults.
func (c *AnalysisConfig) ModelOptions() (model.Options, error) {
	opts := model.DefaultOptions()
	shape, err := kernel.ParseShape(c.GetKernel())
	if err != nil {
		return opts, err
	}
	opts.Kernel = shape
	if c.Model.Tau != nil {
		opts.Tau = *c.Model.Tau
	}
	if c.Model.MaskSize != nil {
		opts.MaskSize = *c.Model.MaskSize
	}
	if c.Model.Power != nil {
		opts.Power = *c.Model.Power
	}
	if c.Model.HRFDelay != nil {
		opts.HRFDelay = *c.Model.HRFDelay
	}
	return opts, nil
}

// GetOptimiser returns the refinement settings or the defaults.
func (c *AnalysisConfig) GetOptimiser() fit.Options {
	if c.Optimiser == nil {
		return fit.DefaultOptions()
	}
	return *c.Optimiser
}

// GridsFor returns the coarse grid of each of the first search parameters.
func (c *AnalysisConfig) GridsFor(params []string) ([]fit.Grid, error) {
	grids := make([]fit.Grid, len(params))
	for i, name := range params {
		spec, ok := c.Grids[name]
		if !ok {
			if spec, ok = defaultGrids[name]; !ok {
				return nil, fmt.Errorf("no grid for parameter %s", name)
			}
		}
		values, err := sweep.ParseParamList(spec)
		if err != nil {
			return nil, fmt.Errorf("grid %s: %w", name, err)
		}
		grids[i] = fit.Grid(values)
	}
	return grids, nil
}

// BoundsFor returns a bound for every parameter; names without a
// configured or default bound are left open.
func (c *AnalysisConfig) BoundsFor(params []string) ([]fit.Bound, error) {
	bounds := make([]fit.Bound, len(params))
	for i, name := range params {
		spec, ok := c.Bounds[name]
		if !ok {
			spec = defaultBounds[name]
		}
		lo, hi, err := sweep.ParseBoundSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("bound %s: %w", name, err)
		}
		bounds[i] = fit.Bound{Min: lo, Max: hi}
	}
	return bounds, nil
}

// GetCSVPath returns the output csv path or the default.
func (c *AnalysisConfig) GetCSVPath() string {
	if c.Output.CSV == nil {
		return "prf_fits.csv"
	}
	return *c.Output.CSV
}

// GetDatabasePath returns the sqlite path or the default.
func (c *AnalysisConfig) GetDatabasePath() string {
	if c.Output.Database == nil {
		return "prf.db"
	}
	return *c.Output.Database
}

// GetPlotDir returns the figure directory or the default.
func (c *AnalysisConfig) GetPlotDir() string {
	if c.Output.PlotDir == nil {
		return "plots"
	}
	return *c.Output.PlotDir
}

// GetAngleUnits returns the fit table angle units or the default.
func (c *AnalysisConfig) GetAngleUnits() string {
	if c.Output.AngleUnits == nil {
		return units.Radians
	}
	return *c.Output.AngleUnits
}

// GetWorkers returns the worker count; 0 means one per CPU.
func (c *AnalysisConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}
