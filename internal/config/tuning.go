package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethogram-labs/affect.monitor/internal/analyst"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root configuration for detector and worker tuning.
// All fields are optional pointers so a partial JSON file only overrides
// what it names; the Get* accessors supply defaults for the rest. The
// same JSON shape is accepted by the session-create API, so one file can
// seed both daemon startup and per-session overrides.
type TuningConfig struct {
	// Detector params
	Sensitivity                   *float64 `json:"sensitivity,omitempty"`
	MovingAverageWindow           *int     `json:"moving_average_window,omitempty"`
	DerivativeMovingAverageWindow *int     `json:"derivative_moving_average_window,omitempty"`
	WarmupDelay                   *string  `json:"warmup_delay,omitempty"` // duration string like "30s"
	NaiveWindow                   *int     `json:"naive_window,omitempty"`

	// Input stream params (recorded on sessions, not enforced by the core)
	NominalFPS *float64 `json:"nominal_fps,omitempty"`
	MinimumFPS *float64 `json:"minimum_fps,omitempty"`

	// Summary worker params
	SummaryInterval *string `json:"summary_interval,omitempty"` // duration string like "5m"
	SummaryWindow   *string `json:"summary_window,omitempty"`   // duration string like "10m"

	// Chart params
	MaxChartPoints *int `json:"max_chart_points,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file retain their
// default values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
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

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath. It searches for the file in the current directory
// and common parent directories. Panics if the file cannot be loaded,
// intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.Sensitivity != nil {
		if *c.Sensitivity <= 0 || *c.Sensitivity > 10 {
			return fmt.Errorf("sensitivity must be between 0 and 10, got %f", *c.Sensitivity)
		}
	}

	if c.MovingAverageWindow != nil && *c.MovingAverageWindow < 1 {
		return fmt.Errorf("moving_average_window must be at least 1, got %d", *c.MovingAverageWindow)
	}
	if c.DerivativeMovingAverageWindow != nil && *c.DerivativeMovingAverageWindow < 1 {
		return fmt.Errorf("derivative_moving_average_window must be at least 1, got %d", *c.DerivativeMovingAverageWindow)
	}
	if c.NaiveWindow != nil && *c.NaiveWindow < 1 {
		return fmt.Errorf("naive_window must be at least 1, got %d", *c.NaiveWindow)
	}

	if c.WarmupDelay != nil && *c.WarmupDelay != "" {
		if _, err := time.ParseDuration(*c.WarmupDelay); err != nil {
			return fmt.Errorf("invalid warmup_delay '%s': %w", *c.WarmupDelay, err)
		}
	}
	if c.SummaryInterval != nil && *c.SummaryInterval != "" {
		if _, err := time.ParseDuration(*c.SummaryInterval); err != nil {
			return fmt.Errorf("invalid summary_interval '%s': %w", *c.SummaryInterval, err)
		}
	}
	if c.SummaryWindow != nil && *c.SummaryWindow != "" {
		if _, err := time.ParseDuration(*c.SummaryWindow); err != nil {
			return fmt.Errorf("invalid summary_window '%s': %w", *c.SummaryWindow, err)
		}
	}

	if c.NominalFPS != nil && *c.NominalFPS <= 0 {
		return fmt.Errorf("nominal_fps must be positive, got %f", *c.NominalFPS)
	}
	if c.MinimumFPS != nil && *c.MinimumFPS <= 0 {
		return fmt.Errorf("minimum_fps must be positive, got %f", *c.MinimumFPS)
	}
	if c.NominalFPS != nil && c.MinimumFPS != nil && *c.MinimumFPS > *c.NominalFPS {
		return fmt.Errorf("minimum_fps (%f) must not exceed nominal_fps (%f)", *c.MinimumFPS, *c.NominalFPS)
	}

	if c.MaxChartPoints != nil && *c.MaxChartPoints < 10 {
		return fmt.Errorf("max_chart_points must be at least 10, got %d", *c.MaxChartPoints)
	}

	return nil
}

// GetSensitivity returns the sensitivity value or the default.
func (c *TuningConfig) GetSensitivity() float64 {
	if c.Sensitivity == nil {
		return analyst.DefaultSensitivity
	}
	return *c.Sensitivity
}

// GetMovingAverageWindow returns the moving_average_window value or the default.
func (c *TuningConfig) GetMovingAverageWindow() int {
	if c.MovingAverageWindow == nil {
		return analyst.DefaultMovingAverageWindow
	}
	return *c.MovingAverageWindow
}

// GetDerivativeMovingAverageWindow returns the derivative_moving_average_window value or the default.
func (c *TuningConfig) GetDerivativeMovingAverageWindow() int {
	if c.DerivativeMovingAverageWindow == nil {
		return analyst.DefaultDerivativeMovingAverageWindow
	}
	return *c.DerivativeMovingAverageWindow
}

// GetWarmupDelay parses and returns the WarmupDelay as a time.Duration.
func (c *TuningConfig) GetWarmupDelay() time.Duration {
	if c.WarmupDelay == nil || *c.WarmupDelay == "" {
		return analyst.DefaultWarmupDelay
	}
	d, err := time.ParseDuration(*c.WarmupDelay)
	if err != nil {
		return analyst.DefaultWarmupDelay // default on parse error
	}
	return d
}

// GetNaiveWindow returns the naive_window value or the default.
func (c *TuningConfig) GetNaiveWindow() int {
	if c.NaiveWindow == nil {
		return analyst.DefaultNaiveWindow
	}
	return *c.NaiveWindow
}

// GetNominalFPS returns the nominal_fps value or the default.
func (c *TuningConfig) GetNominalFPS() float64 {
	if c.NominalFPS == nil {
		return 30.0
	}
	return *c.NominalFPS
}

// GetMinimumFPS returns the minimum_fps value or the default.
func (c *TuningConfig) GetMinimumFPS() float64 {
	if c.MinimumFPS == nil {
		return 20.0
	}
	return *c.MinimumFPS
}

// GetSummaryInterval parses and returns the SummaryInterval as a time.Duration.
func (c *TuningConfig) GetSummaryInterval() time.Duration {
	if c.SummaryInterval == nil || *c.SummaryInterval == "" {
		return 5 * time.Minute // default
	}
	d, err := time.ParseDuration(*c.SummaryInterval)
	if err != nil {
		return 5 * time.Minute // default on parse error
	}
	return d
}

// GetSummaryWindow parses and returns the SummaryWindow as a time.Duration.
func (c *TuningConfig) GetSummaryWindow() time.Duration {
	if c.SummaryWindow == nil || *c.SummaryWindow == "" {
		return 10 * time.Minute // default
	}
	d, err := time.ParseDuration(*c.SummaryWindow)
	if err != nil {
		return 10 * time.Minute // default on parse error
	}
	return d
}

// GetMaxChartPoints returns the max_chart_points value or the default.
func (c *TuningConfig) GetMaxChartPoints() int {
	if c.MaxChartPoints == nil {
		return 600
	}
	return *c.MaxChartPoints
}

// AnalystConfig materialises the detector tuning for constructing an
// Analyst.
func (c *TuningConfig) AnalystConfig() analyst.Config {
	return analyst.Config{
		Sensitivity:                   c.GetSensitivity(),
		MovingAverageWindow:           c.GetMovingAverageWindow(),
		DerivativeMovingAverageWindow: c.GetDerivativeMovingAverageWindow(),
		WarmupDelay:                   c.GetWarmupDelay(),
	}
}
