package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetSensitivity() != 1.9 {
		t.Errorf("GetSensitivity() = %f, want 1.9", cfg.GetSensitivity())
	}
	if cfg.GetMovingAverageWindow() != 5 {
		t.Errorf("GetMovingAverageWindow() = %d, want 5", cfg.GetMovingAverageWindow())
	}
	if cfg.GetDerivativeMovingAverageWindow() != 5 {
		t.Errorf("GetDerivativeMovingAverageWindow() = %d, want 5", cfg.GetDerivativeMovingAverageWindow())
	}
	if cfg.GetWarmupDelay() != 30*time.Second {
		t.Errorf("GetWarmupDelay() = %v, want 30s", cfg.GetWarmupDelay())
	}
	if cfg.GetNaiveWindow() != 50 {
		t.Errorf("GetNaiveWindow() = %d, want 50", cfg.GetNaiveWindow())
	}
	if cfg.GetNominalFPS() != 30.0 {
		t.Errorf("GetNominalFPS() = %f, want 30", cfg.GetNominalFPS())
	}
	if cfg.GetMinimumFPS() != 20.0 {
		t.Errorf("GetMinimumFPS() = %f, want 20", cfg.GetMinimumFPS())
	}
	if cfg.GetSummaryInterval() != 5*time.Minute {
		t.Errorf("GetSummaryInterval() = %v, want 5m", cfg.GetSummaryInterval())
	}
	if cfg.GetSummaryWindow() != 10*time.Minute {
		t.Errorf("GetSummaryWindow() = %v, want 10m", cfg.GetSummaryWindow())
	}
	if cfg.GetMaxChartPoints() != 600 {
		t.Errorf("GetMaxChartPoints() = %d, want 600", cfg.GetMaxChartPoints())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "sensitivity": 2.4,
  "moving_average_window": 9,
  "warmup_delay": "45s",
  "summary_interval": "2m"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Named fields override; omitted fields keep defaults.
	if cfg.GetSensitivity() != 2.4 {
		t.Errorf("GetSensitivity() = %f, want 2.4", cfg.GetSensitivity())
	}
	if cfg.GetMovingAverageWindow() != 9 {
		t.Errorf("GetMovingAverageWindow() = %d, want 9", cfg.GetMovingAverageWindow())
	}
	if cfg.GetWarmupDelay() != 45*time.Second {
		t.Errorf("GetWarmupDelay() = %v, want 45s", cfg.GetWarmupDelay())
	}
	if cfg.GetSummaryInterval() != 2*time.Minute {
		t.Errorf("GetSummaryInterval() = %v, want 2m", cfg.GetSummaryInterval())
	}
	if cfg.GetDerivativeMovingAverageWindow() != 5 {
		t.Errorf("GetDerivativeMovingAverageWindow() = %d, want default 5", cfg.GetDerivativeMovingAverageWindow())
	}
	if cfg.GetNaiveWindow() != 50 {
		t.Errorf("GetNaiveWindow() = %d, want default 50", cfg.GetNaiveWindow())
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	_, err := LoadTuningConfig("tuning.yaml")
	if err == nil || !strings.Contains(err.Error(), ".json") {
		t.Fatalf("expected .json extension error, got %v", err)
	}
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadTuningConfigInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(configPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Fatal("expected parse error for invalid JSON")
	}
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name string
		cfg  TuningConfig
	}{
		{"negative sensitivity", TuningConfig{Sensitivity: ptrFloat64(-1)}},
		{"zero sensitivity", TuningConfig{Sensitivity: ptrFloat64(0)}},
		{"huge sensitivity", TuningConfig{Sensitivity: ptrFloat64(100)}},
		{"zero window", TuningConfig{MovingAverageWindow: ptrInt(0)}},
		{"zero derivative window", TuningConfig{DerivativeMovingAverageWindow: ptrInt(0)}},
		{"zero naive window", TuningConfig{NaiveWindow: ptrInt(0)}},
		{"bad warmup", TuningConfig{WarmupDelay: ptrString("soon")}},
		{"bad summary interval", TuningConfig{SummaryInterval: ptrString("whenever")}},
		{"bad summary window", TuningConfig{SummaryWindow: ptrString("5 parsecs")}},
		{"negative fps", TuningConfig{NominalFPS: ptrFloat64(-30)}},
		{"minimum above nominal", TuningConfig{NominalFPS: ptrFloat64(20), MinimumFPS: ptrFloat64(30)}},
		{"tiny chart cap", TuningConfig{MaxChartPoints: ptrInt(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Errorf("Validate() accepted %s", tt.name)
			}
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := EmptyTuningConfig().Validate(); err != nil {
		t.Errorf("empty config should validate, got %v", err)
	}

	full := TuningConfig{
		Sensitivity:                   ptrFloat64(1.9),
		MovingAverageWindow:           ptrInt(5),
		DerivativeMovingAverageWindow: ptrInt(5),
		WarmupDelay:                   ptrString("30s"),
		NaiveWindow:                   ptrInt(50),
		NominalFPS:                    ptrFloat64(30),
		MinimumFPS:                    ptrFloat64(20),
		SummaryInterval:               ptrString("5m"),
		SummaryWindow:                 ptrString("10m"),
		MaxChartPoints:                ptrInt(600),
	}
	if err := full.Validate(); err != nil {
		t.Errorf("full config should validate, got %v", err)
	}
}

func TestAnalystConfig(t *testing.T) {
	cfg := TuningConfig{
		Sensitivity:         ptrFloat64(2.2),
		MovingAverageWindow: ptrInt(7),
		WarmupDelay:         ptrString("10s"),
	}

	ac := cfg.AnalystConfig()
	if ac.Sensitivity != 2.2 {
		t.Errorf("Sensitivity = %f, want 2.2", ac.Sensitivity)
	}
	if ac.MovingAverageWindow != 7 {
		t.Errorf("MovingAverageWindow = %d, want 7", ac.MovingAverageWindow)
	}
	if ac.DerivativeMovingAverageWindow != 5 {
		t.Errorf("DerivativeMovingAverageWindow = %d, want default 5", ac.DerivativeMovingAverageWindow)
	}
	if ac.WarmupDelay != 10*time.Second {
		t.Errorf("WarmupDelay = %v, want 10s", ac.WarmupDelay)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetSensitivity() != 1.9 {
		t.Errorf("defaults file sensitivity = %f, want 1.9", cfg.GetSensitivity())
	}
	if cfg.GetNaiveWindow() != 50 {
		t.Errorf("defaults file naive_window = %d, want 50", cfg.GetNaiveWindow())
	}
}
