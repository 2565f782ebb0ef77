package config

import (
	"path/filepath"
	"testing"

	"github.com/san-kum/conservation/internal/experiment"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Env != "conservation-v0" {
		t.Errorf("expected env conservation-v0, got %s", cfg.Env)
	}
	if cfg.Repetitions <= 0 {
		t.Error("repetitions should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := DefaultConfig()
	cfg.Env = "conservation-v5"
	cfg.Seed = 42
	cfg.Params = map[string]float64{"alpha": 0.002}
	cfg.PolicyParams.Target = 0.15
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Env != "conservation-v5" || loaded.Seed != 42 {
		t.Errorf("unexpected config: %+v", loaded)
	}
	if loaded.Params["alpha"] != 0.002 {
		t.Errorf("expected alpha 0.002, got %f", loaded.Params["alpha"])
	}
	if loaded.PolicyParams.Target != 0.15 {
		t.Errorf("expected target 0.15, got %f", loaded.PolicyParams.Target)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	cfg := DefaultConfig()
	cfg.Repetitions = 0
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDataDir, "/tmp/conservation-runs")
	t.Setenv(EnvArchive, "")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.DataDir != "/tmp/conservation-runs" {
		t.Errorf("expected data dir from environment, got %s", cfg.DataDir)
	}
	if cfg.Archive != DefaultArchive {
		t.Errorf("empty variable should keep default, got %s", cfg.Archive)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("conservation-v5", "hold")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.PolicyParams.Target != 0.15 {
		t.Errorf("expected target 0.15, got %f", cfg.PolicyParams.Target)
	}

	cfg.Params = map[string]float64{"a": 1}
	again := GetPreset("conservation-v5", "hold")
	if again.Params != nil {
		t.Error("preset mutated through returned copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("conservation-v5", "nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if GetPreset("nonexistent", "hold") != nil {
		t.Error("expected nil for nonexistent env")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("conservation-v5")
	if len(presets) != 3 || presets[0] != "drift" {
		t.Errorf("unexpected presets %v", presets)
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent env")
	}
}

func TestPresetsRun(t *testing.T) {
	r := experiment.NewRegistry()
	for _, envName := range ListPresetEnvs() {
		for _, name := range ListPresets(envName) {
			cfg := GetPreset(envName, name)
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", envName, name, err)
				continue
			}
			ec := cfg.Experiment()
			ec.Horizon = 5
			ec.Repetitions = 1
			exp := experiment.New(ec)
			if err := exp.Setup(r, nil); err != nil {
				t.Errorf("%s/%s setup: %v", envName, name, err)
				continue
			}
			exp.Close()
		}
	}
}
