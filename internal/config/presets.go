package config

import "slices"

var Presets = map[string]map[string]*Config{
	"conservation-v0": {
		"hands-off": {
			Env: "conservation-v0", Policy: "fixed", Repetitions: 10,
		},
		"restock": {
			Env: "conservation-v0", Policy: "target_state", Repetitions: 10,
			PolicyParams: PolicyConfig{Target: 0.9},
		},
		"noisy": {
			Env: "conservation-v0", Policy: "fixed", Repetitions: 20,
			Params: map[string]float64{"sigma": 0.1},
		},
	},
	"conservation-v2": {
		"near-tipping": {
			Env: "conservation-v2", Policy: "fixed", Repetitions: 20,
			Params: map[string]float64{"a": 0.26, "sigma": 0.05},
		},
	},
	"conservation-v5": {
		"hold": {
			Env: "conservation-v5", Policy: "target_parameter", Repetitions: 10,
			PolicyParams: PolicyConfig{Target: 0.15},
		},
		"drift": {
			Env: "conservation-v5", Policy: "fixed", Repetitions: 10,
		},
		"weather": {
			Env: "conservation-v5", Policy: "target_parameter", Repetitions: 10,
			PolicyParams: PolicyConfig{Target: 0.15},
			Params:       map[string]float64{"drift_noise": 0.002},
		},
	},
	"conservation-v8": {
		"hold": {
			Env: "conservation-v8", Policy: "target_parameter", Repetitions: 5,
			Replicates:   20,
			PolicyParams: PolicyConfig{Target: 0.15},
		},
	},
	"conservation-harvest-v0": {
		"msy": {
			Env: "conservation-harvest-v0", Policy: "fixed", Repetitions: 20,
			PolicyParams: PolicyConfig{Value: 0.1},
		},
		"overfish": {
			Env: "conservation-harvest-v0", Policy: "fixed", Repetitions: 20,
			PolicyParams: PolicyConfig{Value: 0.5},
		},
	},
	"conservation-nonstationary-v0": {
		"pid": {
			Env: "conservation-nonstationary-v0", Policy: "pid", Repetitions: 10,
			PolicyParams: PolicyConfig{Kp: 1.0, Ki: 0.05, Target: 0.8},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(env, preset string) *Config {
	envPresets, ok := Presets[env]
	if !ok {
		return nil
	}
	cfg, ok := envPresets[preset]
	if !ok {
		return nil
	}
	cp := cfg.Clone()
	def := DefaultConfig()
	cp.DataDir = def.DataDir
	cp.Archive = def.Archive
	return cp
}

func ListPresets(env string) []string {
	envPresets, ok := Presets[env]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(envPresets))
	for name := range envPresets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ListPresetEnvs returns the environments that have presets.
func ListPresetEnvs() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
