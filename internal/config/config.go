package config

import (
	"fmt"
	"os"

	"github.com/san-kum/conservation/internal/experiment"
	"gopkg.in/yaml.v3"
)

const (
	DefaultEnv         = "conservation-v0"
	DefaultPolicy      = "fixed"
	DefaultRepetitions = 10
	DefaultDataDir     = "runs"
	DefaultArchive     = "runs/archive.db"
	DefaultKp          = 1.0
	DefaultTarget      = 1.0
)

// Environment variables consulted by ApplyEnv.
const (
	EnvDataDir = "CONSERVATION_DATA"
	EnvArchive = "CONSERVATION_ARCHIVE"
)

type Config struct {
	Env           string             `yaml:"env"`
	Policy        string             `yaml:"policy"`
	Repetitions   int                `yaml:"repetitions"`
	Seed          uint64             `yaml:"seed"`
	Horizon       int                `yaml:"horizon"`
	Replicates    int                `yaml:"replicates"`
	LogFile       string             `yaml:"log_file"`
	Deterministic bool               `yaml:"deterministic"`
	Params        map[string]float64 `yaml:"params,omitempty"`
	PolicyParams  PolicyConfig       `yaml:"policy_params"`
	DataDir       string             `yaml:"data_dir"`
	Archive       string             `yaml:"archive"`
}

type PolicyConfig struct {
	Value  float64 `yaml:"value"`
	Target float64 `yaml:"target"`
	Kp     float64 `yaml:"kp"`
	Ki     float64 `yaml:"ki"`
	Kd     float64 `yaml:"kd"`
}

func DefaultConfig() *Config {
	return &Config{
		Env:         DefaultEnv,
		Policy:      DefaultPolicy,
		Repetitions: DefaultRepetitions,
		DataDir:     DefaultDataDir,
		Archive:     DefaultArchive,
		PolicyParams: PolicyConfig{
			Target: DefaultTarget,
			Kp:     DefaultKp,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv lets CONSERVATION_DATA and CONSERVATION_ARCHIVE replace the
// storage locations.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvArchive); v != "" {
		c.Archive = v
	}
}

func (c *Config) Validate() error {
	if c.Env == "" {
		return fmt.Errorf("env must be set")
	}
	if c.Policy == "" {
		return fmt.Errorf("policy must be set")
	}
	if c.Repetitions < 1 {
		return fmt.Errorf("repetitions must be positive, got %d", c.Repetitions)
	}
	if c.Horizon < 0 {
		return fmt.Errorf("horizon must be non-negative, got %d", c.Horizon)
	}
	if c.Replicates < 0 {
		return fmt.Errorf("replicates must be non-negative, got %d", c.Replicates)
	}
	return nil
}

func (c *Config) GetPolicyParams() map[string]float64 {
	return map[string]float64{
		"value":  c.PolicyParams.Value,
		"target": c.PolicyParams.Target,
		"kp":     c.PolicyParams.Kp,
		"ki":     c.PolicyParams.Ki,
		"kd":     c.PolicyParams.Kd,
	}
}

// Experiment converts the file format into a runnable experiment config.
func (c *Config) Experiment() experiment.Config {
	params := make(map[string]float64, len(c.Params))
	for k, v := range c.Params {
		params[k] = v
	}
	return experiment.Config{
		Env:           c.Env,
		Policy:        c.Policy,
		PolicyParams:  c.GetPolicyParams(),
		Params:        params,
		Repetitions:   c.Repetitions,
		Seed:          c.Seed,
		Horizon:       c.Horizon,
		Replicates:    c.Replicates,
		LogFile:       c.LogFile,
		Deterministic: c.Deterministic,
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	if c.Params != nil {
		cp.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			cp.Params[k] = v
		}
	}
	return &cp
}
