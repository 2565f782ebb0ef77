package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/san-kum/conservation/internal/config"
	"github.com/san-kum/conservation/internal/experiment"
	"github.com/san-kum/conservation/internal/sim"
	"github.com/san-kum/conservation/internal/storage"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted sequence of experiments
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run in a scenario. Unset fields take the
// defaults of config.DefaultConfig.
type ScenarioStep struct {
	config.Config `yaml:",inline"`
	Save          bool `yaml:"save"`
}

// UnmarshalYAML decodes a step over the default configuration.
func (s *ScenarioStep) UnmarshalYAML(node *yaml.Node) error {
	type plain ScenarioStep
	p := plain{Config: *config.DefaultConfig()}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = ScenarioStep(p)
	return nil
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Step   int
	Config experiment.Config
	Result *sim.Result
	RunID  string
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}

	for i := range scenario.Steps {
		if err := scenario.Steps[i].Validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &scenario, nil
}

// RunScenario executes all steps in order. Steps marked save are written
// to store when it is non-nil. Results gathered before a failure are
// returned with the error.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, store *storage.Store, logger *slog.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		logger.Info("running scenario step", "scenario", scenario.Name,
			"step", i+1, "of", len(scenario.Steps), "env", step.Env, "policy", step.Policy)

		cfg := step.Experiment()
		result, err := runOnce(ctx, registry, cfg, logger)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		sr := StepResult{Step: i + 1, Config: cfg, Result: result}
		if step.Save && store != nil {
			id, err := store.Save(storage.RunMetadata{
				Env:          cfg.Env,
				Policy:       cfg.Policy,
				Seed:         cfg.Seed,
				Repetitions:  cfg.Repetitions,
				Horizon:      cfg.Horizon,
				Replicates:   cfg.Replicates,
				Params:       cfg.Params,
				PolicyParams: cfg.PolicyParams,
			}, result)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			sr.RunID = id
		}

		results = append(results, sr)
	}

	return results, nil
}

func runOnce(ctx context.Context, registry *experiment.Registry, cfg experiment.Config, logger *slog.Logger) (*sim.Result, error) {
	exp := experiment.New(cfg)
	exp.SetLogger(logger)
	if err := exp.Setup(registry, registry.DefaultMetrics()); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	defer exp.Close()

	result, err := exp.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	return result, nil
}

// ParameterSweep runs one experiment per value of an environment
// parameter.
type ParameterSweep struct {
	Base      experiment.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

// SweepResult holds the averaged metrics of one sweep point
type SweepResult struct {
	ParamValue   float64
	MeanReward   float64
	CollapseRate float64
	Persistence  float64
	MinState     float64
}

// RunSweep executes a parameter sweep
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry, logger *slog.Logger) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	for i := range sweep.NumSteps {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg := sweep.Base
		cfg.LogFile = ""
		cfg.Params = make(map[string]float64, len(sweep.Base.Params)+1)
		for k, v := range sweep.Base.Params {
			cfg.Params[k] = v
		}
		cfg.Params[sweep.ParamName] = paramVal

		result, err := runOnce(ctx, registry, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}

		results = append(results, SweepResult{
			ParamValue:   paramVal,
			MeanReward:   result.Metrics["episode_reward"],
			CollapseRate: result.Metrics["collapse_rate"],
			Persistence:  result.Metrics["persistence"],
			MinState:     result.Metrics["min_state"],
		})

		logger.Debug("sweep point", "step", i+1, "of", sweep.NumSteps,
			"param", sweep.ParamName, "value", paramVal)
	}

	return results, nil
}

// MonteCarloConfig perturbs the initial population across trials
type MonteCarloConfig struct {
	Base         experiment.Config
	BaseState    float64
	Perturbation float64
	NumTrials    int
	Seed         uint64
}

// MonteCarloResult holds the outcome of one trial
type MonteCarloResult struct {
	TrialID    int
	InitState  float64
	FinalState float64
	MeanReward float64
	Collapsed  bool
}

// RunMonteCarlo draws init_state uniformly from BaseState ± Perturbation,
// floored at zero, for each trial.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, registry *experiment.Registry, logger *slog.Logger) ([]MonteCarloResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]MonteCarloResult, 0, cfg.NumTrials)
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1))

	for trial := range cfg.NumTrials {
		x0 := max(0, cfg.BaseState+(rng.Float64()-0.5)*2*cfg.Perturbation)

		expCfg := cfg.Base
		expCfg.LogFile = ""
		expCfg.Params = map[string]float64{"init_state": x0}
		for k, v := range cfg.Base.Params {
			if k != "init_state" && k != "x0" {
				expCfg.Params[k] = v
			}
		}
		if expCfg.Seed != 0 {
			expCfg.Seed += uint64(trial)
		}

		result, err := runOnce(ctx, registry, expCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}

		mr := MonteCarloResult{TrialID: trial, InitState: x0}
		if n := len(result.Trajectory); n > 0 {
			mr.FinalState = result.Trajectory[n-1].State
		}
		total := 0.0
		for _, ep := range result.Episodes {
			total += ep.Reward
			if ep.Collapsed {
				mr.Collapsed = true
			}
		}
		if len(result.Episodes) > 0 {
			mr.MeanReward = total / float64(len(result.Episodes))
		}
		results = append(results, mr)

		if (trial+1)%10 == 0 {
			logger.Info("monte carlo progress", "done", trial+1, "trials", cfg.NumTrials)
		}
	}

	return results, nil
}

// MonteCarloStats counts persisting and collapsed trials.
func MonteCarloStats(results []MonteCarloResult) (persisted int, collapsed int) {
	for _, r := range results {
		if r.Collapsed {
			collapsed++
		} else {
			persisted++
		}
	}
	return
}
