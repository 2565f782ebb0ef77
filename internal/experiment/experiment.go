package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/conservation/internal/env"
	"github.com/san-kum/conservation/internal/sim"
)

type Config struct {
	Env           string
	Policy        string
	PolicyParams  map[string]float64
	Params        map[string]float64
	Repetitions   int
	Seed          uint64
	Horizon       int
	Replicates    int
	LogFile       string
	Deterministic bool
}

type Experiment struct {
	cfg       Config
	env       *env.Environment
	simulator *sim.Simulator
	logger    *slog.Logger
}

func New(cfg Config) *Experiment {
	if cfg.Repetitions < 1 {
		cfg.Repetitions = 1
	}
	return &Experiment{cfg: cfg, logger: slog.Default()}
}

// Options translates the run configuration into environment options.
func (c Config) Options() []env.Option {
	var opts []env.Option
	if c.Seed != 0 {
		opts = append(opts, env.WithSeed(c.Seed))
	}
	if c.Horizon > 0 {
		opts = append(opts, env.WithHorizon(c.Horizon))
	}
	if c.Replicates > 0 {
		opts = append(opts, env.WithReplicates(c.Replicates))
	}
	if c.LogFile != "" {
		opts = append(opts, env.WithLogFile(c.LogFile))
	}
	return opts
}

// Setup builds the environment, policy and simulator. The environment
// stays open until Close.
func (e *Experiment) Setup(r *Registry, metrics []sim.Metric) error {
	en, err := r.NewEnv(e.cfg.Env, e.cfg.Params, append(e.cfg.Options(), env.WithLogger(e.logger))...)
	if err != nil {
		return err
	}

	pol, err := r.GetPolicy(e.cfg.Policy, en, e.cfg.PolicyParams)
	if err != nil {
		en.Close()
		return err
	}

	e.env = en
	e.simulator = sim.New(en, pol)
	e.simulator.SetDeterministic(e.cfg.Deterministic)
	e.simulator.SetLogger(e.logger)
	for _, m := range metrics {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	e.logger.Debug("running experiment", "env", e.cfg.Env, "policy", e.cfg.Policy,
		"repetitions", e.cfg.Repetitions)
	return e.simulator.Run(ctx, e.cfg.Repetitions)
}

// Close releases the environment's trajectory log.
func (e *Experiment) Close() error {
	if e.env == nil {
		return nil
	}
	return e.env.Close()
}

func (e *Experiment) SetLogger(l *slog.Logger) { e.logger = l }

func (e *Experiment) Config() Config { return e.cfg }

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Env() *env.Environment {
	return e.env
}
