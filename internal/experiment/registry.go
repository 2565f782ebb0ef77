package experiment

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/san-kum/conservation/internal/ecology"
	"github.com/san-kum/conservation/internal/env"
	"github.com/san-kum/conservation/internal/growth"
	"github.com/san-kum/conservation/internal/metrics"
	"github.com/san-kum/conservation/internal/policy"
	"github.com/san-kum/conservation/internal/sim"
)

// DefaultEnsembleSize is the replicate count of conservation-v8.
const DefaultEnsembleSize = 10

type PolicyFactory func(e ecology.Env, params map[string]float64) ecology.Policy

type Registry struct {
	envs     map[string]func() env.Spec
	policies map[string]PolicyFactory
	in       io.Reader
	out      io.Writer
}

func NewRegistry() *Registry {
	r := &Registry{
		envs:     make(map[string]func() env.Spec),
		policies: make(map[string]PolicyFactory),
		in:       os.Stdin,
		out:      os.Stdout,
	}

	r.envs["conservation-v0"] = func() env.Spec { return env.Stationary(growth.Ricker) }
	r.envs["conservation-v1"] = func() env.Spec { return env.Stationary(growth.Allen) }
	r.envs["conservation-v2"] = func() env.Spec { return env.Stationary(growth.May) }
	r.envs["conservation-v3"] = env.NonStationaryV3
	r.envs["conservation-v4"] = env.NonStationaryV4
	r.envs["conservation-v5"] = env.NonStationaryV5
	r.envs["conservation-v6"] = env.ModelUncertainty
	r.envs["conservation-v7"] = env.DualAction
	r.envs["conservation-v8"] = func() env.Spec { return env.Ensemble(DefaultEnsembleSize) }
	r.envs["conservation-harvest-v0"] = env.Harvest
	r.envs["conservation-nonstationary-v0"] = env.NonStationaryGrowth
	r.envs["beverton-holt-v0"] = func() env.Spec { return env.Stationary(growth.BevertonHolt) }
	r.envs["myers-v0"] = func() env.Spec { return env.Stationary(growth.Myers) }

	r.policies["fixed"] = func(e ecology.Env, params map[string]float64) ecology.Policy {
		return policy.NewFixed(e, params["value"])
	}
	r.policies["target_state"] = func(e ecology.Env, params map[string]float64) ecology.Policy {
		return policy.NewTargetState(e, param(params, "target", 1.0))
	}
	r.policies["target_parameter"] = func(e ecology.Env, params map[string]float64) ecology.Policy {
		return policy.NewTargetParameter(e, param(params, "target", 0.15))
	}
	r.policies["pid"] = func(e ecology.Env, params map[string]float64) ecology.Policy {
		return policy.NewPID(e,
			param(params, "kp", 1.0),
			param(params, "ki", 0.0),
			param(params, "kd", 0.0),
			param(params, "target", e.Params().K))
	}
	r.policies["user"] = func(e ecology.Env, params map[string]float64) ecology.Policy {
		return policy.NewInteractive(e, r.in, r.out)
	}

	return r
}

func param(params map[string]float64, name string, def float64) float64 {
	if v, ok := params[name]; ok {
		return v
	}
	return def
}

// SetConsole redirects the interactive policy.
func (r *Registry) SetConsole(in io.Reader, out io.Writer) {
	r.in = in
	r.out = out
}

func (r *Registry) GetSpec(name string) (env.Spec, error) {
	fn, ok := r.envs[name]
	if !ok {
		return env.Spec{}, fmt.Errorf("unknown env: %s", name)
	}
	return fn(), nil
}

// NewEnv builds the named environment with parameter overrides applied to
// its template and to every per-model parameter set.
func (r *Registry) NewEnv(name string, overrides map[string]float64, opts ...env.Option) (*env.Environment, error) {
	spec, err := r.GetSpec(name)
	if err != nil {
		return nil, err
	}
	if err := spec.Params.Apply(overrides); err != nil {
		return nil, fmt.Errorf("env %s: %w", name, err)
	}
	for m, p := range spec.ModelParams {
		if err := p.Apply(overrides); err != nil {
			return nil, fmt.Errorf("env %s: model %s: %w", name, m, err)
		}
		spec.ModelParams[m] = p
	}
	return spec.New(opts...)
}

func (r *Registry) GetPolicy(name string, e ecology.Env, params map[string]float64) (ecology.Policy, error) {
	fn, ok := r.policies[name]
	if !ok {
		return nil, fmt.Errorf("unknown policy: %s", name)
	}
	return fn(e, params), nil
}

func (r *Registry) ListEnvs() []string {
	names := make([]string, 0, len(r.envs))
	for name := range r.envs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) ListPolicies() []string {
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultMetrics counts a population above 0.3 as persisting.
func (r *Registry) DefaultMetrics() []sim.Metric {
	return metrics.Standard(0.3)
}
