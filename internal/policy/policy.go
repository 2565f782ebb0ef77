package policy

import (
	"math"

	"github.com/san-kum/conservation/internal/ecology"
	"github.com/san-kum/conservation/internal/scaling"
)

// broadcast repeats u over every action component.
func broadcast(e ecology.Env, u float64) []float64 {
	v := make([]float64, e.ActionDim())
	for i := range v {
		v[i] = u
	}
	return v
}

// meanState is the mean unscaled population behind obs.
func meanState(e ecology.Env, obs ecology.Observation) float64 {
	x := e.UnscaleState(obs)
	if len(x) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range x {
		s += v
	}
	return s / float64(len(x))
}

// Fixed always takes the same unscaled action.
type Fixed struct {
	env   ecology.Env
	Value float64
}

func NewFixed(e ecology.Env, value float64) *Fixed {
	return &Fixed{env: e, Value: value}
}

// Predict returns the scaled constant and reports the unscaled state.
func (f *Fixed) Predict(obs ecology.Observation, deterministic bool) (ecology.Action, any, error) {
	return f.env.ScaleAction(broadcast(f.env, f.Value)), f.env.UnscaleState(obs), nil
}

// TargetState adds the gap between a target and the current population.
type TargetState struct {
	env    ecology.Env
	Target float64
}

func NewTargetState(e ecology.Env, target float64) *TargetState {
	return &TargetState{env: e, Target: target}
}

func (p *TargetState) Predict(obs ecology.Observation, deterministic bool) (ecology.Action, any, error) {
	u := p.Target - meanState(p.env, obs)
	return p.env.ScaleAction(broadcast(p.env, u)), obs, nil
}

// TargetParameter spends enough effort to bring a back to Target in one
// step, saturating at 2K.
type TargetParameter struct {
	env    ecology.Env
	Target float64
}

func NewTargetParameter(e ecology.Env, target float64) *TargetParameter {
	return &TargetParameter{env: e, Target: target}
}

// ParameterEffort is the unclamped unscaled action that moves a to target
// under a push of u/(2K*100) per unit.
func ParameterEffort(a, target, k float64) float64 {
	return math.Max(0, a-target) * (2 * k * 100)
}

func (p *TargetParameter) Predict(obs ecology.Observation, deterministic bool) (ecology.Action, any, error) {
	params := p.env.Params()
	u := scaling.Clip(ParameterEffort(params.A, p.Target, params.K), 0, 2*params.K)
	return p.env.ScaleAction(broadcast(p.env, u)), params.A, nil
}
