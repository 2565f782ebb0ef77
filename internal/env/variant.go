package env

import (
	"github.com/san-kum/conservation/internal/ecology"
	"github.com/san-kum/conservation/internal/growth"
)

// ActionStrategy selects how an unscaled action changes the system.
type ActionStrategy int

const (
	// ActionAdditive adds the action to every replicate population.
	ActionAdditive ActionStrategy = iota
	// ActionHarvest removes min(population, quota).
	ActionHarvest
	// ActionParameter pushes the tipping parameter a down.
	ActionParameter
	// ActionDual applies ActionParameter with component 0 and
	// ActionAdditive with component 1.
	ActionDual
)

// RewardStrategy selects the per-replicate reward.
type RewardStrategy int

const (
	// RewardLinear is benefit*x - cost*u.
	RewardLinear RewardStrategy = iota
	// RewardHarvest is max(harvest, 0).
	RewardHarvest
	// RewardSaturating is benefit*x/(1+x) - u^cost.
	RewardSaturating
	// RewardThreshold is benefit*[x > 0.3] - cost*u.
	RewardThreshold
	// RewardDual sums the saturating and the linear-benefit terms, each
	// charged with its own action component.
	RewardDual
)

// DriftStrategy selects the per-step parameter drift.
type DriftStrategy int

const (
	DriftNone DriftStrategy = iota
	// DriftTipping adds alpha (plus optional simplex noise) to a.
	DriftTipping
	// DriftGrowthRate adds alpha to r.
	DriftGrowthRate
)

// thresholdLevel is the population above which RewardThreshold pays out.
const thresholdLevel = 0.3

// Variant is the closed configuration of an environment's dynamics.
type Variant struct {
	Name      string
	Model     growth.Model
	Action    ActionStrategy
	Reward    RewardStrategy
	Drift     DriftStrategy
	ActionDim int
	// Discrete > 0 makes actions indices in [0, Discrete].
	Discrete int
	// Models, when set, are drawn from uniformly on every reset.
	Models []growth.Model
}

// Spec bundles a variant with its default configuration.
type Spec struct {
	Variant     Variant
	Params      ecology.Params
	Horizon     int
	Replicates  int
	ModelParams map[growth.Model]ecology.Params
}

// Stationary is the base additive-control environment for model m.
func Stationary(m growth.Model) Spec {
	return Spec{
		Variant: Variant{
			Name:      m.String(),
			Model:     m,
			Action:    ActionAdditive,
			Reward:    RewardLinear,
			ActionDim: 1,
		},
		Params:     growth.DefaultParams(m),
		Horizon:    100,
		Replicates: 1,
	}
}

// Harvest is a quota fishery on the May model with 100 discrete quotas.
func Harvest() Spec {
	p := growth.DefaultParams(growth.May)
	p.Sigma = 0.1
	return Spec{
		Variant: Variant{
			Name:      "harvest",
			Model:     growth.May,
			Action:    ActionHarvest,
			Reward:    RewardHarvest,
			ActionDim: 1,
			Discrete:  100,
		},
		Params:     p,
		Horizon:    100,
		Replicates: 1,
	}
}

// NonStationaryGrowth drifts the Beverton-Holt growth rate by alpha per step.
func NonStationaryGrowth() Spec {
	return Spec{
		Variant: Variant{
			Name:      "nonstationary",
			Model:     growth.BevertonHolt,
			Action:    ActionAdditive,
			Reward:    RewardLinear,
			Drift:     DriftGrowthRate,
			ActionDim: 1,
		},
		Params: ecology.Params{
			R: 0.8, K: 1, Sigma: 0.01, Alpha: -0.007, X0: 0.75,
			Cost: 2.0, Benefit: 1.0,
		},
		Horizon:    100,
		Replicates: 1,
	}
}

func tippingParams() ecology.Params {
	return ecology.Params{
		R: 0.7, K: 1.5, M: 1.2, Q: 3, B: 0.15, Sigma: 0.0, A: 0.20,
		Alpha: 0.001, Beta: 1.0, X0: 0.8, Cost: 10.0, Benefit: 15.0,
	}
}

func tipping(name string, action ActionStrategy, reward RewardStrategy) Spec {
	return Spec{
		Variant: Variant{
			Name:      name,
			Model:     growth.May,
			Action:    action,
			Reward:    reward,
			Drift:     DriftTipping,
			ActionDim: 1,
		},
		Params:     tippingParams(),
		Horizon:    100,
		Replicates: 1,
	}
}

// NonStationaryV3 drifts a while the action only stocks the population.
func NonStationaryV3() Spec { return tipping("v3", ActionAdditive, RewardLinear) }

// NonStationaryV4 pays a flat benefit while the population stays above 0.3.
func NonStationaryV4() Spec { return tipping("v4", ActionParameter, RewardThreshold) }

// NonStationaryV5 lets the action push a away from the tipping point.
func NonStationaryV5() Spec { return tipping("v5", ActionParameter, RewardSaturating) }

// DualAction controls both a and the population.
func DualAction() Spec {
	p := tippingParams()
	p.A = 0.19
	p.Cost = 2.0
	p.Benefit = 1.0
	return Spec{
		Variant: Variant{
			Name:      "dual",
			Model:     growth.May,
			Action:    ActionDual,
			Reward:    RewardDual,
			Drift:     DriftTipping,
			ActionDim: 2,
		},
		Params:     p,
		Horizon:    500,
		Replicates: 1,
	}
}

// Ensemble runs replicates independent populations sharing one drifting a.
func Ensemble(replicates int) Spec {
	p := tippingParams()
	p.Sigma = 0.2
	p.A = 0.19
	p.Cost = 2.0
	p.Benefit = 1.0
	return Spec{
		Variant: Variant{
			Name:      "ensemble",
			Model:     growth.May,
			Action:    ActionParameter,
			Reward:    RewardSaturating,
			Drift:     DriftTipping,
			ActionDim: 1,
		},
		Params:     p,
		Horizon:    500,
		Replicates: replicates,
	}
}

// ModelUncertainty draws the growth law on every reset. Scaling, reset and
// reward use the base Params; growth uses the drawn model's entry in
// ModelParams.
func ModelUncertainty() Spec {
	models := growth.All()
	mp := make(map[growth.Model]ecology.Params, len(models))
	for _, m := range models {
		mp[m] = growth.DefaultParams(m)
	}
	return Spec{
		Variant: Variant{
			Name:      "uncertainty",
			Model:     growth.Ricker,
			Action:    ActionAdditive,
			Reward:    RewardLinear,
			ActionDim: 1,
			Models:    models,
		},
		Params: ecology.Params{
			R: 0.3, K: 1, Sigma: 0, X0: 0.1,
			Cost: 2.0, Benefit: 1.0,
		},
		Horizon:     100,
		Replicates:  1,
		ModelParams: mp,
	}
}

// New builds an environment from the spec. Options override the spec's
// horizon and replicate count.
func (s Spec) New(opts ...Option) (*Environment, error) {
	var base []Option
	if s.Horizon > 0 {
		base = append(base, WithHorizon(s.Horizon))
	}
	if s.Replicates > 0 {
		base = append(base, WithReplicates(s.Replicates))
	}
	if s.ModelParams != nil {
		base = append(base, WithModelParams(s.ModelParams))
	}
	return New(s.Variant, s.Params, append(base, opts...)...)
}
