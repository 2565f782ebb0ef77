package ecology

import (
	"fmt"
	"math"
	"sort"
)

// Observation is a normalized population vector, one entry per replicate.
type Observation []float64

func (o Observation) Clone() Observation {
	c := make(Observation, len(o))
	copy(c, o)
	return c
}

// Action is a normalized control vector, one entry per action component.
type Action []float64

func (a Action) Clone() Action {
	c := make(Action, len(a))
	copy(c, a)
	return c
}

// Params holds the coefficients of the growth, drift and reward laws.
type Params struct {
	R          float64 `yaml:"r" json:"r"`
	K          float64 `yaml:"K" json:"K"`
	M          float64 `yaml:"M" json:"M"`
	Q          float64 `yaml:"q" json:"q"`
	B          float64 `yaml:"b" json:"b"`
	A          float64 `yaml:"a" json:"a"`
	C          float64 `yaml:"C" json:"C"`
	Theta      float64 `yaml:"theta" json:"theta"`
	Sigma      float64 `yaml:"sigma" json:"sigma"`
	Alpha      float64 `yaml:"alpha" json:"alpha"`
	Beta       float64 `yaml:"beta" json:"beta"`
	Cost       float64 `yaml:"cost" json:"cost"`
	Benefit    float64 `yaml:"benefit" json:"benefit"`
	X0         float64 `yaml:"init_state" json:"init_state"`
	DriftNoise float64 `yaml:"drift_noise" json:"drift_noise"`
}

func (p *Params) field(name string) *float64 {
	switch name {
	case "r":
		return &p.R
	case "K", "k":
		return &p.K
	case "M", "m":
		return &p.M
	case "q":
		return &p.Q
	case "b":
		return &p.B
	case "a":
		return &p.A
	case "C", "c":
		return &p.C
	case "theta":
		return &p.Theta
	case "sigma":
		return &p.Sigma
	case "alpha":
		return &p.Alpha
	case "beta":
		return &p.Beta
	case "cost":
		return &p.Cost
	case "benefit":
		return &p.Benefit
	case "init_state", "x0":
		return &p.X0
	case "drift_noise":
		return &p.DriftNoise
	}
	return nil
}

// Get returns the named coefficient.
func (p Params) Get(name string) (float64, error) {
	f := p.field(name)
	if f == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return *f, nil
}

// Set adjusts the named coefficient.
func (p *Params) Set(name string, value float64) error {
	f := p.field(name)
	if f == nil {
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	*f = value
	return nil
}

// Apply sets every entry of overrides, in name order.
func (p *Params) Apply(overrides map[string]float64) error {
	names := make([]string, 0, len(overrides))
	for k := range overrides {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := p.Set(k, overrides[k]); err != nil {
			return err
		}
	}
	return nil
}

// Map returns the coefficients keyed by their canonical names.
func (p Params) Map() map[string]float64 {
	return map[string]float64{
		"r":           p.R,
		"K":           p.K,
		"M":           p.M,
		"q":           p.Q,
		"b":           p.B,
		"a":           p.A,
		"C":           p.C,
		"theta":       p.Theta,
		"sigma":       p.Sigma,
		"alpha":       p.Alpha,
		"beta":        p.Beta,
		"cost":        p.Cost,
		"benefit":     p.Benefit,
		"init_state":  p.X0,
		"drift_noise": p.DriftNoise,
	}
}

// Validate rejects parameter sets the scaling layer cannot represent.
func (p Params) Validate() error {
	for name, v := range p.Map() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrParameterBounds, name, v)
		}
	}
	if p.K <= 0 {
		return fmt.Errorf("%w: K must be positive, got %f", ErrParameterBounds, p.K)
	}
	if p.Sigma < 0 {
		return fmt.Errorf("%w: sigma must be non-negative, got %f", ErrParameterBounds, p.Sigma)
	}
	if p.X0 < 0 {
		return fmt.Errorf("%w: init_state must be non-negative, got %f", ErrParameterBounds, p.X0)
	}
	return nil
}

// Info carries per-step diagnostics alongside the reward.
type Info struct {
	Harvest float64
	Drift   float64
	Model   string
}

// Policy maps an observation to a normalized action. The second return
// value is opaque policy state reported back to the caller.
type Policy interface {
	Predict(obs Observation, deterministic bool) (Action, any, error)
}

// Resetter is implemented by policies that carry state across steps.
type Resetter interface {
	Reset()
}

// Env is the environment surface consumed by drivers and policies.
type Env interface {
	Reset() Observation
	Step(a Action) (Observation, float64, bool, Info, error)
	Horizon() int
	ObservationDim() int
	ActionDim() int
	UnscaleState(obs Observation) []float64
	UnscaleAction(a Action) []float64
	ScaleAction(u []float64) Action
	Params() Params
}
