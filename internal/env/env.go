// Package env implements the population control environment.
//
// One Environment type covers every variant; the dynamics are selected by
// a Variant (growth model plus action, reward and drift strategies). The
// parameter template is immutable; a working copy drifts during an
// episode and is restored from the template on Reset.
package env

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	opensimplex "github.com/ojrac/opensimplex-go"
	"github.com/san-kum/conservation/internal/ecology"
	"github.com/san-kum/conservation/internal/growth"
	"github.com/san-kum/conservation/internal/scaling"
)

const (
	// pushScale converts an unscaled action into a decrement of a:
	// delta = u / (2K * pushScale).
	pushScale = 100.0
	// noiseFrequency is the simplex sampling step per elapsed year.
	noiseFrequency = 0.1
)

type options struct {
	horizon     int
	replicates  int
	seed        uint64
	seeded      bool
	logPath     string
	logger      *slog.Logger
	modelParams map[growth.Model]ecology.Params
}

// Option configures an Environment at construction.
type Option func(*options)

// WithHorizon sets Tmax.
func WithHorizon(tmax int) Option {
	return func(o *options) { o.horizon = tmax }
}

// WithReplicates sets the number of independent replicate populations.
func WithReplicates(n int) Option {
	return func(o *options) { o.replicates = n }
}

// WithSeed fixes the random stream.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithLogFile records one CSV row per step to path, truncating it.
func WithLogFile(path string) Option {
	return func(o *options) { o.logPath = path }
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithModelParams sets per-model growth coefficients for variants that
// draw their model on reset.
func WithModelParams(mp map[growth.Model]ecology.Params) Option {
	return func(o *options) { o.modelParams = mp }
}

// Environment is a discrete-time stochastic population model under control.
type Environment struct {
	variant     Variant
	template    ecology.Params
	params      ecology.Params
	modelParams map[growth.Model]ecology.Params
	model       growth.Model
	horizon     int
	rng         *rand.Rand
	noise       opensimplex.Noise
	logger      *slog.Logger
	log         *Recorder

	pop     []float64
	obs     ecology.Observation
	years   int
	reward  float64
	action  []float64
	harvest []float64
	active  bool
	done    bool
}

// New validates the configuration and builds an environment. It must be
// Reset before the first Step.
func New(v Variant, params ecology.Params, opts ...Option) (*Environment, error) {
	o := options{horizon: 100, replicates: 1}
	for _, opt := range opts {
		opt(&o)
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}
	if o.horizon < 1 {
		return nil, fmt.Errorf("horizon must be positive, got %d", o.horizon)
	}
	if o.replicates < 1 {
		return nil, fmt.Errorf("replicate count must be positive, got %d", o.replicates)
	}
	if v.ActionDim == 0 {
		v.ActionDim = 1
	}
	if v.ActionDim != 1 && v.ActionDim != 2 {
		return nil, fmt.Errorf("%w: action dimension %d", ecology.ErrDimensionMismatch, v.ActionDim)
	}
	if v.Action == ActionDual && v.ActionDim != 2 {
		return nil, fmt.Errorf("%w: dual action needs 2 components", ecology.ErrDimensionMismatch)
	}
	if v.Discrete < 0 {
		return nil, fmt.Errorf("discrete action count must be non-negative, got %d", v.Discrete)
	}

	if !o.seeded {
		o.seed = rand.Uint64()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	e := &Environment{
		variant:  v,
		template: params,
		params:   params,
		model:    v.Model,
		horizon:  o.horizon,
		rng:      rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15)),
		noise:    opensimplex.New(int64(o.seed)),
		logger:   o.logger.With("variant", v.Name),
		pop:      make([]float64, o.replicates),
		obs:      make(ecology.Observation, o.replicates),
		action:   make([]float64, v.ActionDim),
		harvest:  make([]float64, o.replicates),
	}

	if len(v.Models) > 0 {
		e.modelParams = make(map[growth.Model]ecology.Params, len(v.Models))
		for _, m := range v.Models {
			p, ok := o.modelParams[m]
			if !ok {
				p = growth.DefaultParams(m)
			}
			if err := p.Validate(); err != nil {
				return nil, fmt.Errorf("model %s: %w", m, err)
			}
			e.modelParams[m] = p
		}
	}

	for i := range e.pop {
		e.pop[i] = params.X0
	}
	e.observe()

	if o.logPath != "" {
		rec, err := OpenRecorder(o.logPath, o.replicates, v.ActionDim)
		if err != nil {
			return nil, err
		}
		e.log = rec
	}

	return e, nil
}

// Reset restores the template parameters and the initial population.
func (e *Environment) Reset() ecology.Observation {
	e.params = e.template
	if len(e.variant.Models) > 0 {
		e.model = e.variant.Models[e.rng.IntN(len(e.variant.Models))]
		e.logger.Debug("growth model drawn", "model", e.model.String())
	}

	for i := range e.pop {
		e.pop[i] = e.params.X0
		e.harvest[i] = 0
	}
	for i := range e.action {
		e.action[i] = 0
	}
	e.observe()
	e.years = 0
	e.reward = 0
	e.active = true
	e.done = false

	return e.obs.Clone()
}

// Step applies a normalized action and advances one year.
func (e *Environment) Step(a ecology.Action) (ecology.Observation, float64, bool, ecology.Info, error) {
	if !e.active {
		if e.done {
			return nil, 0, true, ecology.Info{}, ecology.ErrTerminated
		}
		return nil, 0, false, ecology.Info{}, ecology.ErrNotReset
	}
	if len(a) != e.variant.ActionDim {
		return nil, 0, false, ecology.Info{}, fmt.Errorf("%w: action has %d components, want %d",
			ecology.ErrDimensionMismatch, len(a), e.variant.ActionDim)
	}
	if e.log != nil && e.log.Closed() {
		return nil, 0, false, ecology.Info{}, ecology.ErrLogClosed
	}

	u := e.UnscaleAction(a)
	e.perform(u)
	e.drift()

	gp := e.growthParams()
	upper := 2 * e.params.K
	for i, x := range e.pop {
		e.pop[i] = scaling.Clip(e.model.Draw(x, gp, e.rng), 0, upper)
	}
	e.observe()

	e.reward = e.computeReward()
	e.years++
	collapsed := e.collapsed()
	e.done = e.years > e.horizon || collapsed
	if e.done {
		e.active = false
		e.logger.Debug("episode terminated", "years", e.years, "collapsed", collapsed)
	}

	info := ecology.Info{
		Harvest: mean(e.harvest),
		Drift:   e.params.A,
		Model:   e.model.String(),
	}
	if e.variant.Drift == DriftGrowthRate {
		info.Drift = e.params.R
	}

	if e.log != nil {
		if err := e.log.Write(e.years, e.pop, e.action, e.reward); err != nil {
			return e.obs.Clone(), e.reward, e.done, info, err
		}
	}

	return e.obs.Clone(), e.reward, e.done, info, nil
}

func (e *Environment) perform(u []float64) {
	copy(e.action, u)
	for i := range e.harvest {
		e.harvest[i] = 0
	}

	switch e.variant.Action {
	case ActionAdditive:
		for i := range e.pop {
			e.pop[i] += u[0]
		}
	case ActionHarvest:
		for i, x := range e.pop {
			h := math.Min(x, u[0])
			e.pop[i] = x - h
			e.harvest[i] = h
		}
	case ActionParameter:
		e.pushTipping(u[0])
	case ActionDual:
		e.pushTipping(u[0])
		for i := range e.pop {
			e.pop[i] += u[1]
		}
	}
}

func (e *Environment) pushTipping(u float64) {
	e.params.A = math.Max(0, e.params.A-u/(2*e.params.K*pushScale))
}

func (e *Environment) drift() {
	switch e.variant.Drift {
	case DriftTipping:
		e.params.A += e.params.Alpha
		if e.params.DriftNoise != 0 {
			e.params.A += e.params.DriftNoise * e.noise.Eval2(float64(e.years)*noiseFrequency, 0)
		}
	case DriftGrowthRate:
		e.params.R += e.params.Alpha
	}
}

// growthParams returns the coefficients the growth law sees. Drift always
// acts on the working copy, so drifting variants keep using it.
func (e *Environment) growthParams() ecology.Params {
	if p, ok := e.modelParams[e.model]; ok {
		return p
	}
	return e.params
}

func (e *Environment) computeReward() float64 {
	p := e.params
	u := e.action
	total := 0.0
	for i, x := range e.pop {
		switch e.variant.Reward {
		case RewardLinear:
			total += p.Benefit*x - p.Cost*u[0]
		case RewardHarvest:
			total += math.Max(e.harvest[i], 0)
		case RewardSaturating:
			total += p.Benefit*x/(1+x) - math.Pow(u[0], p.Cost)
		case RewardThreshold:
			above := 0.0
			if x > thresholdLevel {
				above = 1
			}
			total += p.Benefit*above - p.Cost*u[0]
		case RewardDual:
			total += p.Benefit*x/(1+x) - math.Pow(u[0], p.Cost) +
				p.Benefit*x - math.Pow(u[1], p.Cost)
		}
	}
	return total / float64(len(e.pop))
}

func (e *Environment) observe() {
	for i, x := range e.pop {
		e.obs[i] = x/e.params.K - 1
	}
}

func (e *Environment) collapsed() bool {
	for _, x := range e.pop {
		if x > 0 {
			return false
		}
	}
	return true
}

// UnscaleAction maps a normalized action onto physical units, clipping
// out-of-range components.
func (e *Environment) UnscaleAction(a ecology.Action) []float64 {
	u := make([]float64, len(a))
	for i, v := range a {
		if e.variant.Discrete > 0 {
			u[i] = scaling.Discrete{N: e.variant.Discrete, K: e.params.K}.UnscaleAction(v)
		} else {
			u[i] = scaling.Continuous{K: e.params.K}.UnscaleAction(v)
		}
	}
	return u
}

// ScaleAction maps physical action units onto the control interface.
func (e *Environment) ScaleAction(u []float64) ecology.Action {
	a := make(ecology.Action, len(u))
	for i, v := range u {
		if e.variant.Discrete > 0 {
			a[i] = scaling.Discrete{N: e.variant.Discrete, K: e.params.K}.ScaleAction(v)
		} else {
			a[i] = scaling.Continuous{K: e.params.K}.ScaleAction(v)
		}
	}
	return a
}

// UnscaleState maps an observation onto populations.
func (e *Environment) UnscaleState(obs ecology.Observation) []float64 {
	x := make([]float64, len(obs))
	c := scaling.Continuous{K: e.params.K}
	for i, v := range obs {
		x[i] = c.UnscaleState(v)
	}
	return x
}

// Close releases the trajectory log. It is safe to call more than once.
func (e *Environment) Close() error {
	if e.log == nil {
		return nil
	}
	return e.log.Close()
}

func (e *Environment) Horizon() int             { return e.horizon }
func (e *Environment) ObservationDim() int      { return len(e.pop) }
func (e *Environment) ActionDim() int           { return e.variant.ActionDim }
func (e *Environment) Params() ecology.Params   { return e.params }
func (e *Environment) Template() ecology.Params { return e.template }
func (e *Environment) Variant() Variant         { return e.variant }
func (e *Environment) Model() growth.Model      { return e.model }
func (e *Environment) Years() int               { return e.years }
func (e *Environment) LastReward() float64      { return e.reward }
func (e *Environment) Done() bool               { return e.done }

// Population returns a copy of the unscaled replicate populations.
func (e *Environment) Population() []float64 {
	c := make([]float64, len(e.pop))
	copy(c, e.pop)
	return c
}

// LastAction returns a copy of the last unscaled action.
func (e *Environment) LastAction() []float64 {
	c := make([]float64, len(e.action))
	copy(c, e.action)
	return c
}

// Observation returns a copy of the current normalized observation.
func (e *Environment) Observation() ecology.Observation {
	return e.obs.Clone()
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
