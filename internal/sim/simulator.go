package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/conservation/internal/ecology"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Simulator struct {
	env           ecology.Env
	policy        ecology.Policy
	metrics       []Metric
	observers     []Observer
	deterministic bool
	logger        *slog.Logger
}

func New(e ecology.Env, p ecology.Policy) *Simulator {
	return &Simulator{
		env:       e,
		policy:    p,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    slog.Default(),
	}
}

func (s *Simulator) AddMetric(m Metric)       { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)   { s.observers = append(s.observers, o) }
func (s *Simulator) SetDeterministic(d bool)  { s.deterministic = d }
func (s *Simulator) SetLogger(l *slog.Logger) { s.logger = l }
func (s *Simulator) Env() ecology.Env         { return s.env }

// Run plays reps episodes. Metrics are reset per episode and averaged
// across episodes in the result.
func (s *Simulator) Run(ctx context.Context, reps int) (*Result, error) {
	if reps < 1 {
		return nil, fmt.Errorf("repetitions must be positive, got %d", reps)
	}

	result := &Result{
		Trajectory: make(Trajectory, 0, reps*(s.env.Horizon()+1)),
		Episodes:   make([]Episode, 0, reps),
		Metrics:    make(map[string]float64),
	}

	for rep := range reps {
		ep, err := s.episode(ctx, rep, result)
		if err != nil {
			return result, err
		}
		result.Episodes = append(result.Episodes, ep)
		s.logger.Debug("episode finished", "rep", rep, "steps", ep.Steps,
			"reward", ep.Reward, "collapsed", ep.Collapsed)
	}

	for _, m := range s.metrics {
		vals := make([]float64, len(result.Episodes))
		for i, ep := range result.Episodes {
			vals[i] = ep.Metrics[m.Name()]
		}
		result.Metrics[m.Name()] = stat.Mean(vals, nil)
	}

	return result, nil
}

func (s *Simulator) episode(ctx context.Context, rep int, result *Result) (Episode, error) {
	for _, m := range s.metrics {
		m.Reset()
	}
	if r, ok := s.policy.(ecology.Resetter); ok {
		r.Reset()
	}

	ep := Episode{Rep: rep}
	obs := s.env.Reset()

	for t := 0; t < s.env.Horizon(); t++ {
		select {
		case <-ctx.Done():
			return ep, ctx.Err()
		default:
		}

		a, _, err := s.policy.Predict(obs, s.deterministic)
		if err != nil {
			return ep, &ecology.StepError{Step: t, Rep: rep, Wrapped: err}
		}

		state := s.env.UnscaleState(obs)
		next, reward, done, _, err := s.env.Step(a)
		if err != nil {
			return ep, &ecology.StepError{Step: t, Rep: rep, Wrapped: err}
		}

		row := makeRow(t, rep, state, s.env.UnscaleAction(a), reward, done)
		result.Trajectory = append(result.Trajectory, row)
		for _, m := range s.metrics {
			m.Observe(row)
		}
		for _, o := range s.observers {
			o.OnStep(row)
		}

		ep.Steps++
		ep.Reward += reward
		obs = next
		if done {
			ep.Collapsed = true
			break
		}
	}

	ep.Metrics = make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		ep.Metrics[m.Name()] = m.Value()
	}
	return ep, nil
}

func makeRow(t, rep int, state, action []float64, reward float64, done bool) Row {
	r := Row{Time: t, Rep: rep, Reward: reward, Done: done}
	r.State = stat.Mean(state, nil)
	if len(state) > 1 {
		r.States = state
	}
	if len(action) > 0 {
		r.Action = action[0]
	}
	if len(action) > 1 {
		r.Actions = action
	}
	return r
}

// Simulate runs policy against e for reps episodes.
func Simulate(ctx context.Context, e ecology.Env, p ecology.Policy, reps int) (Trajectory, error) {
	res, err := New(e, p).Run(ctx, reps)
	if res == nil {
		return nil, err
	}
	return res.Trajectory, err
}

// EstimatePolicyFunction evaluates the policy on n evenly spaced
// observations spanning [-1, 1], independent of the dynamics.
func EstimatePolicyFunction(e ecology.Env, p ecology.Policy, reps, n int) ([]PolicyPoint, error) {
	if n < 2 {
		return nil, fmt.Errorf("policy function needs at least 2 samples, got %d", n)
	}
	if reps < 1 {
		return nil, fmt.Errorf("repetitions must be positive, got %d", reps)
	}

	grid := floats.Span(make([]float64, n), -1, 1)
	points := make([]PolicyPoint, 0, reps*n)

	for rep := range reps {
		if r, ok := p.(ecology.Resetter); ok {
			r.Reset()
		}
		for _, v := range grid {
			obs := make(ecology.Observation, e.ObservationDim())
			for i := range obs {
				obs[i] = v
			}
			a, _, err := p.Predict(obs, false)
			if err != nil {
				return points, &ecology.StepError{Rep: rep, Wrapped: err}
			}
			u := e.UnscaleAction(a)
			points = append(points, PolicyPoint{
				State:  stat.Mean(e.UnscaleState(obs), nil),
				Action: u[0],
				Rep:    rep,
			})
		}
	}

	return points, nil
}
