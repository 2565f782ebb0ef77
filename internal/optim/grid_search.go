package optim

import (
	"context"
	"fmt"
	"maps"
	"math"

	"github.com/san-kum/conservation/internal/experiment"
	"github.com/san-kum/conservation/internal/sim"
)

// Evaluator scores one parameter assignment. Higher is better.
type Evaluator func(ctx context.Context, params map[string]float64) (float64, error)

// Trial is one evaluated grid point.
type Trial struct {
	Params map[string]float64
	Score  float64
}

type Result struct {
	Best   map[string]float64
	Score  float64
	Trials []Trial
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search evaluates every point of the grid and keeps the highest score.
// Points are visited in lexicographic order of the ranges; ties keep the
// first point.
func (g *GridSearch) Search(ctx context.Context, eval Evaluator) (*Result, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("grid search: %d params but %d ranges", len(g.paramNames), len(g.ranges))
	}
	for i, r := range g.ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("grid search: empty range for %s", g.paramNames[i])
		}
	}

	res := &Result{Score: math.Inf(-1)}
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), eval, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	eval Evaluator,
	res *Result,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		score, err := eval(ctx, current)
		if err != nil {
			return fmt.Errorf("evaluate %v: %w", current, err)
		}
		res.Trials = append(res.Trials, Trial{Params: current, Score: score})
		if score > res.Score {
			res.Score = score
			res.Best = maps.Clone(current)
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := maps.Clone(current)
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, eval, res); err != nil {
			return err
		}
	}
	return nil
}

// Range returns steps evenly spaced values from lo to hi.
func Range(lo, hi float64, steps int) []float64 {
	if steps <= 1 {
		return []float64{lo}
	}
	vals := make([]float64, steps)
	for i := range vals {
		vals[i] = lo + (hi-lo)*float64(i)/float64(steps-1)
	}
	return vals
}

// PolicyEvaluator scores policy parameters by the mean episode reward of
// a concurrent batch of independently seeded environments. Base policy
// parameters from cfg are overridden by the grid point; the trajectory
// log is never written during a search.
func PolicyEvaluator(r *experiment.Registry, cfg experiment.Config, batch int) Evaluator {
	if batch < 1 {
		batch = 1
	}
	seedStart := cfg.Seed
	if seedStart == 0 {
		seedStart = 1
	}

	return func(ctx context.Context, params map[string]float64) (float64, error) {
		pp := maps.Clone(cfg.PolicyParams)
		if pp == nil {
			pp = make(map[string]float64)
		}
		maps.Copy(pp, params)

		results, err := sim.Batch(ctx, batch, seedStart, cfg.Repetitions, func(seed uint64) (*sim.Simulator, error) {
			c := cfg
			c.Seed = seed
			c.LogFile = ""
			e, err := r.NewEnv(c.Env, c.Params, c.Options()...)
			if err != nil {
				return nil, err
			}
			p, err := r.GetPolicy(c.Policy, e, pp)
			if err != nil {
				e.Close()
				return nil, err
			}
			s := sim.New(e, p)
			s.SetDeterministic(c.Deterministic)
			return s, nil
		})
		if err != nil {
			return 0, err
		}
		return sim.MeanReward(results), nil
	}
}
