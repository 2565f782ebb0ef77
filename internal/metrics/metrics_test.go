package metrics

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/conservation/internal/env"
	"github.com/san-kum/conservation/internal/growth"
	"github.com/san-kum/conservation/internal/policy"
	"github.com/san-kum/conservation/internal/sim"
)

func TestEpisodeReward(t *testing.T) {
	m := NewEpisodeReward()
	m.Observe(sim.Row{Reward: 1.5})
	m.Observe(sim.Row{Reward: -0.5})
	if m.Value() != 1.0 {
		t.Errorf("expected 1.0, got %f", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Errorf("expected 0 after reset, got %f", m.Value())
	}
}

func TestActionEffort(t *testing.T) {
	m := NewActionEffort()
	m.Observe(sim.Row{Action: -2})
	m.Observe(sim.Row{Action: 0.5, Actions: []float64{0.5, 1.5}})
	if math.Abs(m.Value()-2.0) > 1e-12 {
		t.Errorf("expected 2.0, got %f", m.Value())
	}
}

func TestPersistence(t *testing.T) {
	m := NewPersistence(0.3)
	m.Observe(sim.Row{State: 0.5})
	m.Observe(sim.Row{State: 0.2})
	m.Observe(sim.Row{State: 0.5, States: []float64{0.9, 0.1}})
	m.Observe(sim.Row{State: 0.5, States: []float64{0.9, 0.4}})
	if m.Value() != 0.5 {
		t.Errorf("expected 0.5, got %f", m.Value())
	}
}

func TestMinState(t *testing.T) {
	m := NewMinState()
	if m.Value() != 0 {
		t.Errorf("expected 0 without samples, got %f", m.Value())
	}
	m.Observe(sim.Row{State: 0.7})
	m.Observe(sim.Row{State: 0.4})
	m.Observe(sim.Row{State: 0.6})
	if m.Value() != 0.4 {
		t.Errorf("expected 0.4, got %f", m.Value())
	}
}

func TestCollapseRateOverEpisodes(t *testing.T) {
	e, err := env.Harvest().New(env.WithSeed(1))
	if err != nil {
		t.Fatalf("build env: %v", err)
	}
	defer e.Close()

	s := sim.New(e, policy.NewFixed(e, e.Params().K))
	s.AddMetric(NewCollapseRate())
	s.AddMetric(NewEpisodeReward())

	res, err := s.Run(context.Background(), 4)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Metrics["collapse_rate"] != 1 {
		t.Errorf("expected every episode to collapse, got %f", res.Metrics["collapse_rate"])
	}
	if math.Abs(res.Metrics["episode_reward"]-0.75) > 1e-12 {
		t.Errorf("expected reward 0.75, got %f", res.Metrics["episode_reward"])
	}
}

func TestStandardNames(t *testing.T) {
	e, err := env.Stationary(growth.Ricker).New(env.WithSeed(3), env.WithHorizon(20))
	if err != nil {
		t.Fatalf("build env: %v", err)
	}
	defer e.Close()

	s := sim.New(e, policy.NewTargetState(e, 0.8))
	for _, m := range Standard(0.3) {
		s.AddMetric(m)
	}
	res, err := s.Run(context.Background(), 2)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, name := range []string{"episode_reward", "action_effort", "persistence", "collapse_rate", "min_state"} {
		if _, ok := res.Metrics[name]; !ok {
			t.Errorf("metric %s missing", name)
		}
	}
	if res.Metrics["persistence"] != 1 {
		t.Errorf("population near K should persist, got %f", res.Metrics["persistence"])
	}
}
