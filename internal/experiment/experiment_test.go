package experiment

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/conservation/internal/ecology"
	"github.com/san-kum/conservation/internal/env"
	"github.com/san-kum/conservation/internal/growth"
)

func TestRegistryEnvs(t *testing.T) {
	r := NewRegistry()
	for _, name := range r.ListEnvs() {
		e, err := r.NewEnv(name, nil)
		require.NoError(t, err, name)
		obs := e.Reset()
		assert.Equal(t, e.ObservationDim(), len(obs), name)
		require.NoError(t, e.Close())
	}
	assert.Contains(t, r.ListEnvs(), "conservation-v5")
	assert.Len(t, r.ListEnvs(), 13)
}

func TestRegistryUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.GetSpec("conservation-v99")
	assert.EqualError(t, err, "unknown env: conservation-v99")

	e, err := r.NewEnv("conservation-v0", nil)
	require.NoError(t, err)
	defer e.Close()
	_, err = r.GetPolicy("random", e, nil)
	assert.EqualError(t, err, "unknown policy: random")
}

func TestRegistryOverrides(t *testing.T) {
	r := NewRegistry()
	e, err := r.NewEnv("conservation-v0", map[string]float64{"r": 0.5, "K": 2})
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, 0.5, e.Params().R)
	assert.Equal(t, 2.0, e.Params().K)

	_, err = r.NewEnv("conservation-v0", map[string]float64{"gamma": 1})
	assert.True(t, errors.Is(err, ecology.ErrUnknownParam))
}

func TestRegistryOverridesEveryModel(t *testing.T) {
	r := NewRegistry()
	e, err := r.NewEnv("conservation-v6", map[string]float64{"sigma": 0, "r": 0}, env.WithSeed(3))
	require.NoError(t, err)
	defer e.Close()

	seen := map[growth.Model]bool{}
	for range 30 {
		e.Reset()
		m := e.Model()
		seen[m] = true

		p := growth.DefaultParams(m)
		p.R = 0
		p.Sigma = 0
		_, _, _, _, err := e.Step(ecology.Action{-1})
		require.NoError(t, err, m.String())
		assert.InDelta(t, m.Mean(0.1, p), e.Population()[0], 1e-12, m.String())
	}
	assert.Greater(t, len(seen), 1)

	_, err = r.NewEnv("conservation-v6", map[string]float64{"sigma": -1})
	assert.True(t, errors.Is(err, ecology.ErrParameterBounds))
}

func TestExperimentRun(t *testing.T) {
	r := NewRegistry()
	exp := New(Config{
		Env:          "conservation-v5",
		Policy:       "target_parameter",
		PolicyParams: map[string]float64{"target": 0.15},
		Repetitions:  3,
		Seed:         7,
		Horizon:      25,
	})
	require.NoError(t, exp.Setup(r, r.DefaultMetrics()))
	defer exp.Close()

	res, err := exp.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Episodes, 3)
	assert.Contains(t, res.Metrics, "episode_reward")
	assert.Equal(t, 25, exp.Env().Horizon())
}

func TestExperimentNotSetup(t *testing.T) {
	_, err := New(Config{}).Run(context.Background())
	assert.Error(t, err)
}

func TestUserPolicyUsesConsole(t *testing.T) {
	r := NewRegistry()
	var out bytes.Buffer
	r.SetConsole(strings.NewReader("0.2\n"), &out)

	e, err := r.NewEnv("conservation-v0", nil)
	require.NoError(t, err)
	defer e.Close()

	p, err := r.GetPolicy("user", e, nil)
	require.NoError(t, err)
	a, _, err := p.Predict(e.Reset(), true)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, e.UnscaleAction(a)[0], 1e-12)
	assert.Contains(t, out.String(), "Your action")
}
